package badger

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/famhp/olrs/storage"
)

// Backend wraps a BadgerDB instance and provides low-level operations.
// Transactions hold a read lock on the backend, so Close and DropAll wait
// for running transactions and later ones fail with storage.ErrStorageClosed.
type Backend struct {
	db       *badger.DB
	path     string
	inMemory bool
	logger   *slog.Logger

	guard  sync.RWMutex
	closed bool
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBackend opens a BadgerDB database at the specified path.
// Creates the directory if it doesn't exist.
func OpenBackend(filePath string, inMemory bool, opts ...Option) (*Backend, error) {
	cfg := newConfig(opts)

	var badgerOpts badger.Options
	if inMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		// Ensure directory exists
		info, err := os.Stat(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				if err := os.MkdirAll(filePath, 0755); err != nil {
					return nil, err
				}
				info, err = os.Stat(filePath)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		badgerOpts = badger.DefaultOptions(filePath).WithSyncWrites(cfg.syncWrites)
	}

	badgerOpts.Logger = &badgerLoggerAdapter{logger: cfg.logger}
	badgerOpts.Compression = options.None

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}

	return &Backend{
		db:       db,
		path:     filePath,
		inMemory: inMemory,
		logger:   cfg.logger,
	}, nil
}

// Close closes the BadgerDB database once no transaction is running.
// Closing an already closed backend is a no-op.
func (b *Backend) Close() error {
	b.guard.Lock()
	defer b.guard.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.db.Close()
}

// IsClosed returns true if the database is closed.
func (b *Backend) IsClosed() bool {
	b.guard.RLock()
	defer b.guard.RUnlock()
	return b.closed
}

// Path returns the directory of the database, empty when in memory.
func (b *Backend) Path() string {
	return b.path
}

// WithTx executes a function within a BadgerDB transaction.
// If isWrite is true, creates a read-write transaction.
// The transaction is automatically discarded; fn must commit write transactions itself.
// Returns storage.ErrStorageClosed once the backend is closed.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	return b.withDB(func(db *badger.DB) error {
		tx := db.NewTransaction(isWrite)
		defer tx.Discard()
		return fn(tx)
	})
}

// withDB runs fn against the open database. fn must not call back into
// the backend.
func (b *Backend) withDB(fn func(db *badger.DB) error) error {
	b.guard.RLock()
	defer b.guard.RUnlock()
	if b.closed {
		return storage.ErrStorageClosed
	}
	return fn(b.db)
}

// DropAll removes every key from the database.
func (b *Backend) DropAll() error {
	b.guard.Lock()
	defer b.guard.Unlock()
	if b.closed {
		return storage.ErrStorageClosed
	}
	return b.db.DropAll()
}
