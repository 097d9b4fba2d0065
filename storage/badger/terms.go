package badger

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dgraph-io/badger/v4"
	"github.com/famhp/olrs/core"
	"github.com/famhp/olrs/storage"
)

// TermStore is a storage.TermStore backed by one BadgerDB database.
type TermStore struct {
	backend  *Backend
	language string
	logger   *slog.Logger
	mu       sync.Mutex // single writer
}

var _ storage.TermStore = (*TermStore)(nil)

// NewTermStore creates a term store over backend. The store owns the backend
// and closes it on Close.
func NewTermStore(backend *Backend, language string, opts ...Option) (*TermStore, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}
	cfg := newConfig(opts)
	return &TermStore{
		backend:  backend,
		language: language,
		logger:   cfg.logger.With("language", language, "index", "suggest"),
	}, nil
}

// Upsert implements storage.TermStore.
// Terms are written in as few transactions as badger allows.
func (s *TermStore) Upsert(ctx context.Context, terms []string, weight int) error {
	if len(terms) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	value := storage.MarshalInt(weight)
	err := s.backend.withDB(func(db *badger.DB) error {
		tx := db.NewTransaction(true)
		defer func() { tx.Discard() }()

		for _, term := range terms {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := makeTermKey(term)
			err := tx.Set(key, value)
			if errors.Is(err, badger.ErrTxnTooBig) {
				if err := tx.Commit(); err != nil {
					return core.StorageError(err, "commit %s suggest index", s.language)
				}
				tx = db.NewTransaction(true)
				err = tx.Set(key, value)
			}
			if err != nil {
				return core.StorageError(err, "write %s suggest index", s.language)
			}
		}

		if err := tx.Commit(); err != nil {
			return core.StorageError(err, "commit %s suggest index", s.language)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Debug("upserted suggest terms", "count", len(terms))
	return nil
}

// Prefix implements storage.TermStore.
func (s *TermStore) Prefix(ctx context.Context, prefix string) ([]storage.TermWeight, error) {
	var result []storage.TermWeight
	err := s.scan(ctx, makeTermKey(prefix), func(tw storage.TermWeight) bool {
		result = append(result, tw)
		return true
	})
	return result, err
}

// Each implements storage.TermStore.
func (s *TermStore) Each(ctx context.Context, fn func(tw storage.TermWeight) bool) error {
	return s.scan(ctx, makeTermKey(""), fn)
}

func (s *TermStore) scan(ctx context.Context, prefix []byte, fn func(tw storage.TermWeight) bool) error {
	base := len(makeTermKey(""))
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := iter.Item()
			tw := storage.TermWeight{Term: string(item.Key()[base:])}
			err := item.Value(func(val []byte) error {
				var err error
				tw.Weight, err = storage.UnmarshalInt(val)
				return err
			})
			if err != nil {
				return err
			}
			if !fn(tw) {
				return nil
			}
		}
		return nil
	}, false)
	if err != nil && ctx.Err() == nil && !errors.Is(err, storage.ErrStorageClosed) {
		return core.StorageError(err, "scan %s suggest index", s.language)
	}
	return err
}

// Count implements storage.TermStore.
func (s *TermStore) Count(ctx context.Context) (int, error) {
	count := 0
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makeTermKey("")
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	if errors.Is(err, storage.ErrStorageClosed) {
		return 0, err
	}
	if err != nil {
		return 0, core.StorageError(err, "count %s suggest index", s.language)
	}
	return count, nil
}

// Clear implements storage.TermStore.
func (s *TermStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.DropAll(); err != nil {
		if errors.Is(err, storage.ErrStorageClosed) {
			return err
		}
		return core.StorageError(err, "clear %s suggest index", s.language)
	}
	return nil
}

// Close implements storage.TermStore.
func (s *TermStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Close()
}
