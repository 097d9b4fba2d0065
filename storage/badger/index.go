package badger

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/dgraph-io/badger/v4"
	"github.com/famhp/olrs/analysis"
	"github.com/famhp/olrs/core"
	"github.com/famhp/olrs/query"
	"github.com/famhp/olrs/storage"
)

type opKind int

const (
	opUpsert opKind = iota + 1
	opDeleteDocument
	opDeletePath
)

// stagedOp is one buffered write, replayed into a transaction on Commit.
type stagedOp struct {
	kind opKind
	doc  *preparedDoc
	arg  string
}

// preparedDoc is an analyzed page entry ready to be written.
type preparedDoc struct {
	key      core.DocKey
	record   *core.Record
	postings map[string]map[string]storage.Posting // field -> term -> posting
}

// Index is a LanguageIndex backed by one BadgerDB database.
//
// Writes are staged in memory and replayed into a single read-write
// transaction on Commit, so readers (which use their own read-only
// transactions) only ever see whole commits.
type Index struct {
	backend  *Backend
	language string
	ngram    analysis.NGram
	exact    analysis.Standard
	logger   *slog.Logger

	mu      sync.Mutex // serializes staging and commits
	pending []stagedOp
	closed  atomic.Bool
}

var _ storage.LanguageIndex = (*Index)(nil)

// NewIndex creates a language index over backend. The index owns the backend
// and closes it on Close.
func NewIndex(backend *Backend, language string, opts ...Option) (*Index, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}
	cfg := newConfig(opts)
	return &Index{
		backend:  backend,
		language: language,
		ngram:    cfg.ngram,
		logger:   cfg.logger.With("language", language),
	}, nil
}

// Language implements storage.LanguageIndex.
func (i *Index) Language() string {
	return i.language
}

// IndexDocument implements storage.LanguageIndex.
// Analysis happens here, outside the commit critical section.
func (i *Index) IndexDocument(ctx context.Context, entry *core.PageEntry) error {
	if entry == nil {
		return core.InvalidArgumentf("page entry is nil")
	}
	if err := core.ValidateDocID(entry.DocID); err != nil {
		return err
	}
	doc := i.prepare(entry)
	return i.stage(stagedOp{kind: opUpsert, doc: doc})
}

// DeleteDocument implements storage.LanguageIndex.
func (i *Index) DeleteDocument(ctx context.Context, docID string) error {
	if err := core.ValidateDocID(docID); err != nil {
		return err
	}
	return i.stage(stagedOp{kind: opDeleteDocument, arg: docID})
}

// DeleteByPath implements storage.LanguageIndex.
func (i *Index) DeleteByPath(ctx context.Context, path string) error {
	if path == "" {
		return errors.Mark(core.ErrEmptyPath, core.ErrInvalidArgument)
	}
	return i.stage(stagedOp{kind: opDeletePath, arg: path})
}

func (i *Index) stage(op stagedOp) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed.Load() {
		return storage.ErrStorageClosed
	}
	i.pending = append(i.pending, op)
	return nil
}

// prepare analyzes an entry into its stored record and postings.
func (i *Index) prepare(entry *core.PageEntry) *preparedDoc {
	entryID := entry.EntryID()
	doc := &preparedDoc{
		key: core.ContentID(entryID),
		record: &core.Record{
			EntryID:  entryID,
			DocID:    entry.DocID,
			Path:     entry.Path,
			Title:    entry.DisplayTitle(),
			Language: entry.Language,
			Page:     entry.Page,
			Section:  entry.Section,
		},
		postings: make(map[string]map[string]storage.Posting, len(indexedFields)),
	}

	for _, field := range indexedFields {
		var tokens []analysis.Token
		switch field {
		case query.FieldContentPartial:
			tokens = i.ngram.Analyze(entry.Text)
		case query.FieldContentExact:
			tokens = i.exact.Analyze(entry.Text)
		case query.FieldTitleExact:
			tokens = i.exact.Analyze(doc.record.Title)
		case query.FieldSectionExact:
			tokens = i.exact.Analyze(entry.Section)
		}

		fieldPostings := make(map[string]storage.Posting)
		for _, tok := range tokens {
			p := fieldPostings[tok.Term]
			p.Freq++
			if positionalFields[field] {
				p.Positions = append(p.Positions, tok.Position)
			}
			fieldPostings[tok.Term] = p
		}

		terms := make([]string, 0, len(fieldPostings))
		for term, p := range fieldPostings {
			p.FieldLen = len(tokens)
			fieldPostings[term] = p
			terms = append(terms, term)
		}
		slices.Sort(terms)

		doc.postings[field] = fieldPostings
		doc.record.Fields = append(doc.record.Fields, core.FieldTerms{
			Field:  field,
			Length: len(tokens),
			Terms:  terms,
		})
	}
	return doc
}

// Commit implements storage.LanguageIndex.
//
// All staged operations go into one transaction. If badger reports the
// transaction too big, the operations that fit are committed first and the
// remainder continues in a fresh transaction; an operation that cannot fit on
// its own fails the commit.
func (i *Index) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed.Load() {
		return storage.ErrStorageClosed
	}
	return i.commitLocked()
}

func (i *Index) commitLocked() error {
	ops := i.pending
	i.pending = nil
	if len(ops) == 0 {
		return nil
	}

	for start := 0; start < len(ops); {
		fitted, err := i.commitBatch(ops[start:])
		if err != nil {
			i.logger.Error("error committing index", "staged", len(ops)-start, "err", err)
			return core.StorageError(err, "commit %s index", i.language)
		}
		start += fitted
	}

	i.logger.Debug("committed index", "operations", len(ops))
	return nil
}

// commitBatch commits as many leading operations of ops as fit in one
// transaction and returns how many were committed.
func (i *Index) commitBatch(ops []stagedOp) (int, error) {
	fitted := 0
	err := i.backend.WithTx(func(tx *badger.Txn) error {
		for _, op := range ops {
			if err := i.apply(tx, op); err != nil {
				return err
			}
			fitted++
		}
		return tx.Commit()
	}, true)
	if err == nil {
		return fitted, nil
	}
	if !errors.Is(err, badger.ErrTxnTooBig) {
		return 0, err
	}
	if fitted == 0 {
		return 0, errors.Mark(errors.Wrapf(err, "entry %s", describeOp(ops[0])), storage.ErrOperationTooLarge)
	}

	// Replay the operations that fit into a fresh transaction.
	err = i.backend.WithTx(func(tx *badger.Txn) error {
		for _, op := range ops[:fitted] {
			if err := i.apply(tx, op); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	i.logger.Debug("split oversized commit", "committed", fitted, "remaining", len(ops)-fitted)
	return fitted, nil
}

func describeOp(op stagedOp) string {
	if op.doc != nil {
		return op.doc.record.EntryID
	}
	return op.arg
}

func (i *Index) apply(tx *badger.Txn, op stagedOp) error {
	switch op.kind {
	case opUpsert:
		return i.applyUpsert(tx, op.doc)
	case opDeleteDocument:
		keys, err := entryDocKeys(tx, core.EntryIDPrefix(op.arg))
		if err != nil {
			return err
		}
		return i.removeRecords(tx, keys)
	case opDeletePath:
		keys, err := pathDocKeys(tx, op.arg)
		if err != nil {
			return err
		}
		return i.removeRecords(tx, keys)
	default:
		return errors.Newf("unknown staged operation %d", op.kind)
	}
}

func (i *Index) applyUpsert(tx *badger.Txn, doc *preparedDoc) error {
	existing, err := getDocKey(tx, makeEntryKey(doc.record.EntryID))
	switch {
	case err == nil:
		if err := removeRecord(tx, existing); err != nil {
			return err
		}
	case !errors.Is(err, badger.ErrKeyNotFound):
		return err
	}

	// A different entry hashing to the same key would be silently replaced.
	if other, err := getRecord(tx, doc.key); err == nil {
		return errors.Newf("document key collision between %q and %q", other.EntryID, doc.record.EntryID)
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}

	if err := tx.Set(makeRecordKey(doc.key), storage.MarshalRecord(doc.record)); err != nil {
		return err
	}
	if err := tx.Set(makeEntryKey(doc.record.EntryID), storage.MarshalDocKey(doc.key)); err != nil {
		return err
	}
	if err := tx.Set(makePathKey(doc.record.Path, doc.key), nil); err != nil {
		return err
	}

	for _, f := range doc.record.Fields {
		for term, p := range doc.postings[f.Field] {
			if err := tx.Set(makePostingKey(f.Field, term, doc.key), storage.MarshalPosting(p)); err != nil {
				return err
			}
			if err := adjustInt(tx, makeDictKey(f.Field, term), 1); err != nil {
				return err
			}
		}
		if err := adjustStats(tx, f.Field, 1, f.Length); err != nil {
			return err
		}
	}
	return nil
}

func (i *Index) removeRecords(tx *badger.Txn, keys []core.DocKey) error {
	for _, key := range keys {
		if err := removeRecord(tx, key); err != nil {
			return err
		}
	}
	if len(keys) > 0 {
		i.logger.Debug("removed records", "count", len(keys))
	}
	return nil
}

// removeRecord deletes a record together with its postings and index entries.
func removeRecord(tx *badger.Txn, key core.DocKey) error {
	record, err := getRecord(tx, key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, f := range record.Fields {
		for _, term := range f.Terms {
			if err := tx.Delete(makePostingKey(f.Field, term, key)); err != nil {
				return err
			}
			if err := adjustInt(tx, makeDictKey(f.Field, term), -1); err != nil {
				return err
			}
		}
		if err := adjustStats(tx, f.Field, -1, -f.Length); err != nil {
			return err
		}
	}

	if err := tx.Delete(makePathKey(record.Path, key)); err != nil {
		return err
	}
	if err := tx.Delete(makeEntryKey(record.EntryID)); err != nil {
		return err
	}
	return tx.Delete(makeRecordKey(key))
}

// Search implements storage.LanguageIndex.
func (i *Index) Search(ctx context.Context, q query.Query, limit int) (*storage.SearchResult, error) {
	if limit <= 0 {
		return nil, core.InvalidArgumentf("limit must be positive, got %d", limit)
	}
	if i.closed.Load() {
		return nil, storage.ErrStorageClosed
	}
	result := &storage.SearchResult{}
	if query.IsEmpty(q) {
		return result, nil
	}

	err := i.backend.WithTx(func(tx *badger.Txn) error {
		ev := newEvaluator(ctx, tx)
		matches, err := ev.eval(q)
		if err != nil {
			return err
		}

		ranked := rank(matches, limit)
		matched := make(map[string]struct{})
		for _, m := range ranked {
			record, err := getRecord(tx, m.key)
			if err != nil {
				return err
			}
			result.Hits = append(result.Hits, core.HitFromRecord(record, m.score))
			for term := range m.terms {
				matched[term] = struct{}{}
			}
		}
		result.MatchedTerms = sortedKeys(matched)
		return nil
	}, false)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, storage.ErrStorageClosed) {
			return nil, err
		}
		i.logger.Error("error searching index", "query", q.String(), "err", err)
		return nil, core.StorageError(err, "search %s index", i.language)
	}
	return result, nil
}

// Count implements storage.LanguageIndex.
// Every record contributes to every field's statistics, so any field's
// document count is the record count.
func (i *Index) Count(ctx context.Context) (int, error) {
	if i.closed.Load() {
		return 0, storage.ErrStorageClosed
	}
	var count int
	err := i.backend.WithTx(func(tx *badger.Txn) error {
		stats, err := getStats(tx, query.FieldContentExact)
		count = stats.DocCount
		return err
	}, false)
	if errors.Is(err, storage.ErrStorageClosed) {
		return 0, err
	}
	if err != nil {
		return 0, core.StorageError(err, "count %s index", i.language)
	}
	return count, nil
}

// Clear implements storage.LanguageIndex.
func (i *Index) Clear(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed.Load() {
		return storage.ErrStorageClosed
	}
	i.pending = nil
	if err := i.backend.DropAll(); err != nil {
		if errors.Is(err, storage.ErrStorageClosed) {
			return err
		}
		return core.StorageError(err, "clear %s index", i.language)
	}
	i.logger.Info("cleared index")
	return nil
}

// Close implements storage.LanguageIndex.
// Operations staged but not yet committed are committed before closing.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed.Load() {
		return nil
	}
	i.closed.Store(true)

	var commitErr error
	if len(i.pending) > 0 {
		commitErr = i.commitLocked()
	}
	if err := i.backend.Close(); err != nil {
		return errors.CombineErrors(commitErr, core.StorageError(err, "close %s index", i.language))
	}
	return commitErr
}

// entryDocKeys returns the document keys of every entry ID starting with prefix.
func entryDocKeys(tx *badger.Txn, prefix string) ([]core.DocKey, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makeEntryPrefixKey(prefix)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var keys []core.DocKey
	for iter.Rewind(); iter.Valid(); iter.Next() {
		err := iter.Item().Value(func(val []byte) error {
			key, err := storage.UnmarshalDocKey(val)
			if err != nil {
				return err
			}
			keys = append(keys, key)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// pathDocKeys returns the document keys of every record stored with path.
func pathDocKeys(tx *badger.Txn, path string) ([]core.DocKey, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = makePathPrefixKey(path)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var keys []core.DocKey
	for iter.Rewind(); iter.Valid(); iter.Next() {
		key := iter.Item().Key()
		if len(key) != len(opts.Prefix)+8 {
			continue
		}
		if k, ok := docKeyFromSuffix(key); ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func getRecord(tx *badger.Txn, key core.DocKey) (*core.Record, error) {
	item, err := tx.Get(makeRecordKey(key))
	if err != nil {
		return nil, err
	}
	var record *core.Record
	err = item.Value(func(val []byte) error {
		record, err = storage.UnmarshalRecord(val)
		return err
	})
	return record, err
}

func getDocKey(tx *badger.Txn, key []byte) (core.DocKey, error) {
	item, err := tx.Get(key)
	if err != nil {
		return 0, err
	}
	var docKey core.DocKey
	err = item.Value(func(val []byte) error {
		docKey, err = storage.UnmarshalDocKey(val)
		return err
	})
	return docKey, err
}

func getInt(tx *badger.Txn, key []byte) (int, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var v int
	err = item.Value(func(val []byte) error {
		v, err = storage.UnmarshalInt(val)
		return err
	})
	return v, err
}

// adjustInt adds delta to a counter, deleting it when it drops to zero.
func adjustInt(tx *badger.Txn, key []byte, delta int) error {
	cur, err := getInt(tx, key)
	if err != nil {
		return err
	}
	next := cur + delta
	if next <= 0 {
		return tx.Delete(key)
	}
	return tx.Set(key, storage.MarshalInt(next))
}

func getStats(tx *badger.Txn, field string) (storage.FieldStats, error) {
	item, err := tx.Get(makeStatsKey(field))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return storage.FieldStats{}, nil
	}
	if err != nil {
		return storage.FieldStats{}, err
	}
	var stats storage.FieldStats
	err = item.Value(func(val []byte) error {
		stats, err = storage.UnmarshalFieldStats(val)
		return err
	})
	return stats, err
}

func adjustStats(tx *badger.Txn, field string, docs, length int) error {
	stats, err := getStats(tx, field)
	if err != nil {
		return err
	}
	stats.DocCount += docs
	stats.TotalLength += length
	if stats.DocCount <= 0 {
		return tx.Delete(makeStatsKey(field))
	}
	if stats.TotalLength < 0 {
		stats.TotalLength = 0
	}
	return tx.Set(makeStatsKey(field), storage.MarshalFieldStats(stats))
}
