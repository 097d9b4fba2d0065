// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingestion

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/famhp/olrs/core"
	"github.com/famhp/olrs/metrics"
	"github.com/famhp/olrs/storage"
	"github.com/famhp/olrs/suggest"
	"github.com/panjf2000/ants/v2"
)

const (
	// suggestWeight is the weight given to terms harvested from indexed text.
	suggestWeight = 1

	defaultMaxRetries = 3
	defaultRetryDelay = 100 * time.Millisecond
)

// Indexes resolves language indexes for writing. *index.Registry implements it.
type Indexes interface {
	GetOrCreate(ctx context.Context, language string) (storage.LanguageIndex, error)
	Lookup(ctx context.Context, language string) (storage.LanguageIndex, bool, error)
	Languages() ([]string, error)
	Clear(ctx context.Context, language string) error
}

// TermSink receives suggestion terms harvested from indexed pages.
// *suggest.Engine implements it.
type TermSink interface {
	AddTerms(ctx context.Context, language string, terms []string, weight int) error
}

// Pipeline writes page entries into language indexes. Writes to one language
// are serialized; different languages proceed in parallel.
type Pipeline struct {
	indexes    Indexes
	suggest    TermSink
	metrics    *metrics.Metrics
	pool       *ants.Pool
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger

	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	released bool
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for batch ingestion.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithSuggest feeds terms of every indexed page into sink.
func WithSuggest(sink TermSink) Option {
	return func(p *Pipeline) error {
		p.suggest = sink
		return nil
	}
}

// WithMetrics records page and commit counters on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) error {
		p.metrics = m
		return nil
	}
}

// WithMaxRetries sets how often opening a source is attempted in a batch.
// Default is 3.
func WithMaxRetries(attempts int) Option {
	return func(p *Pipeline) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		p.maxRetries = attempts
		return nil
	}
}

// WithRetryDelay sets the base backoff delay between open attempts.
// Default is 100ms.
func WithRetryDelay(d time.Duration) Option {
	return func(p *Pipeline) error {
		if d < 0 {
			return core.InvalidArgumentf("retry delay %s", d)
		}
		p.retryDelay = d
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline writing through indexes.
func NewPipeline(indexes Indexes, opts ...Option) (*Pipeline, error) {
	if indexes == nil {
		return nil, ErrIndexesRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		indexes:    indexes,
		pool:       pool,
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
		logger:     slog.Default(),
		locks:      make(map[string]*sync.Mutex),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

func (p *Pipeline) languageLock(language string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[language]
	if !ok {
		l = &sync.Mutex{}
		p.locks[language] = l
	}
	return l
}

// AddPage upserts entry into the index of its language and commits. The
// entry's language is normalized; the caller's value is not modified.
func (p *Pipeline) AddPage(ctx context.Context, entry *core.PageEntry) error {
	if entry == nil {
		return core.InvalidArgumentf("page entry is nil")
	}
	e := *entry
	e.Language = core.NormalizeLanguage(e.Language)
	if err := core.ValidatePageEntry(&e); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := p.withIndex(ctx, e.Language, true, func(idx storage.LanguageIndex) error {
		if err := idx.IndexDocument(ctx, &e); err != nil {
			return err
		}
		return idx.Commit(ctx)
	})
	if err != nil {
		p.logger.Error("error indexing page", "entry", e.EntryID(), "err", err)
		return err
	}
	p.metrics.PageIndexed(e.Language)

	if p.suggest != nil {
		terms := suggest.BuildTermsForLanguage(e.Language, e.Text)
		if err := p.suggest.AddTerms(ctx, e.Language, terms, suggestWeight); err != nil {
			p.logger.Warn("error updating suggestions", "entry", e.EntryID(), "err", err)
		}
	}
	return nil
}

// DeleteDocument removes every record of docID from the index of language
// and commits. A language without an index is a no-op.
func (p *Pipeline) DeleteDocument(ctx context.Context, docID, language string) error {
	if err := core.ValidateDocID(docID); err != nil {
		return err
	}
	language = core.NormalizeLanguage(language)
	if err := core.ValidateLanguage(language); err != nil {
		return err
	}

	err := p.withIndex(ctx, language, false, func(idx storage.LanguageIndex) error {
		if err := idx.DeleteDocument(ctx, docID); err != nil {
			return err
		}
		return idx.Commit(ctx)
	})
	if err != nil {
		p.logger.Error("error deleting document", "doc_id", docID, "language", language, "err", err)
	}
	return err
}

// DeleteByPath removes every record stored with path from every present
// language. All languages are attempted even when one fails.
func (p *Pipeline) DeleteByPath(ctx context.Context, path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.Mark(core.ErrEmptyPath, core.ErrInvalidArgument)
	}
	languages, err := p.indexes.Languages()
	if err != nil {
		return err
	}

	var result error
	for _, language := range languages {
		if err := ctx.Err(); err != nil {
			return errors.CombineErrors(result, err)
		}
		err := p.withIndex(ctx, language, false, func(idx storage.LanguageIndex) error {
			if err := idx.DeleteByPath(ctx, path); err != nil {
				return err
			}
			return idx.Commit(ctx)
		})
		if err != nil {
			p.logger.Error("error deleting path", "path", path, "language", language, "err", err)
			result = errors.CombineErrors(result, err)
		}
	}
	return result
}

// ClearIndex drops every record of language, or of every language when
// language is core.AllLanguages. Clearing one language waits for its
// in-flight writes.
func (p *Pipeline) ClearIndex(ctx context.Context, language string) error {
	if lang := core.NormalizeLanguage(language); lang != core.AllLanguages && core.ValidateLanguage(lang) == nil {
		lock := p.languageLock(lang)
		lock.Lock()
		defer lock.Unlock()
	}
	return p.indexes.Clear(ctx, language)
}

// withIndex runs fn under the write lock of language. When create is false a
// missing index is a no-op. A handle closed by a concurrent clear is
// resolved again once. Every attempted write is counted as a commit.
func (p *Pipeline) withIndex(ctx context.Context, language string, create bool, fn func(storage.LanguageIndex) error) (err error) {
	lock := p.languageLock(language)
	lock.Lock()
	defer lock.Unlock()

	wrote := false
	defer func() {
		if wrote {
			p.metrics.Commit(language, err)
		}
	}()

	for attempt := 0; attempt < 2; attempt++ {
		var idx storage.LanguageIndex
		if create {
			idx, err = p.indexes.GetOrCreate(ctx, language)
		} else {
			var ok bool
			idx, ok, err = p.indexes.Lookup(ctx, language)
			if err == nil && !ok {
				return nil
			}
		}
		if err != nil {
			return err
		}

		wrote = true
		err = fn(idx)
		if !errors.Is(err, storage.ErrStorageClosed) {
			return err
		}
		p.logger.Debug("index handle closed during write, resolving again", "language", language)
	}
	return core.StorageError(err, "write %s index", language)
}

// Release releases the worker pool.
// The pipeline should not be used for batches after calling Release.
func (p *Pipeline) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return
	}
	p.released = true
	if p.pool != nil {
		p.pool.Release()
	}
}
