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

// Package olrs is an embeddable multi-language full-text index for page-level
// document text, with partial, whole-word and fuzzy matching, suggestions and
// a synonym store.
package olrs

import (
	"context"
	"log/slog"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/famhp/olrs/config"
	"github.com/famhp/olrs/core"
	"github.com/famhp/olrs/extract"
	"github.com/famhp/olrs/index"
	"github.com/famhp/olrs/ingestion"
	"github.com/famhp/olrs/metrics"
	"github.com/famhp/olrs/search"
	"github.com/famhp/olrs/storage"
	"github.com/famhp/olrs/storage/badger"
	"github.com/famhp/olrs/suggest"
	"github.com/famhp/olrs/synonym"
	"github.com/prometheus/client_golang/prometheus"
)

// ErrNoSynonymFile is returned by SaveSynonyms when no synonym file is configured.
var ErrNoSynonymFile = errors.New("no synonym file configured")

// Engine bundles the language indexes, suggestion indexes, synonym store,
// ingestion pipeline and searcher rooted at one directory.
type Engine struct {
	cfg          *config.Config
	registry     *index.Registry
	suggest      *suggest.Engine
	synonyms     *synonym.Store
	synonymsPath string
	pipeline     *ingestion.Pipeline
	searcher     *search.Searcher
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	cfg            *config.Config
	logger         *slog.Logger
	inMemory       *bool
	syncWrites     *bool
	synonymsPath   string
	poolSize       int
	registerer     prometheus.Registerer
	queryExpansion bool
}

// WithConfig uses cfg as the base configuration. Other options and a non-empty
// root passed to Open take precedence.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

// WithLogger sets a custom logger for every component.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithInMemory keeps every index in memory. Nothing is written under root
// except an explicitly configured synonym file.
func WithInMemory(inMemory bool) Option {
	return func(o *options) {
		o.inMemory = &inMemory
	}
}

// WithSyncWrites controls whether commits are fsynced before returning.
func WithSyncWrites(sync bool) Option {
	return func(o *options) {
		o.syncWrites = &sync
	}
}

// WithSynonymsPath sets the synonym file. Default is <root>/synonyms.json.
func WithSynonymsPath(path string) Option {
	return func(o *options) {
		o.synonymsPath = path
	}
}

// WithPoolSize sets the batch ingestion worker count.
func WithPoolSize(size int) Option {
	return func(o *options) {
		o.poolSize = size
	}
}

// WithMetricsRegisterer registers the engine's collectors on reg.
// Default is a private registry.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithQueryExpansion expands search words with their synonyms.
func WithQueryExpansion(enabled bool) Option {
	return func(o *options) {
		o.queryExpansion = enabled
	}
}

// Open opens or creates an engine rooted at root.
func Open(root string, opts ...Option) (*Engine, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	cfg := config.Default()
	if o.cfg != nil {
		c := *o.cfg
		cfg = &c
	}
	if root != "" {
		cfg.IndexRoot = root
	}
	if o.inMemory != nil {
		cfg.InMemory = *o.inMemory
	}
	if o.syncWrites != nil {
		cfg.SyncWrites = *o.syncWrites
	}
	if o.synonymsPath != "" {
		cfg.SynonymsPath = o.synonymsPath
	}
	if o.poolSize > 0 {
		cfg.PoolSize = o.poolSize
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	m, err := metrics.New(o.registerer)
	if err != nil {
		return nil, err
	}

	storeOpts := []badger.Option{
		badger.WithLogger(logger),
		badger.WithSyncWrites(cfg.SyncWrites),
		badger.WithNGram(cfg.NGramMin, cfg.NGramMax),
	}
	var (
		indexProvider storage.IndexProvider
		termProvider  storage.TermProvider
	)
	if cfg.InMemory {
		indexProvider = badger.NewMemoryProvider(storeOpts...)
		termProvider = badger.NewMemoryTermProvider(storeOpts...)
	} else {
		if err := os.MkdirAll(cfg.IndexRoot, 0o755); err != nil {
			return nil, core.StorageError(err, "create index root %s", cfg.IndexRoot)
		}
		indexProvider = badger.NewDiskProvider(cfg.IndexRoot, storeOpts...)
		termProvider = badger.NewDiskTermProvider(cfg.IndexRoot, storeOpts...)
	}

	synonymsPath := cfg.SynonymsPath
	if synonymsPath == "" && !cfg.InMemory {
		synonymsPath = cfg.SynonymsFile()
	}
	var synonyms *synonym.Store
	if synonymsPath != "" {
		synonyms, err = synonym.Open(synonymsPath, synonym.WithLogger(logger))
	} else {
		synonyms, err = synonym.NewStore(synonym.WithLogger(logger))
	}
	if err != nil {
		return nil, err
	}

	registry, err := index.NewRegistry(indexProvider, index.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	suggestEngine, err := suggest.NewEngine(termProvider,
		suggest.WithLogger(logger),
		suggest.WithSynonyms(synonyms),
		suggest.WithMetrics(m),
	)
	if err != nil {
		registry.Close()
		return nil, err
	}

	pipeline, err := ingestion.NewPipeline(registry,
		ingestion.WithLogger(logger),
		ingestion.WithPoolSize(cfg.PoolSize),
		ingestion.WithSuggest(suggestEngine),
		ingestion.WithMetrics(m),
		ingestion.WithMaxRetries(cfg.MaxRetries),
		ingestion.WithRetryDelay(cfg.RetryDelay),
	)
	if err != nil {
		suggestEngine.Close()
		registry.Close()
		return nil, err
	}

	searchOpts := []search.Option{
		search.WithLogger(logger),
		search.WithMetrics(m),
		search.WithNGram(cfg.NGramMin, cfg.NGramMax),
	}
	if o.queryExpansion {
		searchOpts = append(searchOpts, search.WithSynonyms(synonyms))
	}
	searcher, err := search.NewSearcher(registry, searchOpts...)
	if err != nil {
		pipeline.Release()
		suggestEngine.Close()
		registry.Close()
		return nil, err
	}

	logger.Info("opened engine", "root", cfg.IndexRoot, "in_memory", cfg.InMemory)
	return &Engine{
		cfg:          cfg,
		registry:     registry,
		suggest:      suggestEngine,
		synonyms:     synonyms,
		synonymsPath: synonymsPath,
		pipeline:     pipeline,
		searcher:     searcher,
		metrics:      m,
		logger:       logger,
	}, nil
}

// Search runs text in mode against language, or every present language when
// language is "all". A limit of 0 uses the configured default.
func (e *Engine) Search(ctx context.Context, text, language string, mode core.Mode, limit int) (*search.Result, error) {
	if limit == 0 {
		limit = e.cfg.DefaultLimit
	}
	return e.searcher.Search(ctx, text, language, mode, limit)
}

// AddPage indexes one page and commits it.
func (e *Engine) AddPage(ctx context.Context, entry *core.PageEntry) error {
	return e.pipeline.AddPage(ctx, entry)
}

// DeleteDocument removes every page of docID from language.
func (e *Engine) DeleteDocument(ctx context.Context, docID, language string) error {
	return e.pipeline.DeleteDocument(ctx, docID, language)
}

// DeleteByPath removes every page stored with path from every language.
func (e *Engine) DeleteByPath(ctx context.Context, path string) error {
	return e.pipeline.DeleteByPath(ctx, path)
}

// ClearIndex drops the content and suggestion indexes of language, or of
// every language when language is "all".
func (e *Engine) ClearIndex(ctx context.Context, language string) error {
	return errors.CombineErrors(
		e.pipeline.ClearIndex(ctx, language),
		e.suggest.Clear(ctx, language),
	)
}

// IndexSources starts batch ingestion of sources.
func (e *Engine) IndexSources(ctx context.Context, sources []ingestion.Source, extractor extract.Extractor, opts ...ingestion.TaskOption) (*ingestion.Task, error) {
	return e.pipeline.Start(ctx, sources, extractor, opts...)
}

// CombinedSuggest returns prefix, fuzzy and synonym suggestions for text.
func (e *Engine) CombinedSuggest(ctx context.Context, language, text string, limit int) ([]string, error) {
	return e.suggest.CombinedSuggest(ctx, language, text, limit)
}

// LanguageStats describes one present language.
type LanguageStats struct {
	Language     string
	Records      int
	SuggestTerms int
}

// Stats returns record and suggestion term counts for every present language.
func (e *Engine) Stats(ctx context.Context) ([]LanguageStats, error) {
	languages, err := e.registry.Languages()
	if err != nil {
		return nil, err
	}
	stats := make([]LanguageStats, 0, len(languages))
	for _, language := range languages {
		s := LanguageStats{Language: language}
		idx, ok, err := e.registry.Lookup(ctx, language)
		if err != nil {
			return nil, err
		}
		if ok {
			s.Records, err = idx.Count(ctx)
			if err != nil && !errors.Is(err, storage.ErrStorageClosed) {
				return nil, err
			}
		}
		if s.SuggestTerms, err = e.suggest.Count(ctx, language); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, nil
}

// Suggest returns the suggestion engine.
func (e *Engine) Suggest() *suggest.Engine {
	return e.suggest
}

// Synonyms returns the synonym store.
func (e *Engine) Synonyms() *synonym.Store {
	return e.synonyms
}

// Searcher returns the searcher, for callers that attach a search.SearchMonitor.
func (e *Engine) Searcher() *search.Searcher {
	return e.searcher
}

// Metrics returns the engine's collectors.
func (e *Engine) Metrics() *metrics.Metrics {
	return e.metrics
}

// SaveSynonyms writes the synonym store to its file.
func (e *Engine) SaveSynonyms() error {
	if e.synonymsPath == "" {
		return ErrNoSynonymFile
	}
	return e.synonyms.Save(e.synonymsPath)
}

// WatchSynonyms reloads the synonym store whenever its file changes, until
// ctx is done.
func (e *Engine) WatchSynonyms(ctx context.Context) error {
	if e.synonymsPath == "" {
		return ErrNoSynonymFile
	}
	return e.synonyms.Watch(ctx, e.synonymsPath, func(err error) {
		if err != nil {
			e.logger.Warn("error reloading synonyms", "path", e.synonymsPath, "err", err)
		}
	})
}

// Close commits pending writes and releases every index.
func (e *Engine) Close() error {
	e.pipeline.Release()

	var result error
	if err := e.suggest.Close(); err != nil {
		e.logger.Error("error closing suggest engine", "err", err)
		result = errors.CombineErrors(result, err)
	}
	if err := e.registry.Close(); err != nil {
		e.logger.Error("error closing index registry", "err", err)
		result = errors.CombineErrors(result, err)
	}
	return result
}
