package search

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/famhp/olrs/analysis"
	"github.com/famhp/olrs/core"
	"github.com/famhp/olrs/metrics"
	"github.com/famhp/olrs/query"
	"github.com/famhp/olrs/storage"
	"golang.org/x/sync/errgroup"
)

// fuzzyMaxDist is the edit distance allowed by FUZZY queries.
const fuzzyMaxDist = 1

// Indexes resolves language indexes for reading. *index.Registry implements it.
type Indexes interface {
	// Lookup returns the index of language if one is present, without creating it.
	Lookup(ctx context.Context, language string) (storage.LanguageIndex, bool, error)

	// Languages returns every present language in sorted order.
	Languages() ([]string, error)
}

// SynonymSource supplies synonyms for query expansion. *synonym.Store implements it.
type SynonymSource interface {
	Get(word string) []string
}

// Result is the merged outcome of a search.
type Result struct {
	Hits         []core.Hit
	MatchedTerms []string
}

// Searcher runs mode-specific queries over one or every language index.
type Searcher struct {
	indexes     Indexes
	synonyms    SynonymSource
	metrics     *metrics.Metrics
	ngram       analysis.NGram
	maxParallel int
	logger      *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMetrics records search activity on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Searcher) error {
		s.metrics = m
		return nil
	}
}

// WithSynonyms expands query words with their single-word synonyms.
func WithSynonyms(src SynonymSource) Option {
	return func(s *Searcher) error {
		s.synonyms = src
		return nil
	}
}

// WithMaxParallel caps how many language indexes are searched at once.
// Default is 4.
func WithMaxParallel(n int) Option {
	return func(s *Searcher) error {
		if n < 1 {
			return ErrInvalidMaxParallel
		}
		s.maxParallel = n
		return nil
	}
}

// WithNGram sets the n-gram bounds used to build PARTIAL queries. They must
// match the bounds the indexes were built with.
func WithNGram(min, max int) Option {
	return func(s *Searcher) error {
		s.ngram = analysis.NewNGram(min, max)
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(indexes Indexes, opts ...Option) (*Searcher, error) {
	if indexes == nil {
		return nil, ErrIndexesRequired
	}

	s := &Searcher{
		indexes:     indexes,
		ngram:       analysis.NewNGram(analysis.DefaultNGramMin, analysis.DefaultNGramMax),
		maxParallel: 4,
		logger:      slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search runs text against language, or every present language when language
// is core.AllLanguages, and returns hits ordered by descending score. Each
// language contributes at most limit hits.
func (s *Searcher) Search(ctx context.Context, text, language string, mode core.Mode, limit int) (*Result, error) {
	return s.SearchWithMonitor(ctx, text, language, mode, limit, nil)
}

// SearchWithMonitor is Search with callbacks at each stage.
func (s *Searcher) SearchWithMonitor(ctx context.Context, text, language string, mode core.Mode, limit int, monitor SearchMonitor) (*Result, error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	if !mode.Valid() {
		return nil, core.InvalidArgumentf("unknown mode %d", int(mode))
	}
	if limit <= 0 {
		return nil, core.InvalidArgumentf("limit must be positive, got %d", limit)
	}
	language = core.NormalizeLanguage(language)
	if err := core.ValidateLanguageSelector(language); err != nil {
		return nil, err
	}

	start := time.Now()
	monitor.Start(text, language, mode)

	result, err := s.search(ctx, text, language, mode, limit, monitor)
	hits := 0
	if result != nil {
		hits = len(result.Hits)
	}
	s.metrics.Search(mode.String(), hits, time.Since(start), err)
	if err != nil {
		s.logger.Error("error searching", "query", text, "language", language, "mode", mode, "err", err)
		return nil, err
	}

	s.logger.Debug("search complete", "query", text, "language", language, "mode", mode, "hits", hits, "elapsed", time.Since(start))
	monitor.Finish(result)
	return result, nil
}

func (s *Searcher) search(ctx context.Context, text, language string, mode core.Mode, limit int, monitor SearchMonitor) (*Result, error) {
	words := queryWords(text)
	if len(words) == 0 {
		return &Result{}, nil
	}

	languages, err := s.targets(language)
	if err != nil {
		return nil, err
	}
	if len(languages) == 0 {
		return &Result{}, nil
	}

	q := s.build(words, mode)
	monitor.QueryBuilt(mode, q)
	result, err := s.execute(ctx, q, languages, limit, monitor)
	if err != nil {
		return nil, err
	}

	if mode == core.ModePartial && len(result.Hits) == 0 {
		monitor.Fallback(core.ModePartial, core.ModeFuzzy)
		s.metrics.Fallback()
		s.logger.Debug("partial search found nothing, retrying as fuzzy", "query", text)

		q = s.build(words, core.ModeFuzzy)
		monitor.QueryBuilt(core.ModeFuzzy, q)
		return s.execute(ctx, q, languages, limit, monitor)
	}
	return result, nil
}

// targets resolves the language selector to the indexes that are present.
func (s *Searcher) targets(language string) ([]string, error) {
	if language != core.AllLanguages {
		return []string{language}, nil
	}
	return s.indexes.Languages()
}

// execute runs q on every language concurrently and merges the outcomes in
// language order.
func (s *Searcher) execute(ctx context.Context, q query.Query, languages []string, limit int, monitor SearchMonitor) (*Result, error) {
	result := &Result{}
	if query.IsEmpty(q) {
		return result, nil
	}

	outcomes := make([]*storage.SearchResult, len(languages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxParallel)
	for i, language := range languages {
		g.Go(func() error {
			res, err := s.searchLanguage(gctx, q, language, limit)
			if err != nil {
				return err
			}
			outcomes[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	matched := make(map[string]struct{})
	for i, res := range outcomes {
		if res == nil {
			monitor.LanguageSearched(languages[i], 0)
			continue
		}
		monitor.LanguageSearched(languages[i], len(res.Hits))
		result.Hits = append(result.Hits, res.Hits...)
		for _, term := range res.MatchedTerms {
			matched[term] = struct{}{}
		}
	}

	// Stable so equal scores keep language order.
	slices.SortStableFunc(result.Hits, func(a, b core.Hit) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	result.MatchedTerms = make([]string, 0, len(matched))
	for term := range matched {
		result.MatchedTerms = append(result.MatchedTerms, term)
	}
	slices.Sort(result.MatchedTerms)
	return result, nil
}

// searchLanguage returns nil when language has no index.
func (s *Searcher) searchLanguage(ctx context.Context, q query.Query, language string, limit int) (*storage.SearchResult, error) {
	idx, ok, err := s.indexes.Lookup(ctx, language)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	res, err := idx.Search(ctx, q, limit)
	if errors.Is(err, storage.ErrStorageClosed) {
		// Cleared while the search was starting.
		return nil, nil
	}
	return res, err
}

// build turns normalized query words into the query tree of mode.
func (s *Searcher) build(words []string, mode core.Mode) query.Query {
	switch mode {
	case core.ModeWhole:
		return s.buildWhole(words)
	case core.ModeFuzzy:
		return s.buildFuzzy(words)
	default:
		return s.buildPartial(words)
	}
}

func (s *Searcher) buildPartial(words []string) query.Query {
	var clauses []query.Query
	for _, word := range words {
		for _, alt := range s.alternatives(word) {
			if c := s.partialClause(alt); c != nil {
				clauses = append(clauses, c)
			}
		}
	}
	return query.Or{Clauses: clauses}
}

// partialClause matches word as a substring. Words longer than the largest
// gram must contain every covering gram.
func (s *Searcher) partialClause(word string) query.Query {
	n := runeLen(word)
	switch {
	case n < s.ngram.Min:
		return nil
	case n <= s.ngram.Max:
		return query.Term{Field: query.FieldContentPartial, Text: word}
	default:
		grams := s.ngram.Fixed(word)
		clauses := make([]query.Query, len(grams))
		for i, gram := range grams {
			clauses[i] = query.Term{Field: query.FieldContentPartial, Text: gram}
		}
		return query.And{Clauses: clauses}
	}
}

func (s *Searcher) buildWhole(words []string) query.Query {
	var clauses []query.Query
	if len(words) > 1 {
		for _, field := range query.ExactFields {
			clauses = append(clauses, query.Phrase{Field: field, Terms: words})
		}
		return query.Or{Clauses: clauses}
	}

	for _, alt := range s.alternatives(words[0]) {
		for _, field := range query.ExactFields {
			clauses = append(clauses, query.Term{Field: field, Text: alt})
		}
	}
	return query.Or{Clauses: clauses}
}

func (s *Searcher) buildFuzzy(words []string) query.Query {
	var clauses []query.Query
	for _, word := range words {
		for _, alt := range s.alternatives(word) {
			for _, field := range query.ExactFields {
				clauses = append(clauses, query.Fuzzy{Field: field, Text: alt, MaxDist: fuzzyMaxDist})
			}
		}
	}
	return query.Or{Clauses: clauses}
}

// alternatives returns word followed by its distinct single-word synonyms.
func (s *Searcher) alternatives(word string) []string {
	alts := []string{word}
	if s.synonyms == nil {
		return alts
	}
	for _, syn := range s.synonyms.Get(word) {
		w, ok := singleWord(syn)
		if ok && !slices.Contains(alts, w) {
			alts = append(alts, w)
		}
	}
	return alts
}
