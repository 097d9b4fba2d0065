package search

import (
	"context"
	"log/slog"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/famhp/olrs/core"
	"github.com/famhp/olrs/index"
	"github.com/famhp/olrs/metrics"
	"github.com/famhp/olrs/query"
	"github.com/famhp/olrs/storage/badger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type synonymMap map[string][]string

func (m synonymMap) Get(word string) []string { return m[word] }

// recordingMonitor captures monitor callbacks for assertions.
type recordingMonitor struct {
	started   bool
	queries   []core.Mode
	languages []string
	fallbacks int
	finished  *Result
}

func (m *recordingMonitor) Start(_, _ string, _ core.Mode) { m.started = true }
func (m *recordingMonitor) QueryBuilt(mode core.Mode, _ query.Query) {
	m.queries = append(m.queries, mode)
}
func (m *recordingMonitor) LanguageSearched(language string, _ int) {
	m.languages = append(m.languages, language)
}
func (m *recordingMonitor) Fallback(_, _ core.Mode) { m.fallbacks++ }
func (m *recordingMonitor) Finish(result *Result)   { m.finished = result }

func newRegistry(t *testing.T) *index.Registry {
	t.Helper()
	registry, err := index.NewRegistry(badger.NewMemoryProvider())
	require.NoError(t, err)
	t.Cleanup(func() { registry.Close() })
	return registry
}

func addPage(t *testing.T, registry *index.Registry, entry core.PageEntry) {
	t.Helper()
	ctx := context.Background()
	idx, err := registry.GetOrCreate(ctx, entry.Language)
	require.NoError(t, err)
	require.NoError(t, idx.IndexDocument(ctx, &entry))
	require.NoError(t, idx.Commit(ctx))
}

func TestNewSearcher(t *testing.T) {
	registry := newRegistry(t)

	t.Run("valid configuration", func(t *testing.T) {
		searcher, err := NewSearcher(registry)
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		searcher, err := NewSearcher(registry, WithLogger(nil))
		require.NoError(t, err)
		assert.Equal(t, slog.Default(), searcher.logger)
	})

	t.Run("nil index source", func(t *testing.T) {
		_, err := NewSearcher(nil)
		assert.Equal(t, ErrIndexesRequired, err)
	})

	t.Run("invalid max parallel", func(t *testing.T) {
		_, err := NewSearcher(registry, WithMaxParallel(0))
		assert.Equal(t, ErrInvalidMaxParallel, err)
	})
}

func TestSearch_ExampleScenario(t *testing.T) {
	ctx := context.Background()
	registry := newRegistry(t)
	addPage(t, registry, core.PageEntry{
		DocID:    "A1",
		Path:     "rulings/a1.pdf",
		Language: "en",
		Page:     3,
		Text:     "Constitutional Court ruling on Article 12",
	})

	searcher, err := NewSearcher(registry)
	require.NoError(t, err)

	tests := []struct {
		name    string
		text    string
		mode    core.Mode
		wantHit bool
		terms   []string
	}{
		{name: "partial substring", text: "stitu", mode: core.ModePartial, wantHit: true, terms: []string{"stitu"}},
		{name: "whole phrase", text: "Article 12", mode: core.ModeWhole, wantHit: true, terms: []string{"12", "article"}},
		{name: "fuzzy", text: "Consttutional", mode: core.ModeFuzzy, wantHit: true, terms: []string{"constitutional"}},
		{name: "partial with empty fallback", text: "xyz", mode: core.ModePartial, wantHit: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := searcher.Search(ctx, tt.text, "en", tt.mode, 10)
			require.NoError(t, err)
			if !tt.wantHit {
				assert.Empty(t, result.Hits)
				assert.Empty(t, result.MatchedTerms)
				return
			}
			require.Len(t, result.Hits, 1)
			hit := result.Hits[0]
			assert.Equal(t, "A1", hit.DocID)
			assert.Equal(t, 3, hit.Page)
			assert.Equal(t, "en", hit.Language)
			assert.Greater(t, hit.Score, 0.0)
			assert.Equal(t, tt.terms, result.MatchedTerms)
		})
	}
}

func TestSearch_WholePhraseOrderMatters(t *testing.T) {
	ctx := context.Background()
	registry := newRegistry(t)
	addPage(t, registry, core.PageEntry{DocID: "A1", Path: "a.pdf", Language: "en", Page: 1, Text: "the supreme court decided"})

	searcher, err := NewSearcher(registry)
	require.NoError(t, err)

	result, err := searcher.Search(ctx, "supreme court", "en", core.ModeWhole, 10)
	require.NoError(t, err)
	assert.Len(t, result.Hits, 1)

	result, err = searcher.Search(ctx, "court supreme", "en", core.ModeWhole, 10)
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
}

func TestSearch_FuzzyBoundary(t *testing.T) {
	ctx := context.Background()
	registry := newRegistry(t)
	addPage(t, registry, core.PageEntry{DocID: "A1", Path: "a.pdf", Language: "en", Page: 1, Text: "tribunal"})

	searcher, err := NewSearcher(registry)
	require.NoError(t, err)

	result, err := searcher.Search(ctx, "tribunel", "en", core.ModeFuzzy, 10)
	require.NoError(t, err)
	assert.Len(t, result.Hits, 1)

	result, err = searcher.Search(ctx, "trebunel", "en", core.ModeFuzzy, 10)
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
}

func TestSearch_PartialFallsBackToFuzzy(t *testing.T) {
	ctx := context.Background()
	registry := newRegistry(t)
	addPage(t, registry, core.PageEntry{DocID: "A1", Path: "a.pdf", Language: "en", Page: 2, Text: "constitutional"})

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)
	searcher, err := NewSearcher(registry, WithMetrics(m))
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	result, err := searcher.SearchWithMonitor(ctx, "konstitutional", "en", core.ModePartial, 10, monitor)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, []string{"constitutional"}, result.MatchedTerms)

	assert.True(t, monitor.started)
	assert.Equal(t, 1, monitor.fallbacks)
	assert.Equal(t, []core.Mode{core.ModePartial, core.ModeFuzzy}, monitor.queries)
	assert.Same(t, result, monitor.finished)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchFallbacks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("partial", metrics.StatusOK)))
}

func TestSearch_WholeNeverFallsBack(t *testing.T) {
	ctx := context.Background()
	registry := newRegistry(t)
	addPage(t, registry, core.PageEntry{DocID: "A1", Path: "a.pdf", Language: "en", Page: 1, Text: "constitutional"})

	searcher, err := NewSearcher(registry)
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	result, err := searcher.SearchWithMonitor(ctx, "konstitutional", "en", core.ModeWhole, 10, monitor)
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
	assert.Zero(t, monitor.fallbacks)
}

func TestSearch_PartialLongWord(t *testing.T) {
	ctx := context.Background()
	registry := newRegistry(t)
	addPage(t, registry, core.PageEntry{DocID: "A1", Path: "a.pdf", Language: "de", Page: 1, Text: "Rechtsschutzversicherungsgesellschaften"})
	addPage(t, registry, core.PageEntry{DocID: "B1", Path: "b.pdf", Language: "de", Page: 1, Text: "Rechtsschutzversicherung"})

	searcher, err := NewSearcher(registry)
	require.NoError(t, err)

	result, err := searcher.Search(ctx, "schutzversicherungsgesellschaft", "de", core.ModePartial, 10)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "A1", result.Hits[0].DocID)
}

func TestSearch_PartialOrsWords(t *testing.T) {
	ctx := context.Background()
	registry := newRegistry(t)
	addPage(t, registry, core.PageEntry{DocID: "A1", Path: "a.pdf", Language: "en", Page: 1, Text: "maritime law"})
	addPage(t, registry, core.PageEntry{DocID: "B1", Path: "b.pdf", Language: "en", Page: 1, Text: "aviation treaty"})

	searcher, err := NewSearcher(registry)
	require.NoError(t, err)

	result, err := searcher.Search(ctx, "ritim viat", "en", core.ModePartial, 10)
	require.NoError(t, err)
	assert.Len(t, result.Hits, 2)
}

func TestSearch_AllLanguages(t *testing.T) {
	ctx := context.Background()
	registry := newRegistry(t)
	addPage(t, registry, core.PageEntry{DocID: "F1", Path: "f.pdf", Language: "fr", Page: 1, Text: "alpha"})
	addPage(t, registry, core.PageEntry{DocID: "E1", Path: "e.pdf", Language: "en", Page: 1, Text: "alpha"})

	searcher, err := NewSearcher(registry, WithMaxParallel(1))
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	result, err := searcher.SearchWithMonitor(ctx, "alpha", core.AllLanguages, core.ModeWhole, 10, monitor)
	require.NoError(t, err)
	require.Len(t, result.Hits, 2)

	// Equal scores keep language order.
	assert.Equal(t, result.Hits[0].Score, result.Hits[1].Score)
	assert.Equal(t, "en", result.Hits[0].Language)
	assert.Equal(t, "fr", result.Hits[1].Language)
	assert.Equal(t, []string{"en", "fr"}, monitor.languages)
}

func TestSearch_LimitAppliesPerLanguage(t *testing.T) {
	ctx := context.Background()
	registry := newRegistry(t)
	for _, lang := range []string{"en", "fr"} {
		for _, doc := range []string{"A", "B", "C"} {
			addPage(t, registry, core.PageEntry{DocID: doc, Path: doc + ".pdf", Language: lang, Page: 1, Text: "shared"})
		}
	}

	searcher, err := NewSearcher(registry)
	require.NoError(t, err)

	result, err := searcher.Search(ctx, "shared", core.AllLanguages, core.ModeWhole, 2)
	require.NoError(t, err)
	assert.Len(t, result.Hits, 4)
}

func TestSearch_MissingLanguageIsEmpty(t *testing.T) {
	ctx := context.Background()
	registry := newRegistry(t)

	searcher, err := NewSearcher(registry)
	require.NoError(t, err)

	result, err := searcher.Search(ctx, "anything", "sv", core.ModeWhole, 10)
	require.NoError(t, err)
	assert.Empty(t, result.Hits)

	langs, err := registry.Languages()
	require.NoError(t, err)
	assert.Empty(t, langs)
}

func TestSearch_InvalidArguments(t *testing.T) {
	ctx := context.Background()
	registry := newRegistry(t)
	searcher, err := NewSearcher(registry)
	require.NoError(t, err)

	tests := []struct {
		name     string
		language string
		mode     core.Mode
		limit    int
	}{
		{name: "unknown mode", language: "en", mode: core.Mode(42), limit: 10},
		{name: "zero mode", language: "en", mode: 0, limit: 10},
		{name: "zero limit", language: "en", mode: core.ModeWhole, limit: 0},
		{name: "bad language", language: "e/n", mode: core.ModeWhole, limit: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := searcher.Search(ctx, "x", tt.language, tt.mode, tt.limit)
			assert.True(t, errors.Is(err, core.ErrInvalidArgument))
		})
	}
}

func TestSearch_BlankQuery(t *testing.T) {
	registry := newRegistry(t)
	searcher, err := NewSearcher(registry)
	require.NoError(t, err)

	result, err := searcher.Search(context.Background(), "  ... ", "en", core.ModePartial, 10)
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
}

func TestSearch_SynonymExpansion(t *testing.T) {
	ctx := context.Background()
	registry := newRegistry(t)
	addPage(t, registry, core.PageEntry{DocID: "A1", Path: "a.pdf", Language: "en", Page: 1, Text: "the tribunal decided"})

	synonyms := synonymMap{"court": {"tribunal", "high court"}}

	plain, err := NewSearcher(registry)
	require.NoError(t, err)
	result, err := plain.Search(ctx, "court", "en", core.ModeWhole, 10)
	require.NoError(t, err)
	assert.Empty(t, result.Hits)

	expanded, err := NewSearcher(registry, WithSynonyms(synonyms))
	require.NoError(t, err)
	result, err = expanded.Search(ctx, "court", "en", core.ModeWhole, 10)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, []string{"tribunal"}, result.MatchedTerms)
}

func TestSearch_DeletedPathNeverReturned(t *testing.T) {
	ctx := context.Background()
	registry := newRegistry(t)
	for _, lang := range []string{"en", "fr"} {
		addPage(t, registry, core.PageEntry{DocID: "A1", Path: "shared/a.pdf", Language: lang, Page: 1, Text: "constitution"})
	}

	for _, lang := range []string{"en", "fr"} {
		idx, err := registry.GetOrCreate(ctx, lang)
		require.NoError(t, err)
		require.NoError(t, idx.DeleteByPath(ctx, "shared/a.pdf"))
		require.NoError(t, idx.Commit(ctx))
	}

	searcher, err := NewSearcher(registry)
	require.NoError(t, err)
	for _, mode := range []core.Mode{core.ModePartial, core.ModeWhole, core.ModeFuzzy} {
		result, err := searcher.Search(ctx, "constitution", core.AllLanguages, mode, 10)
		require.NoError(t, err)
		assert.Empty(t, result.Hits, mode.String())
	}
}

func TestBuild(t *testing.T) {
	searcher, err := NewSearcher(newRegistry(t))
	require.NoError(t, err)

	t.Run("partial drops short words", func(t *testing.T) {
		q := searcher.build([]string{"on", "court"}, core.ModePartial)
		assert.Equal(t, "(content_partial:court)", q.String())
	})

	t.Run("whole single word", func(t *testing.T) {
		q := searcher.build([]string{"court"}, core.ModeWhole)
		assert.Equal(t, "(content_exact:court OR title_exact:court OR section_exact:court)", q.String())
	})

	t.Run("whole phrase", func(t *testing.T) {
		q := searcher.build([]string{"article", "12"}, core.ModeWhole)
		assert.Equal(t, `(content_exact:"article 12" OR title_exact:"article 12" OR section_exact:"article 12")`, q.String())
	})

	t.Run("fuzzy", func(t *testing.T) {
		q := searcher.build([]string{"court"}, core.ModeFuzzy)
		assert.Equal(t, "(content_exact:court~1 OR title_exact:court~1 OR section_exact:court~1)", q.String())
	})
}

func TestQueryWords(t *testing.T) {
	assert.Equal(t, []string{"article", "12"}, queryWords("  Article   12. "))
	assert.Equal(t, []string{"l", "état"}, queryWords("L'État"))
	assert.Empty(t, queryWords(" \t "))
}
