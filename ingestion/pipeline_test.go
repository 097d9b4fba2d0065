package ingestion

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/famhp/olrs/core"
	"github.com/famhp/olrs/index"
	"github.com/famhp/olrs/metrics"
	"github.com/famhp/olrs/query"
	"github.com/famhp/olrs/storage"
	"github.com/famhp/olrs/storage/badger"
	"github.com/famhp/olrs/suggest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) *index.Registry {
	t.Helper()
	registry, err := index.NewRegistry(badger.NewMemoryProvider())
	require.NoError(t, err)
	t.Cleanup(func() { registry.Close() })
	return registry
}

func newPipeline(t *testing.T, indexes Indexes, opts ...Option) *Pipeline {
	t.Helper()
	p, err := NewPipeline(indexes, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func count(t *testing.T, registry *index.Registry, language string) int {
	t.Helper()
	idx, ok, err := registry.Lookup(context.Background(), language)
	require.NoError(t, err)
	if !ok {
		return 0
	}
	n, err := idx.Count(context.Background())
	require.NoError(t, err)
	return n
}

func page(docID, path, language string, number int, text string) *core.PageEntry {
	return &core.PageEntry{DocID: docID, Path: path, Language: language, Page: number, Text: text}
}

func TestNewPipeline(t *testing.T) {
	t.Run("requires indexes", func(t *testing.T) {
		_, err := NewPipeline(nil)
		assert.Equal(t, ErrIndexesRequired, err)
	})

	t.Run("rejects invalid retries", func(t *testing.T) {
		_, err := NewPipeline(newRegistry(t), WithMaxRetries(0))
		assert.Equal(t, ErrInvalidMaxAttempts, err)
	})

	t.Run("rejects negative delay", func(t *testing.T) {
		_, err := NewPipeline(newRegistry(t), WithRetryDelay(-1))
		assert.True(t, errors.Is(err, core.ErrInvalidArgument))
	})

	t.Run("with options", func(t *testing.T) {
		p := newPipeline(t, newRegistry(t), WithPoolSize(2), WithLogger(nil))
		assert.Equal(t, 2, p.pool.Cap())
		assert.NotNil(t, p.logger)
	})
}

func TestPipeline_AddPage(t *testing.T) {
	ctx := context.Background()
	registry := newRegistry(t)
	p := newPipeline(t, registry)

	entry := page("D1", "docs/a.pdf", "EN", 1, "The court ruled.")
	require.NoError(t, p.AddPage(ctx, entry))
	assert.Equal(t, "EN", entry.Language, "caller's entry is not modified")
	assert.Equal(t, 1, count(t, registry, "en"))

	t.Run("re-adding the same page upserts", func(t *testing.T) {
		require.NoError(t, p.AddPage(ctx, page("D1", "docs/a.pdf", "en", 1, "Updated text.")))
		assert.Equal(t, 1, count(t, registry, "en"))

		idx, _, err := registry.Lookup(ctx, "en")
		require.NoError(t, err)
		res, err := idx.Search(ctx, query.Term{Field: query.FieldContentExact, Text: "updated"}, 10)
		require.NoError(t, err)
		assert.Len(t, res.Hits, 1)
	})

	t.Run("invalid entries do no work", func(t *testing.T) {
		err := p.AddPage(ctx, page("D2", "docs/b.pdf", "en", 0, "x"))
		assert.True(t, errors.Is(err, core.ErrInvalidArgument))
		err = p.AddPage(ctx, page("D2", "docs/b.pdf", "all", 1, "x"))
		assert.True(t, errors.Is(err, core.ErrInvalidArgument))
		err = p.AddPage(ctx, nil)
		assert.True(t, errors.Is(err, core.ErrInvalidArgument))
		assert.Equal(t, 1, count(t, registry, "en"))
	})

	t.Run("canceled context", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		err := p.AddPage(canceled, page("D3", "c.pdf", "en", 1, "x"))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestPipeline_AddPageFeedsSuggestions(t *testing.T) {
	ctx := context.Background()
	engine, err := suggest.NewEngine(badger.NewMemoryTermProvider())
	require.NoError(t, err)
	defer engine.Close()

	p := newPipeline(t, newRegistry(t), WithSuggest(engine))
	require.NoError(t, p.AddPage(ctx, page("D1", "a.pdf", "en", 1, "The courts ruled.")))

	got, err := engine.PrefixSuggest(ctx, "en", "cour", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "court", got[0].Term)
}

func TestPipeline_Metrics(t *testing.T) {
	ctx := context.Background()
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)
	p := newPipeline(t, newRegistry(t), WithMetrics(m))

	require.NoError(t, p.AddPage(ctx, page("D1", "a.pdf", "fr", 1, "la cour")))
	require.NoError(t, p.AddPage(ctx, page("D1", "a.pdf", "fr", 2, "le juge")))
	require.NoError(t, p.DeleteDocument(ctx, "D1", "fr"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PagesIndexedTotal.WithLabelValues("fr")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.IndexCommitsTotal.WithLabelValues("fr", metrics.StatusOK)))
}

func TestPipeline_DeleteDocument(t *testing.T) {
	ctx := context.Background()
	registry := newRegistry(t)
	p := newPipeline(t, registry)

	require.NoError(t, p.AddPage(ctx, page("A1", "a1.pdf", "en", 1, "alpha")))
	require.NoError(t, p.AddPage(ctx, page("A1", "a1.pdf", "en", 2, "beta")))
	require.NoError(t, p.AddPage(ctx, page("A10", "a10.pdf", "en", 1, "gamma")))

	require.NoError(t, p.DeleteDocument(ctx, "A1", "en"))
	assert.Equal(t, 1, count(t, registry, "en"))

	t.Run("missing language is a no-op", func(t *testing.T) {
		require.NoError(t, p.DeleteDocument(ctx, "A1", "de"))
		languages, err := registry.Languages()
		require.NoError(t, err)
		assert.Equal(t, []string{"en"}, languages)
	})

	t.Run("empty doc id", func(t *testing.T) {
		err := p.DeleteDocument(ctx, "", "en")
		assert.True(t, errors.Is(err, core.ErrInvalidArgument))
	})

	t.Run("doc id with separator", func(t *testing.T) {
		err := p.AddPage(ctx, page("A10#x", "x.pdf", "en", 1, "gamma"))
		assert.True(t, errors.Is(err, core.ErrDocIDSeparator))
		err = p.DeleteDocument(ctx, "A10#x", "en")
		assert.True(t, errors.Is(err, core.ErrDocIDSeparator))
		assert.Equal(t, 1, count(t, registry, "en"))
	})
}

func TestPipeline_DeleteByPath(t *testing.T) {
	ctx := context.Background()
	registry := newRegistry(t)
	p := newPipeline(t, registry)

	require.NoError(t, p.AddPage(ctx, page("D1", "shared.pdf", "en", 1, "court")))
	require.NoError(t, p.AddPage(ctx, page("D2", "shared.pdf", "nl", 1, "rechtbank")))
	require.NoError(t, p.AddPage(ctx, page("D3", "other.pdf", "nl", 1, "rechter")))

	require.NoError(t, p.DeleteByPath(ctx, "shared.pdf"))
	assert.Zero(t, count(t, registry, "en"))
	assert.Equal(t, 1, count(t, registry, "nl"))

	err := p.DeleteByPath(ctx, "  ")
	assert.True(t, errors.Is(err, core.ErrInvalidArgument))
}

func TestPipeline_ClearIndex(t *testing.T) {
	ctx := context.Background()
	registry := newRegistry(t)
	p := newPipeline(t, registry)

	require.NoError(t, p.AddPage(ctx, page("D1", "a.pdf", "en", 1, "court")))
	require.NoError(t, p.AddPage(ctx, page("D2", "b.pdf", "de", 1, "gericht")))

	require.NoError(t, p.ClearIndex(ctx, core.AllLanguages))
	assert.Zero(t, count(t, registry, "en"))
	assert.Zero(t, count(t, registry, "de"))

	require.NoError(t, p.AddPage(ctx, page("D1", "a.pdf", "en", 1, "court")))
	assert.Equal(t, 1, count(t, registry, "en"))
}

// staleIndexes hands out a closed handle on the first GetOrCreate, as happens
// when a clear races a write.
type staleIndexes struct {
	*index.Registry
	stale storage.LanguageIndex
	calls int
}

func (s *staleIndexes) GetOrCreate(ctx context.Context, language string) (storage.LanguageIndex, error) {
	s.calls++
	if s.calls == 1 {
		return s.stale, nil
	}
	return s.Registry.GetOrCreate(ctx, language)
}

func TestPipeline_ResolvesClosedHandle(t *testing.T) {
	ctx := context.Background()
	registry := newRegistry(t)

	stale, err := badger.NewMemoryProvider().Open("en")
	require.NoError(t, err)
	require.NoError(t, stale.Close())

	indexes := &staleIndexes{Registry: registry, stale: stale}
	p := newPipeline(t, indexes)

	require.NoError(t, p.AddPage(ctx, page("D1", "a.pdf", "en", 1, "court")))
	assert.Equal(t, 2, indexes.calls)
	assert.Equal(t, 1, count(t, registry, "en"))
}

func TestPipeline_ConcurrentAddPage(t *testing.T) {
	ctx := context.Background()

	t.Run("same language", func(t *testing.T) {
		registry := newRegistry(t)
		p := newPipeline(t, registry)

		const n = 40
		var wg sync.WaitGroup
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, p.AddPage(ctx, page(fmt.Sprintf("D%d", i), "a.pdf", "en", 1, "The court ruled.")))
			}()
		}
		wg.Wait()
		assert.Equal(t, n, count(t, registry, "en"))
	})

	t.Run("different languages", func(t *testing.T) {
		registry := newRegistry(t)
		p := newPipeline(t, registry)
		languages := []string{"en", "fr", "de", "sv"}

		const perLanguage = 10
		var wg sync.WaitGroup
		for _, language := range languages {
			for i := range perLanguage {
				wg.Add(1)
				go func() {
					defer wg.Done()
					assert.NoError(t, p.AddPage(ctx, page("D1", "a.pdf", language, i+1, "text "+language)))
				}()
			}
		}
		wg.Wait()
		for _, language := range languages {
			assert.Equal(t, perLanguage, count(t, registry, language), language)
		}
	})
}

func TestPipeline_ClearRacingWrites(t *testing.T) {
	ctx := context.Background()
	registry := newRegistry(t)
	p := newPipeline(t, registry)

	var wg sync.WaitGroup
	for w := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 10 {
				assert.NoError(t, p.AddPage(ctx, page(fmt.Sprintf("W%d", w), "a.pdf", "en", i+1, "court")))
			}
		}()
	}
	for range 5 {
		assert.NoError(t, p.ClearIndex(ctx, "en"))
	}
	wg.Wait()

	require.NoError(t, p.AddPage(ctx, page("last", "b.pdf", "en", 1, "court")))
	assert.Positive(t, count(t, registry, "en"))
}
