// Package metrics defines the Prometheus collectors for indexing, search and
// suggestion activity.
//
// Collectors are registered on a caller-supplied prometheus.Registerer, so an
// embedding application decides whether and how they are exported. Every
// recording method is safe to call on a nil *Metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds all Prometheus collectors for the library.
type Metrics struct {
	PagesIndexedTotal   *prometheus.CounterVec
	IndexCommitsTotal   *prometheus.CounterVec
	SearchQueriesTotal  *prometheus.CounterVec
	SearchFallbacks     prometheus.Counter
	SearchDuration      *prometheus.HistogramVec
	SearchResultsCount  *prometheus.HistogramVec
	SuggestRequestTotal *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
// A nil reg gets a private registry.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		PagesIndexedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "olrs_pages_indexed_total",
				Help: "Total page entries indexed by language.",
			},
			[]string{"language"},
		),
		IndexCommitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "olrs_index_commits_total",
				Help: "Total language index commits by language and status.",
			},
			[]string{"language", "status"},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "olrs_search_queries_total",
				Help: "Total search queries by mode and status.",
			},
			[]string{"mode", "status"},
		),
		SearchFallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "olrs_search_fallbacks_total",
				Help: "Total partial searches re-run as fuzzy after returning nothing.",
			},
		),
		SearchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "olrs_search_duration_seconds",
				Help:    "Search latency in seconds by requested mode.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"mode"},
		),
		SearchResultsCount: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "olrs_search_results_count",
				Help:    "Number of hits returned per search.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
			[]string{"mode"},
		),
		SuggestRequestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "olrs_suggest_requests_total",
				Help: "Total suggestion requests by kind (prefix, fuzzy, combined).",
			},
			[]string{"kind"},
		),
	}

	collectors := []prometheus.Collector{
		m.PagesIndexedTotal,
		m.IndexCommitsTotal,
		m.SearchQueriesTotal,
		m.SearchFallbacks,
		m.SearchDuration,
		m.SearchResultsCount,
		m.SuggestRequestTotal,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// PageIndexed records one indexed page entry.
func (m *Metrics) PageIndexed(language string) {
	if m == nil {
		return
	}
	m.PagesIndexedTotal.WithLabelValues(language).Inc()
}

// Commit records a language index commit.
func (m *Metrics) Commit(language string, err error) {
	if m == nil {
		return
	}
	m.IndexCommitsTotal.WithLabelValues(language, status(err)).Inc()
}

// Search records one search request.
func (m *Metrics) Search(mode string, hits int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.SearchQueriesTotal.WithLabelValues(mode, status(err)).Inc()
	m.SearchDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	if err == nil {
		m.SearchResultsCount.WithLabelValues(mode).Observe(float64(hits))
	}
}

// Fallback records a partial search re-run as fuzzy.
func (m *Metrics) Fallback() {
	if m == nil {
		return
	}
	m.SearchFallbacks.Inc()
}

// Suggest records a suggestion request of the given kind.
func (m *Metrics) Suggest(kind string) {
	if m == nil {
		return
	}
	m.SuggestRequestTotal.WithLabelValues(kind).Inc()
}

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}
