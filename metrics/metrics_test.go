package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.PageIndexed("en")
	m.PageIndexed("en")
	m.PageIndexed("fr")
	m.Commit("en", nil)
	m.Commit("en", errors.New("boom"))
	m.Search("partial", 3, 5*time.Millisecond, nil)
	m.Search("whole", 0, time.Millisecond, errors.New("boom"))
	m.Fallback()
	m.Suggest("combined")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PagesIndexedTotal.WithLabelValues("en")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PagesIndexedTotal.WithLabelValues("fr")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexCommitsTotal.WithLabelValues("en", StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexCommitsTotal.WithLabelValues("en", StatusError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("partial", StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("whole", StatusError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchFallbacks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SuggestRequestTotal.WithLabelValues("combined")))

	count, err := testutil.GatherAndCount(reg, "olrs_search_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}

func TestNew_NilRegisterer(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.PageIndexed("en")
		m.Commit("en", nil)
		m.Search("fuzzy", 1, time.Second, nil)
		m.Fallback()
		m.Suggest("prefix")
	})
}
