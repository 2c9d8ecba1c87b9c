package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-query-cache/internal/model"
)

// counterValues gathers reg and returns counter values keyed by
// "<metric>{<label values>}".
func counterValues(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	out := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName() + "{"
			for i, lp := range m.GetLabel() {
				if i > 0 {
					key += ","
				}
				key += lp.GetValue()
			}
			key += "}"
			if c := m.GetCounter(); c != nil {
				out[key] = c.GetValue()
			}
			if h := m.GetHistogram(); h != nil {
				out[key+"_count"] = float64(h.GetSampleCount())
			}
		}
	}
	return out
}

func TestFetchMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.FetchCompleted(model.OutcomeMiss, 200*time.Millisecond)
	m.FetchCompleted(model.OutcomeHit, time.Millisecond)
	m.FetchCompleted(model.OutcomeHit, time.Millisecond)
	m.CacheWriteFailed()

	values := counterValues(t, reg)
	assert.Equal(t, 1.0, values["querycache_fetch_total{miss}"])
	assert.Equal(t, 2.0, values["querycache_fetch_total{hit}"])
	assert.Equal(t, 2.0, values["querycache_fetch_duration_seconds{hit}_count"])
	assert.Equal(t, 1.0, values["querycache_cache_write_failures_total{}"])
}

func TestObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRequest("GET", "/api/v1/fetches/*", 200, 5*time.Millisecond)
	m.ObserveRequest("GET", "/api/v1/fetches/*", 404, time.Millisecond)

	values := counterValues(t, reg)
	assert.Equal(t, 1.0, values["querycache_http_requests_total{GET,/api/v1/fetches/*,200}"])
	assert.Equal(t, 1.0, values["querycache_http_requests_total{GET,/api/v1/fetches/*,404}"])
	assert.Equal(t, 2.0, values["querycache_http_request_duration_seconds{GET,/api/v1/fetches/*}_count"])
}

func TestNewPanicsOnDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
