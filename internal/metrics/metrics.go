package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"go-query-cache/internal/model"
)

const namespace = "querycache"

// Metrics holds the query cache collectors. It implements runner.Observer
// and router.RequestObserver.
type Metrics struct {
	// FetchTotal counts fetches by outcome (hit, miss, refresh, fallback, failed).
	FetchTotal *prometheus.CounterVec
	// FetchDuration is the latency of fetches by outcome.
	FetchDuration *prometheus.HistogramVec
	// CacheWriteFailures counts results that could not be persisted.
	CacheWriteFailures prometheus.Counter
	// RequestTotal counts HTTP requests by method, route and status.
	RequestTotal *prometheus.CounterVec
	// RequestDuration is the latency of HTTP requests.
	RequestDuration *prometheus.HistogramVec
}

// New registers the collectors with reg. Use prometheus.DefaultRegisterer
// to expose them through promhttp.Handler.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FetchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_total",
				Help:      "Total number of fetches by outcome",
			},
			[]string{"outcome"},
		),
		FetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Fetch latency in seconds",
				Buckets:   []float64{.005, .05, .25, 1, 5, 30, 120, 600},
			},
			[]string{"outcome"},
		),
		CacheWriteFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_write_failures_total",
				Help:      "Total number of results that could not be written to the cache",
			},
		),
		RequestTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

func (m *Metrics) FetchCompleted(outcome model.Outcome, d time.Duration) {
	m.FetchTotal.WithLabelValues(string(outcome)).Inc()
	m.FetchDuration.WithLabelValues(string(outcome)).Observe(d.Seconds())
}

func (m *Metrics) CacheWriteFailed() {
	m.CacheWriteFailures.Inc()
}

// ObserveRequest records one HTTP request. route is the registered pattern,
// not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.RequestTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
