// Package metrics exposes Prometheus instruments for the retrieval service.
//
// All methods are safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nutrirag"

// Search outcomes.
const (
	OutcomeCached   = "cached"
	OutcomeUncached = "uncached"
	OutcomeError    = "error"
)

// Metrics holds the instruments registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	searchesTotal   *prometheus.CounterVec
	searchDuration  prometheus.Histogram
	cacheErrors     *prometheus.CounterVec
	contextsTotal   *prometheus.CounterVec
	chunksIngested  prometheus.Counter
	filesSkipped    prometheus.Counter
	documentsStored prometheus.Gauge
}

// New creates the instruments and registers them with Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.searchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Total number of searches by outcome",
		},
		[]string{"outcome"},
	)
	m.searchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Latency of uncached searches in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
	)
	m.cacheErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_errors_total",
			Help:      "Result cache failures treated as a miss or a skipped write",
		},
		[]string{"op"},
	)
	m.contextsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "context_assemblies_total",
			Help:      "Total number of context assemblies by strategy and status",
		},
		[]string{"motor", "status"},
	)
	m.chunksIngested = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_ingested_total",
			Help:      "Total number of chunks written to the vector index",
		},
	)
	m.filesSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_files_skipped_total",
			Help:      "Corpus files skipped during ingest",
		},
	)
	m.documentsStored = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_chunks",
			Help:      "Number of chunks in the collection at the last stats call",
		},
	)

	m.registry.MustRegister(
		m.searchesTotal,
		m.searchDuration,
		m.cacheErrors,
		m.contextsTotal,
		m.chunksIngested,
		m.filesSkipped,
		m.documentsStored,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveSearch counts a search. Latency is recorded for uncached searches only.
func (m *Metrics) ObserveSearch(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.searchesTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeUncached {
		m.searchDuration.Observe(elapsed.Seconds())
	}
}

// CacheError counts a swallowed cache failure.
func (m *Metrics) CacheError(op string) {
	if m == nil {
		return
	}
	m.cacheErrors.WithLabelValues(op).Inc()
}

// ObserveContext counts a context assembly.
func (m *Metrics) ObserveContext(motor string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.contextsTotal.WithLabelValues(motor, status).Inc()
}

// ChunksIngested adds n written chunks.
func (m *Metrics) ChunksIngested(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.chunksIngested.Add(float64(n))
}

// FileSkipped counts one skipped corpus file.
func (m *Metrics) FileSkipped() {
	if m == nil {
		return
	}
	m.filesSkipped.Inc()
}

// SetIndexChunks records the collection size.
func (m *Metrics) SetIndexChunks(n int) {
	if m == nil {
		return
	}
	m.documentsStored.Set(float64(n))
}
