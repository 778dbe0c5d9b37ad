// Package metrics defines the Prometheus collectors used by the search
// engine and its HTTP surface, and exposes a handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors. A nil *Metrics is valid and
// records nothing, so components can take one unconditionally.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	IndexOperationsTotal *prometheus.CounterVec
	IndexDuration        *prometheus.HistogramVec
	IndexedFiles         prometheus.Gauge
	IndexedSymbols       prometheus.Gauge
	IndexedTerms         prometheus.Gauge
	FileEventsTotal      *prometheus.CounterVec
}

// New creates all collectors and registers them with reg. A nil reg means
// the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codesearch_queries_total",
				Help: "Total search queries by result type (hit, zero_result, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codesearch_query_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "codesearch_query_results",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "codesearch_cache_hits_total",
				Help: "Total number of query cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "codesearch_cache_misses_total",
				Help: "Total number of query cache misses.",
			},
		),
		IndexOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codesearch_index_operations_total",
				Help: "Index mutations by operation (reindex, update, remove) and status.",
			},
			[]string{"op", "status"},
		),
		IndexDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codesearch_index_duration_seconds",
				Help:    "Duration of index mutations in seconds.",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
			},
			[]string{"op"},
		),
		IndexedFiles: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "codesearch_indexed_files",
				Help: "Files currently in the index.",
			},
		),
		IndexedSymbols: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "codesearch_indexed_symbols",
				Help: "Symbols currently in the index.",
			},
		),
		IndexedTerms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "codesearch_indexed_terms",
				Help: "Distinct terms currently in the index.",
			},
		),
		FileEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codesearch_file_events_total",
				Help: "File change events applied to the index by source (watcher, kafka) and op.",
			},
			[]string{"source", "op"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.IndexOperationsTotal,
		m.IndexDuration,
		m.IndexedFiles,
		m.IndexedSymbols,
		m.IndexedTerms,
		m.FileEventsTotal,
	)

	return m
}

// ObserveIndex records one index mutation and the index size after it.
func (m *Metrics) ObserveIndex(op string, seconds float64, err error, files, symbols, terms int) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.IndexOperationsTotal.WithLabelValues(op, status).Inc()
	m.IndexDuration.WithLabelValues(op).Observe(seconds)
	if err == nil {
		m.IndexedFiles.Set(float64(files))
		m.IndexedSymbols.Set(float64(symbols))
		m.IndexedTerms.Set(float64(terms))
	}
}

// ObserveSearch records one query.
func (m *Metrics) ObserveSearch(cacheStatus string, seconds float64, results int, err error) {
	if m == nil {
		return
	}
	resultType := "hit"
	switch {
	case err != nil:
		resultType = "error"
	case results == 0:
		resultType = "zero_result"
	}
	m.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	m.SearchLatency.WithLabelValues(cacheStatus).Observe(seconds)
	if err == nil {
		m.SearchResultsCount.Observe(float64(results))
	}
}

// CacheResult counts a query cache lookup.
func (m *Metrics) CacheResult(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.Inc()
	} else {
		m.CacheMissesTotal.Inc()
	}
}

// FileEvent counts a file change applied from source.
func (m *Metrics) FileEvent(source, op string) {
	if m == nil {
		return
	}
	m.FileEventsTotal.WithLabelValues(source, op).Inc()
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor serves the metrics of a specific gatherer.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
