package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the spatial index service.
type Metrics struct {
	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestErrors   *prometheus.CounterVec

	// Build metrics
	BuildsTotal     prometheus.Counter
	BuildDuration   *prometheus.HistogramVec
	IndexSize       *prometheus.GaugeVec
	IndexDepth      *prometheus.GaugeVec

	// Query metrics (kNN and join)
	KNNQueriesTotal      prometheus.Counter
	KNNQueryLatency      prometheus.Histogram
	KNNCandidatesScanned prometheus.Histogram
	KNNResultSize        prometheus.Histogram
	JoinRowsTotal        prometheus.Counter
	JoinDuration         prometheus.Histogram

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	CacheSize   prometheus.Gauge

	// Registry metrics
	IndexesTotal prometheus.Gauge

	// System metrics
	GoroutinesCount prometheus.Gauge
	MemoryUsage     prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geoindex_requests_total",
				Help: "Total number of requests by method and status",
			},
			[]string{"method", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "geoindex_request_duration_seconds",
				Help:    "Request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),
		RequestErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geoindex_request_errors_total",
				Help: "Total number of request errors by method and error type",
			},
			[]string{"method", "error_type"},
		),

		BuildsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "geoindex_builds_total",
				Help: "Total number of BVH index builds",
			},
		),
		BuildDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "geoindex_build_duration_seconds",
				Help:    "Index build duration in seconds by index name",
				Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 120},
			},
			[]string{"index"},
		),
		IndexSize: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "geoindex_index_size",
				Help: "Number of shapes in index by index name",
			},
			[]string{"index"},
		),
		IndexDepth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "geoindex_index_depth",
				Help: "Depth of the BVH tree by index name",
			},
			[]string{"index"},
		),

		KNNQueriesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "geoindex_knn_queries_total",
				Help: "Total number of true-kNN queries served",
			},
		),
		KNNQueryLatency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "geoindex_knn_query_latency_seconds",
				Help:    "true-kNN query latency in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),
		KNNCandidatesScanned: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "geoindex_knn_candidates_scanned",
				Help:    "Number of candidates pulled from the approximate-nearest stream before termination",
				Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
			},
		),
		KNNResultSize: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "geoindex_knn_result_size",
				Help:    "Number of results returned by a true-kNN query",
				Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
			},
		),
		JoinRowsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "geoindex_join_rows_total",
				Help: "Total number of left rows processed by spatial joins",
			},
		),
		JoinDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "geoindex_join_duration_seconds",
				Help:    "Duration of a full spatial join in seconds",
				Buckets: []float64{.001, .01, .1, .5, 1, 5, 10, 30, 60},
			},
		),

		CacheHits: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "geoindex_cache_hits_total",
				Help: "Total number of query cache hits",
			},
		),
		CacheMisses: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "geoindex_cache_misses_total",
				Help: "Total number of query cache misses",
			},
		),
		CacheSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "geoindex_cache_size",
				Help: "Current number of entries in the query cache",
			},
		),

		IndexesTotal: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "geoindex_indexes_total",
				Help: "Total number of named indexes registered",
			},
		),

		GoroutinesCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "geoindex_goroutines",
				Help: "Current number of goroutines",
			},
		),
		MemoryUsage: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "geoindex_memory_bytes",
				Help: "Memory usage in bytes",
			},
		),
	}

	return m
}

// RecordRequest records a request with duration and status.
func (m *Metrics) RecordRequest(method, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, status).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordError records an error.
func (m *Metrics) RecordError(method, errorType string) {
	m.RequestErrors.WithLabelValues(method, errorType).Inc()
}

// RecordBuild records a completed index build.
func (m *Metrics) RecordBuild(index string, size int, depth int, duration time.Duration) {
	m.BuildsTotal.Inc()
	m.BuildDuration.WithLabelValues(index).Observe(duration.Seconds())
	m.IndexSize.WithLabelValues(index).Set(float64(size))
	m.IndexDepth.WithLabelValues(index).Set(float64(depth))
}

// RecordKNNQuery records a completed true-kNN query.
func (m *Metrics) RecordKNNQuery(candidatesScanned, resultSize int, latency time.Duration) {
	m.KNNQueriesTotal.Inc()
	m.KNNQueryLatency.Observe(latency.Seconds())
	m.KNNCandidatesScanned.Observe(float64(candidatesScanned))
	m.KNNResultSize.Observe(float64(resultSize))
}

// RecordJoin records a completed spatial join.
func (m *Metrics) RecordJoin(rows int, duration time.Duration) {
	m.JoinRowsTotal.Add(float64(rows))
	m.JoinDuration.Observe(duration.Seconds())
}

// RecordCacheHit records a query cache hit.
func (m *Metrics) RecordCacheHit() {
	m.CacheHits.Inc()
}

// RecordCacheMiss records a query cache miss.
func (m *Metrics) RecordCacheMiss() {
	m.CacheMisses.Inc()
}

// UpdateCacheSize updates the cache size gauge.
func (m *Metrics) UpdateCacheSize(size int) {
	m.CacheSize.Set(float64(size))
}

// UpdateIndexesTotal updates the registered-index count gauge.
func (m *Metrics) UpdateIndexesTotal(count int) {
	m.IndexesTotal.Set(float64(count))
}

// UpdateGoroutineCount updates the goroutine count gauge.
func (m *Metrics) UpdateGoroutineCount(count int) {
	m.GoroutinesCount.Set(float64(count))
}

// UpdateMemoryUsage updates the memory usage gauge.
func (m *Metrics) UpdateMemoryUsage(bytes uint64) {
	m.MemoryUsage.Set(float64(bytes))
}
