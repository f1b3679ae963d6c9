package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Presentation modes recorded by PresentationsTotal
const (
	ModeSingle  = "single"
	ModeBatch   = "batch"
	ModeGrouped = "grouped"
)

// Metrics holds all Prometheus metrics. The Record* helpers accept a nil receiver so
// components can run without metrics.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Resolution metrics
	EntityFetchesTotal  *prometheus.CounterVec
	EntityFetchDuration *prometheus.HistogramVec
	EntityIDsPerFetch   *prometheus.HistogramVec
	ResolveBatchRecords prometheus.Histogram
	PresentationsTotal  *prometheus.CounterVec
	TranslationLookups  *prometheus.CounterVec

	// Storage metrics
	StorageOperationsTotal   *prometheus.CounterVec
	StorageOperationDuration *prometheus.HistogramVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive       prometheus.Gauge
	DBConnectionsIdle         prometheus.Gauge
	DBConnectionsWaitCount    prometheus.Gauge
	DBConnectionsWaitDuration prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activitylens_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "activitylens_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "activitylens_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "activitylens_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),

		// Resolution metrics
		EntityFetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activitylens_entity_fetches_total",
				Help: "Total number of bulk entity fetches",
			},
			[]string{"entity_type", "status"},
		),
		EntityFetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "activitylens_entity_fetch_duration_seconds",
				Help:    "Bulk entity fetch duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"entity_type"},
		),
		EntityIDsPerFetch: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "activitylens_entity_ids_per_fetch",
				Help:    "Number of distinct identifiers requested per bulk fetch",
				Buckets: prometheus.ExponentialBuckets(1, 4, 7),
			},
			[]string{"entity_type"},
		),
		ResolveBatchRecords: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "activitylens_resolve_batch_records",
				Help:    "Number of records per resolution batch",
				Buckets: prometheus.ExponentialBuckets(1, 4, 7),
			},
		),
		PresentationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activitylens_presentations_total",
				Help: "Total number of presentation calls",
			},
			[]string{"mode"},
		),
		TranslationLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activitylens_translation_lookups_total",
				Help: "Total number of translation lookups",
			},
			[]string{"namespace", "result"},
		),

		// Storage metrics
		StorageOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activitylens_storage_operations_total",
				Help: "Total number of storage operations",
			},
			[]string{"operation", "status"},
		),
		StorageOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "activitylens_storage_operation_duration_seconds",
				Help:    "Storage operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		// Cache metrics
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activitylens_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache_type"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activitylens_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache_type"},
		),

		// Database metrics
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "activitylens_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "activitylens_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		DBConnectionsWaitCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "activitylens_db_connections_wait_count",
				Help: "Total number of connections waited for",
			},
		),
		DBConnectionsWaitDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "activitylens_db_connections_wait_duration_seconds",
				Help: "Total time spent waiting for connections",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestSize,
		m.HTTPResponseSize,
		m.EntityFetchesTotal,
		m.EntityFetchDuration,
		m.EntityIDsPerFetch,
		m.ResolveBatchRecords,
		m.PresentationsTotal,
		m.TranslationLookups,
		m.StorageOperationsTotal,
		m.StorageOperationDuration,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.DBConnectionsWaitCount,
		m.DBConnectionsWaitDuration,
	)

	return m
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordFetch records one bulk entity fetch.
func (m *Metrics) RecordFetch(entityType string, ids int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.EntityFetchesTotal.WithLabelValues(entityType, statusLabel(err)).Inc()
	m.EntityFetchDuration.WithLabelValues(entityType).Observe(duration.Seconds())
	m.EntityIDsPerFetch.WithLabelValues(entityType).Observe(float64(ids))
}

// RecordBatch records the size of one resolution batch.
func (m *Metrics) RecordBatch(records int) {
	if m == nil {
		return
	}
	m.ResolveBatchRecords.Observe(float64(records))
}

// RecordPresentation counts one presentation call.
func (m *Metrics) RecordPresentation(mode string) {
	if m == nil {
		return
	}
	m.PresentationsTotal.WithLabelValues(mode).Inc()
}

// RecordTranslation counts a translation lookup.
func (m *Metrics) RecordTranslation(namespace string, found bool) {
	if m == nil {
		return
	}
	result := "miss"
	if found {
		result = "hit"
	}
	m.TranslationLookups.WithLabelValues(namespace, result).Inc()
}

// RecordCache counts a cache hit or miss.
func (m *Metrics) RecordCache(cacheType string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.WithLabelValues(cacheType).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(cacheType).Inc()
}

// RecordStorageOperation records one activity store operation.
func (m *Metrics) RecordStorageOperation(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.StorageOperationsTotal.WithLabelValues(operation, statusLabel(err)).Inc()
	m.StorageOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveDBStats copies connection pool statistics into the database gauges.
func (m *Metrics) ObserveDBStats(stats sql.DBStats) {
	if m == nil {
		return
	}
	m.DBConnectionsActive.Set(float64(stats.InUse))
	m.DBConnectionsIdle.Set(float64(stats.Idle))
	m.DBConnectionsWaitCount.Set(float64(stats.WaitCount))
	m.DBConnectionsWaitDuration.Set(stats.WaitDuration.Seconds())
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status and size
			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			path := routePath(r)

			// Record request size
			if r.ContentLength > 0 {
				metrics.HTTPRequestSize.WithLabelValues(r.Method, path).Observe(float64(r.ContentLength))
			}

			// Serve the request
			next.ServeHTTP(rw, r)

			// Record metrics
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
			metrics.HTTPResponseSize.WithLabelValues(r.Method, path).Observe(float64(rw.bytesWritten))
		})
	}
}

// routePath returns the mux route template, so /activities/{id} is one label value.
// Outside a mux route it falls back to the raw path.
func routePath(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return r.URL.Path
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
