package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Buckets span fast cache reads up to a full captcha login (tens of seconds)
	CustomAPIBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13, 21, 34, 55}

	// HTTP Metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_server_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"http_request_method", "http_route", "http_response_status_code"},
	)

	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_server_request_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"http_request_method", "http_route", "http_response_status_code"},
	)

	ActiveRequests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_server_active_requests",
			Help: "Number of active HTTP requests",
		},
		[]string{"http_request_method"},
	)

	// Portal client metrics
	PortalRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_client_request_duration_seconds",
			Help:    "Portal request duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"operation", "status"},
	)

	PortalRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_client_request_total",
			Help: "Total number of portal requests",
		},
		[]string{"operation", "status"},
	)

	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timetable_login_attempts_total",
			Help: "Portal login attempts by outcome (success or error kind)",
		},
		[]string{"outcome"},
	)

	LoginStepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timetable_login_step_duration_seconds",
			Help:    "Duration of each login step in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"step"},
	)

	SessionExpiryRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "timetable_session_expiry_retries_total",
			Help: "Timetable fetches retried after a session expiry signal",
		},
	)

	// Captcha solver metrics
	CaptchaSolverRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "captcha_solver_request_duration_seconds",
			Help:    "Captcha solver API call duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"operation", "status"},
	)

	CaptchaSolverRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "captcha_solver_request_total",
			Help: "Total number of captcha solver API calls",
		},
		[]string{"operation", "status"},
	)

	CaptchaSolverBalance = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "captcha_solver_balance_usd",
			Help: "Last observed captcha solver account balance",
		},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_name"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_name"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Number of entries in cache",
		},
		[]string{"cache_name"},
	)

	TimetableRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timetable_refresh_total",
			Help: "Timetable refresh requests by outcome",
		},
		[]string{"status"},
	)

	// Storage Client Metrics (S3)
	StorageRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storage_client_operation_duration_seconds",
			Help:    "Storage client operation duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"operation", "status"},
	)

	StorageRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_client_operation_total",
			Help: "Total number of storage client operations",
		},
		[]string{"operation", "status"},
	)

	// Database Client Metrics
	DBOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_client_operation_duration_seconds",
			Help:    "Database client operation duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"operation", "status"},
	)

	// Infrastructure Metrics
	GoRoutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "process_runtime_go_goroutines",
			Help: "Number of goroutines",
		},
	)

	HeapAlloc = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "process_runtime_go_mem_heap_alloc_bytes",
			Help: "Heap allocated bytes",
		},
	)
)

// RecordInfrastructureMetrics collects infrastructure metrics periodically
func RecordInfrastructureMetrics() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		for range ticker.C {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)

			GoRoutines.Set(float64(runtime.NumGoroutine()))
			HeapAlloc.Set(float64(m.HeapAlloc))
		}
	}()
}

// MeasureDuration measures the duration of an operation
func MeasureDuration(start time.Time) float64 {
	return time.Since(start).Seconds()
}
