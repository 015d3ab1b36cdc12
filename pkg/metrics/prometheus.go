// Package metrics provides Prometheus metrics for the velvet admission service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the velvet service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Admission Metrics - the business core
	rsvpSubmissions   *prometheus.CounterVec // outcome: confirmed|waitlisted
	rsvpCancellations *prometheus.CounterVec // window: early|late
	rsvpPromotions    prometheus.Counter
	rsvpCheckIns      *prometheus.CounterVec // arrival: on_time|late_arrival
	rsvpNoShows       prometheus.Counter
	sweepRuns         prometheus.Counter
	admissionLatency  prometheus.Histogram

	// Ledger Metrics
	scoreDeltas      *prometheus.CounterVec // reason label
	scoreDeltaSkips  prometheus.Counter     // idempotent no-ops
	ledgerAppendErrs prometheus.Counter

	// Operational Health Metrics
	openEvents    prometheus.Gauge
	waitlistDepth prometheus.Gauge
	trackedUsers  prometheus.Gauge

	// Storage Metrics
	storeTxRetries   prometheus.Counter
	storeTxFailures  prometheus.Counter
	storeTxLatency   prometheus.Histogram
	storeQueryLatency prometheus.Histogram

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "velvet",
		subsystem:        "admission",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Admission Metrics
	m.rsvpSubmissions = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "rsvp_submissions_total",
			Help:      "Total number of RSVP submissions by placement outcome",
		},
		[]string{"outcome"},
	)

	m.rsvpCancellations = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "rsvp_cancellations_total",
			Help:      "Total number of RSVP cancellations by timing window",
		},
		[]string{"window"},
	)

	m.rsvpPromotions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rsvp_promotions_total",
		Help:      "Total number of waitlist promotions into freed slots",
	})

	m.rsvpCheckIns = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "rsvp_checkins_total",
			Help:      "Total number of check-ins by arrival classification",
		},
		[]string{"arrival"},
	)

	m.rsvpNoShows = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rsvp_no_shows_total",
		Help:      "Total number of confirmed RSVPs marked no_show by the sweep",
	})

	m.sweepRuns = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sweep_runs_total",
		Help:      "Total number of close-event sweep executions",
	})

	m.admissionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "operation_latency_milliseconds",
		Help:      "Histogram of admission engine operation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	// Ledger Metrics
	m.scoreDeltas = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "score_deltas_total",
			Help:      "Total number of score ledger deltas by reason",
		},
		[]string{"reason"},
	)

	m.scoreDeltaSkips = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "score_delta_skips_total",
		Help:      "Total number of ledger appends skipped by the idempotency guard",
	})

	m.ledgerAppendErrs = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ledger_append_errors_total",
		Help:      "Total number of failed ledger appends",
	})

	// Operational Health Metrics
	m.openEvents = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "open_events",
		Help:      "Current number of events accepting RSVPs",
	})

	m.waitlistDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "waitlist_depth",
		Help:      "Current number of waitlisted RSVPs across open events",
	})

	m.trackedUsers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tracked_users",
		Help:      "Total number of users with a score ledger",
	})

	// Storage Metrics
	m.storeTxRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_tx_retries_total",
		Help:      "Total number of transaction retries due to contention",
	})

	m.storeTxFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_tx_failures_total",
		Help:      "Total number of transactions that exhausted their retry budget",
	})

	m.storeTxLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_tx_latency_milliseconds",
		Help:      "Storage transaction latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.storeQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_query_latency_milliseconds",
		Help:      "Storage query latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	// HTTP Performance Metrics
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	// Error Metrics
	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Total number of errors by component",
		},
		[]string{"component", "error_type"},
	)

	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_type_total",
			Help:      "Total number of errors by type",
		},
		[]string{"error_type", "severity"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_endpoint_total",
			Help:      "Total number of errors by endpoint",
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.errorLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "error_latency_milliseconds",
			Help:      "Latency of operations that resulted in errors",
			Buckets:   m.histogramBuckets,
		},
		[]string{"component", "error_type"},
	)

	// System Performance Metrics
	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordRSVPSubmission increments the submission counter for an outcome.
func RecordRSVPSubmission(outcome string) {
	globalManager.rsvpSubmissions.WithLabelValues(outcome).Inc()
}

// RecordRSVPCancellation increments the cancellation counter for a timing window.
func RecordRSVPCancellation(window string) {
	globalManager.rsvpCancellations.WithLabelValues(window).Inc()
}

// RecordPromotion increments the waitlist promotion counter.
func RecordPromotion() {
	globalManager.rsvpPromotions.Inc()
}

// RecordCheckIn increments the check-in counter for an arrival classification.
func RecordCheckIn(arrival string) {
	globalManager.rsvpCheckIns.WithLabelValues(arrival).Inc()
}

// RecordNoShow increments the no-show counter.
func RecordNoShow() {
	globalManager.rsvpNoShows.Inc()
}

// RecordSweepRun increments the sweep execution counter.
func RecordSweepRun() {
	globalManager.sweepRuns.Inc()
}

// RecordAdmissionLatency records admission operation latency in milliseconds.
func RecordAdmissionLatency(latencyMs float64) {
	globalManager.admissionLatency.Observe(latencyMs)
}

// RecordScoreDelta increments the ledger delta counter for a reason.
func RecordScoreDelta(reason string) {
	globalManager.scoreDeltas.WithLabelValues(reason).Inc()
}

// RecordScoreDeltaSkip increments the idempotency no-op counter.
func RecordScoreDeltaSkip() {
	globalManager.scoreDeltaSkips.Inc()
}

// RecordLedgerAppendError increments the ledger failure counter.
func RecordLedgerAppendError() {
	globalManager.ledgerAppendErrs.Inc()
}

// UpdateOpenEvents sets the number of events currently accepting RSVPs.
func UpdateOpenEvents(count int) {
	globalManager.openEvents.Set(float64(count))
}

// UpdateWaitlistDepth sets the waitlist depth across open events.
func UpdateWaitlistDepth(count int) {
	globalManager.waitlistDepth.Set(float64(count))
}

// UpdateTrackedUsers sets the total tracked user count.
func UpdateTrackedUsers(count int) {
	globalManager.trackedUsers.Set(float64(count))
}

// RecordStoreTxRetry increments the transaction retry counter.
func RecordStoreTxRetry() {
	globalManager.storeTxRetries.Inc()
}

// RecordStoreTxFailure increments the exhausted-retry counter.
func RecordStoreTxFailure() {
	globalManager.storeTxFailures.Inc()
}

// RecordStoreTxLatency records storage transaction latency.
func RecordStoreTxLatency(latencyMs float64) {
	globalManager.storeTxLatency.Observe(latencyMs)
}

// RecordStoreQueryLatency records storage query latency.
func RecordStoreQueryLatency(latencyMs float64) {
	globalManager.storeQueryLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
