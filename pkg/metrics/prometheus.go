// Package metrics provides Prometheus metrics for the StreamScout engine.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Refresh cycle outcomes.
const (
	OutcomePublished = "published"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
)

// Manager manages all Prometheus metrics for the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshBuckets   []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Refresh coordinator
	refreshCycles      *prometheus.CounterVec
	refreshDuration    prometheus.Histogram
	refreshInFlight    prometheus.Gauge
	lastSuccessUnix    prometheus.Gauge
	snapshotSize       prometheus.Gauge
	leader             prometheus.Gauge
	forceRefreshes     *prometheus.CounterVec
	snapshotReadErrors prometheus.Counter

	// Upstream provider
	upstreamCalls     *prometheus.CounterVec
	upstreamLatency   *prometheus.HistogramVec
	rateLimitRemain   prometheus.Gauge
	collectedEntities *prometheus.CounterVec

	// Scorer
	disqualified *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "streamscout",
		subsystem:        "engine",
		histogramBuckets: []float64{5, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		refreshBuckets:   []float64{5, 15, 30, 60, 120, 240, 480, 900},
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one block per metric
	auto := promauto.With(m.registry)

	m.refreshCycles = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "refresh_cycles_total",
		Help:        "Refresh cycles by outcome (published, failed, rejected)",
		ConstLabels: m.constLabels,
	}, []string{"outcome"})

	m.refreshDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "refresh_duration_seconds",
		Help:        "Wall time of a refresh cycle from handshake to publish",
		Buckets:     m.refreshBuckets,
		ConstLabels: m.constLabels,
	})

	m.refreshInFlight = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "refresh_in_flight",
		Help:        "1 while this process runs a refresh cycle",
		ConstLabels: m.constLabels,
	})

	m.lastSuccessUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "last_publish_unix_seconds",
		Help:        "Unix time of the last published snapshot",
		ConstLabels: m.constLabels,
	})

	m.snapshotSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "snapshot_opportunities",
		Help:        "Number of ranked opportunities in the last published snapshot",
		ConstLabels: m.constLabels,
	})

	m.leader = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "leader",
		Help:        "1 if this process holds the recurring refresh role",
		ConstLabels: m.constLabels,
	})

	m.forceRefreshes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "force_refresh_total",
		Help:        "Force-refresh requests by result (accepted, rejected)",
		ConstLabels: m.constLabels,
	}, []string{"result"})

	m.snapshotReadErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "snapshot_read_errors_total",
		Help:        "Shared state reads that failed and were served as a cache miss",
		ConstLabels: m.constLabels,
	})

	m.upstreamCalls = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "upstream_calls_total",
		Help:        "Upstream provider calls by operation and outcome",
		ConstLabels: m.constLabels,
	}, []string{"op", "outcome"})

	m.upstreamLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "upstream_latency_milliseconds",
		Help:        "Upstream provider call latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"op"})

	m.rateLimitRemain = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "upstream_ratelimit_remaining",
		Help:        "Remaining upstream request budget as last reported",
		ConstLabels: m.constLabels,
	})

	m.collectedEntities = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "collector_entities_total",
		Help:        "Entities seen by the collector by stage (validated, fetched, dropped)",
		ConstLabels: m.constLabels,
	}, []string{"stage"})

	m.disqualified = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "disqualified_total",
		Help:        "Entities removed by the scorer by reason",
		ConstLabels: m.constLabels,
	}, []string{"reason"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_total",
		Help:        "Errors by component and type",
		ConstLabels: m.constLabels,
	}, []string{"component", "error_type"})
}

// ObserveRefresh records a finished cycle. Unknown outcomes are rejected.
func (m *Manager) ObserveRefresh(outcome string, took time.Duration, opportunities int) error {
	switch outcome {
	case OutcomePublished:
		m.refreshDuration.Observe(took.Seconds())
		m.lastSuccessUnix.Set(float64(time.Now().Unix()))
		m.snapshotSize.Set(float64(opportunities))
	case OutcomeFailed:
		m.refreshDuration.Observe(took.Seconds())
	case OutcomeRejected:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOutcome, outcome)
	}
	m.refreshCycles.WithLabelValues(outcome).Inc()
	return nil
}

// RecordRefresh records a finished or rejected refresh cycle.
func RecordRefresh(outcome string, took time.Duration, opportunities int) {
	if err := globalManager.ObserveRefresh(outcome, took, opportunities); err != nil {
		globalManager.errorsByComponent.WithLabelValues("metrics", "unknown_outcome").Inc()
	}
}

// SetRefreshing flips the in-flight gauge.
func SetRefreshing(on bool) {
	globalManager.refreshInFlight.Set(boolGauge(on))
}

// SetLeader flips the leader gauge.
func SetLeader(on bool) {
	globalManager.leader.Set(boolGauge(on))
}

// RecordForceRefresh counts a force-refresh request result.
func RecordForceRefresh(accepted bool) {
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	globalManager.forceRefreshes.WithLabelValues(result).Inc()
}

// RecordSnapshotReadError counts a shared state read that degraded to a miss.
func RecordSnapshotReadError() {
	globalManager.snapshotReadErrors.Inc()
}

// RecordUpstreamCall records one upstream call.
func RecordUpstreamCall(op, outcome string, latency time.Duration) {
	globalManager.upstreamCalls.WithLabelValues(op, outcome).Inc()
	globalManager.upstreamLatency.WithLabelValues(op).Observe(float64(latency.Milliseconds()))
}

// UpdateRateLimitRemaining stores the last reported upstream budget.
func UpdateRateLimitRemaining(remaining int) {
	globalManager.rateLimitRemain.Set(float64(remaining))
}

// RecordCollected adds n entities to a collector stage counter.
func RecordCollected(stage string, n int) {
	if n <= 0 {
		return
	}
	globalManager.collectedEntities.WithLabelValues(stage).Add(float64(n))
}

// RecordDisqualified counts one scorer disqualification.
func RecordDisqualified(reason string) {
	globalManager.disqualified.WithLabelValues(reason).Inc()
}

func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent counts an error attributed to a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the registry backing the package-level recorders.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

func boolGauge(on bool) float64 {
	if on {
		return 1
	}
	return 0
}
