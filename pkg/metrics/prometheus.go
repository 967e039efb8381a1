// Package metrics provides Prometheus metrics for the rating settlement engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus metrics for the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Settlement metrics
	membersSettled     prometheus.Counter
	settlementFailures prometheus.Counter
	settlementDuration prometheus.Histogram
	membersSkipped     prometheus.Counter

	// Rating composition metrics
	ratingsRecomposed prometheus.Counter
	compositionErrors prometheus.Counter

	// External activity fetch metrics
	fetchErrors  *prometheus.CounterVec
	fetchLatency prometheus.Histogram

	// Archival metrics
	membersArchived prometheus.Counter
	archiveFailures prometheus.Counter

	// Operational health metrics
	activeWorkers  prometheus.Gauge
	queueSize      prometheus.Gauge
	membersTracked prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ratingd",
		subsystem:        "settlement",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.membersSettled = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "members_settled_total",
		Help:      "Total number of members settled successfully",
	})

	m.settlementFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "member_failures_total",
		Help:      "Total number of members whose settlement failed",
	})

	m.settlementDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "member_duration_seconds",
		Help:      "Histogram of per-member settlement duration in seconds",
		Buckets:   m.histogramBuckets,
	})

	m.membersSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "members_skipped_total",
		Help:      "Total number of members skipped because the period was already settled",
	})

	m.ratingsRecomposed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "rating",
		Name:      "recomposed_total",
		Help:      "Total number of rating recompositions persisted",
	})

	m.compositionErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "rating",
		Name:      "composition_errors_total",
		Help:      "Total number of failed rating recompositions",
	})

	m.fetchErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "activity",
		Name:      "fetch_errors_total",
		Help:      "Total number of external activity fetch errors by source",
	}, []string{"source"})

	m.fetchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "activity",
		Name:      "fetch_duration_seconds",
		Help:      "Histogram of external activity fetch duration in seconds",
		Buckets:   m.histogramBuckets,
	})

	m.membersArchived = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "archive",
		Name:      "members_total",
		Help:      "Total number of members archived at season transitions",
	})

	m.archiveFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "archive",
		Name:      "failures_total",
		Help:      "Total number of failed per-member archive steps",
	})

	m.activeWorkers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_workers",
		Help:      "Current number of active settlement workers",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current number of queued settlement jobs",
	})

	m.membersTracked = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "members_tracked",
		Help:      "Number of active members known to the engine",
	})
}

// RecordMemberSettled increments the settled members counter.
func RecordMemberSettled() {
	globalManager.membersSettled.Inc()
}

// RecordSettlementFailure increments the per-member failure counter.
func RecordSettlementFailure() {
	globalManager.settlementFailures.Inc()
}

// RecordSettlementDuration records per-member settlement duration in seconds.
func RecordSettlementDuration(seconds float64) {
	globalManager.settlementDuration.Observe(seconds)
}

// RecordMemberSkipped increments the skipped members counter.
func RecordMemberSkipped() {
	globalManager.membersSkipped.Inc()
}

// RecordRatingRecomposed increments the recomposition counter.
func RecordRatingRecomposed() {
	globalManager.ratingsRecomposed.Inc()
}

// RecordCompositionError increments the composition error counter.
func RecordCompositionError() {
	globalManager.compositionErrors.Inc()
}

// RecordFetchError increments the external fetch error counter for a source.
func RecordFetchError(source string) {
	globalManager.fetchErrors.WithLabelValues(source).Inc()
}

// RecordFetchDuration records external fetch duration in seconds.
func RecordFetchDuration(seconds float64) {
	globalManager.fetchLatency.Observe(seconds)
}

// RecordMemberArchived increments the archive counter.
func RecordMemberArchived() {
	globalManager.membersArchived.Inc()
}

// RecordArchiveFailure increments the archive failure counter.
func RecordArchiveFailure() {
	globalManager.archiveFailures.Inc()
}

// UpdateActiveWorkers sets the active worker gauge.
func UpdateActiveWorkers(count int) {
	globalManager.activeWorkers.Set(float64(count))
}

// UpdateQueueSize sets the queued jobs gauge.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateMembersTracked sets the known members gauge.
func UpdateMembersTracked(count int) {
	globalManager.membersTracked.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
