// Package metrics provides Prometheus metrics for AlertFlow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "alertflow"
)

// Engine metrics
var (
	// RecordsEvaluated counts processed records run through the engine.
	RecordsEvaluated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "records_total",
			Help:      "Total processed records evaluated",
		},
	)

	// RuleEvaluationErrors counts per-rule evaluation failures.
	RuleEvaluationErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "rule_errors_total",
			Help:      "Total rule evaluations that failed and were skipped",
		},
	)

	// AlertsEmitted counts emitted alert events by severity.
	AlertsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "alerts_emitted_total",
			Help:      "Total alert events emitted",
		},
		[]string{"level"},
	)

	// AlertsSuppressed counts qualifying violations suppressed by cooldown.
	AlertsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "alerts_suppressed_total",
			Help:      "Total alerts suppressed by an active cooldown",
		},
	)
)

// Snapshot metrics
var (
	// SnapshotRefreshes counts successful configuration refreshes.
	SnapshotRefreshes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "refreshes_total",
			Help:      "Total successful configuration snapshot refreshes",
		},
	)

	// SnapshotRefreshFailures counts refresh attempts that kept the old snapshot.
	SnapshotRefreshFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "refresh_failures_total",
			Help:      "Total configuration refresh failures",
		},
	)

	// SnapshotRules tracks the enabled rule count in the current snapshot.
	SnapshotRules = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "rules",
			Help:      "Enabled rules in the current snapshot",
		},
	)

	// SnapshotReceivers tracks the enabled receiver count in the current snapshot.
	SnapshotReceivers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "receivers",
			Help:      "Enabled receivers in the current snapshot",
		},
	)
)

// Ingest metrics
var (
	// IngestRecords counts consumed records by outcome (ok, malformed, failed).
	IngestRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "records_total",
			Help:      "Total records consumed from the ingest topic",
		},
		[]string{"status"},
	)
)

// Publish metrics
var (
	// EventsPublished counts alert events written to the alerts topic.
	EventsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "events_total",
			Help:      "Total alert events published to Kafka",
		},
	)

	// PublishFailures counts batches that failed after retries.
	PublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "failures_total",
			Help:      "Total alert event publish failures",
		},
	)

	// PublishBatchSize tracks flushed batch sizes.
	PublishBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "batch_size",
			Help:      "Size of published alert event batches",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100},
		},
	)
)

// Notification metrics
var (
	// NotificationsSent counts delivery attempts by channel and status.
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "sent_total",
			Help:      "Total notification deliveries by channel and status",
		},
		[]string{"channel", "status"},
	)

	// NotificationsRateLimited counts notifications dropped by rate limiting.
	NotificationsRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "rate_limited_total",
			Help:      "Total notifications dropped by the rate limiter",
		},
	)
)

// State metrics
var (
	// StateCheckpoints counts completed state checkpoints.
	StateCheckpoints = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "checkpoints_total",
			Help:      "Total completed evaluation state checkpoints",
		},
	)

	// StateCheckpointFailures counts failed state checkpoints.
	StateCheckpointFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "checkpoint_failures_total",
			Help:      "Total failed evaluation state checkpoints",
		},
	)

	// StateKeys tracks the number of tracked (rule, device) keys.
	StateKeys = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "keys",
			Help:      "Tracked (rule, device) state keys",
		},
	)
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)
)
