package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "marketplace_mirror"

// Mirror progress, partitioned by chain
var (
	CursorBlock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "mirror",
		Name:      "cursor_block",
		Help:      "Last fully applied block",
	}, []string{"chain"})

	ChainHead = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "mirror",
		Name:      "chain_head_block",
		Help:      "Latest block reported by the RPC node",
	}, []string{"chain"})

	EventsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mirror",
		Name:      "events_applied_total",
		Help:      "Events applied to the database by kind",
	}, []string{"chain", "kind"})

	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mirror",
		Name:      "events_dropped_total",
		Help:      "Raw events that could not be decoded",
	}, []string{"chain"})

	TickDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "mirror",
		Name:      "tick_duration_seconds",
		Help:      "Duration of one mirror cycle",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"chain"})

	TickErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mirror",
		Name:      "tick_errors_total",
		Help:      "Mirror cycles that failed and will be retried",
	}, []string{"chain"})
)

// Job orchestration
var (
	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "jobs",
		Name:      "processed_total",
		Help:      "Jobs handled by type and outcome",
	}, []string{"type", "outcome"})

	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "jobs",
		Name:      "duration_seconds",
		Help:      "Handler duration by job type",
		Buckets:   prometheus.DefBuckets,
	}, []string{"type"})

	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "jobs",
		Name:      "queue_depth",
		Help:      "Jobs per status",
	}, []string{"status"})

	StaleJobsReleased = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "jobs",
		Name:      "stale_released_total",
		Help:      "PROCESSING jobs returned to PENDING by the reaper",
	})

	OrdersExpired = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "orders",
		Name:      "expired_total",
		Help:      "Orders moved to EXPIRED by the expiry sweep",
	}, []string{"chain"})
)

// Webhooks
var (
	WebhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "webhooks",
		Name:      "deliveries_total",
		Help:      "Webhook delivery attempts by status class (2xx, 4xx, 5xx, error)",
	}, []string{"status_class"})
)

// Job outcomes
const (
	OutcomeDone    = "done"
	OutcomeRetry   = "retry"
	OutcomeUnknown = "unknown_type"
)

// StatusClass buckets an HTTP status code; 0 means the request never got a response
func StatusClass(code int) string {
	switch {
	case code == 0:
		return "error"
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
