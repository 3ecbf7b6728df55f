package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Assignment metrics
	AssignmentsCommitted         prometheus.Counter
	AssignmentValidationFailures *prometheus.CounterVec

	// Invitation metrics
	InvitationsExpired  prometheus.Counter
	InvitationResponses *prometheus.CounterVec

	// Notification metrics
	Notifications       *prometheus.CounterVec
	NotificationLatency prometheus.Histogram

	// Outbox related metrics
	OutboxEventsProcessed   prometheus.Counter
	OutboxEventsFailed      prometheus.Counter
	OutboxProcessingLatency prometheus.Histogram
	OutboxQueueSize         prometheus.Gauge
	OutboxRetries           *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics on reg.
// The process passes prometheus.DefaultRegisterer; tests pass a fresh registry.
func NewMetrics(namespace, subsystem string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Assignment metrics
		AssignmentsCommitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "assignments_committed_total",
			Help:      "Total number of papers bound to a reviewer set",
		}),
		AssignmentValidationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "assignment_rejections_total",
			Help:      "Total number of assignment requests rejected, by error code",
		}, []string{"code"}),

		// Invitation metrics
		InvitationsExpired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "invitations_expired_total",
			Help:      "Total number of pending invitations declined after their due date",
		}),
		InvitationResponses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "invitation_responses_total",
			Help:      "Total number of invitation responses, by action and result",
		}, []string{"action", "result"}),

		// Notification metrics
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_total",
			Help:      "Total number of notification attempts, by delivery status",
		}, []string{"status"}),
		NotificationLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notification_duration_seconds",
			Help:      "Time spent on one notification attempt",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),

		// Outbox metrics
		OutboxEventsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_events_processed_total",
			Help:      "Total number of successfully processed outbox events",
		}),
		OutboxEventsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_events_failed_total",
			Help:      "Total number of failed outbox events",
		}),
		OutboxProcessingLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_processing_duration_seconds",
			Help:      "Time spent processing outbox events",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		OutboxQueueSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_queue_size",
			Help:      "Number of pending events fetched in the last poll",
		}),
		OutboxRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_retry_attempts_total",
			Help:      "Total number of retry attempts for outbox events",
		}, []string{"event_type"}),
	}
}

// NewNop returns unregistered metrics for tests and tools that do not export them.
func NewNop() *Metrics {
	return NewMetrics("", "", prometheus.NewRegistry())
}
