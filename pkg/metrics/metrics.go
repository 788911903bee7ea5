package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Messaging metrics
	MessagesPosted  prometheus.Counter
	MessagesDeleted prometheus.Counter
	PostLatency     prometheus.Histogram

	// Notification engine metrics
	NotificationsCreated  *prometheus.CounterVec
	DeliveryJobsEnqueued  *prometheus.CounterVec
	DeliveryEnqueueFailed *prometheus.CounterVec
	FanOutDuration        prometheus.Histogram

	// Dispatcher metrics
	DeliveriesSent   *prometheus.CounterVec
	DeliveriesFailed *prometheus.CounterVec
}

// NewMetrics creates all application metrics on the default registry.
func NewMetrics(namespace, subsystem string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace, subsystem)
}

// NewMetricsWith registers the metrics on a caller-supplied registerer.
func NewMetricsWith(reg prometheus.Registerer, namespace, subsystem string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MessagesPosted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_posted_total",
			Help:      "Total number of messages posted",
		}),
		MessagesDeleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_deleted_total",
			Help:      "Total number of messages soft-deleted",
		}),
		PostLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "message_post_duration_seconds",
			Help:      "Time spent committing a posted message",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		NotificationsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_created_total",
			Help:      "Total number of notification records created",
		}, []string{"category"}),
		DeliveryJobsEnqueued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "delivery_jobs_enqueued_total",
			Help:      "Total number of delivery jobs handed to the dispatcher",
		}, []string{"channel"}),
		DeliveryEnqueueFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "delivery_enqueue_failed_total",
			Help:      "Total number of delivery jobs dropped because the dispatcher intake failed",
		}, []string{"channel"}),
		FanOutDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notification_fanout_duration_seconds",
			Help:      "Time spent evaluating one event against all affected members",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		DeliveriesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "deliveries_sent_total",
			Help:      "Total number of deliveries sent by the dispatcher",
		}, []string{"channel"}),
		DeliveriesFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "deliveries_failed_total",
			Help:      "Total number of deliveries the dispatcher failed to send",
		}, []string{"channel"}),
	}
}
