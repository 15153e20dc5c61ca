package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all pipeline metrics
type Metrics struct {
	// Dispatch metrics
	NotificationsSent    *prometheus.CounterVec
	NotificationsFailed  *prometheus.CounterVec
	NotificationsSkipped prometheus.Counter
	DispatchDuration     prometheus.Histogram
	BatchSize            prometheus.Histogram

	// Enqueue metrics
	NotificationsEnqueued *prometheus.CounterVec
	ScanDuration          prometheus.Histogram

	// Store metrics
	StoreOperations *prometheus.CounterVec
	StoreLatency    *prometheus.HistogramVec

	// Tracking metrics
	TrackingCodesMinted prometheus.Counter
	TrackingCodesReused prometheus.Counter
}

// New creates and registers all pipeline metrics with the default registry.
func New(namespace string) *Metrics {
	return &Metrics{
		NotificationsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Total number of notifications delivered successfully",
		}, []string{"notification_type"}),
		NotificationsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_failed_total",
			Help:      "Total number of notification delivery failures",
		}, []string{"notification_type", "reason"}),
		NotificationsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_skipped_total",
			Help:      "Records skipped because a concurrent run already claimed them",
		}),
		DispatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent processing one dispatch batch",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		BatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_batch_size",
			Help:      "Number of records selected per dispatch batch",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250},
		}),
		NotificationsEnqueued: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_enqueued_total",
			Help:      "Total number of notifications enqueued by scans",
		}, []string{"notification_type"}),
		ScanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Time spent on one enqueue scan",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 10},
		}),
		StoreOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Total number of notification store operations",
		}, []string{"operation", "status"}),
		StoreLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Duration of notification store operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),
		TrackingCodesMinted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracking_codes_minted_total",
			Help:      "Fresh tracking codes generated",
		}),
		TrackingCodesReused: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracking_codes_reused_total",
			Help:      "Tracking code resolutions answered by an existing record",
		}),
	}
}

// NewUnregistered builds the same bundle without touching the default
// registry. Tests use this to avoid duplicate-registration panics.
func NewUnregistered(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		NotificationsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "notifications_sent_total", Help: "sent",
		}, []string{"notification_type"}),
		NotificationsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "notifications_failed_total", Help: "failed",
		}, []string{"notification_type", "reason"}),
		NotificationsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "notifications_skipped_total", Help: "skipped",
		}),
		DispatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "dispatch_duration_seconds", Help: "dispatch",
		}),
		BatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "dispatch_batch_size", Help: "batch",
		}),
		NotificationsEnqueued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "notifications_enqueued_total", Help: "enqueued",
		}, []string{"notification_type"}),
		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "scan_duration_seconds", Help: "scan",
		}),
		StoreOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "store_operations_total", Help: "store ops",
		}, []string{"operation", "status"}),
		StoreLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "store_operation_duration_seconds", Help: "store latency",
		}, []string{"operation"}),
		TrackingCodesMinted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "tracking_codes_minted_total", Help: "minted",
		}),
		TrackingCodesReused: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "tracking_codes_reused_total", Help: "reused",
		}),
	}
}
