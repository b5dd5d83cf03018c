package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OperationsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backoffice_operations_completed_total",
			Help: "Total number of operations completed successfully",
		},
		[]string{"operation"},
	)

	OperationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backoffice_operations_failed_total",
			Help: "Total number of operations that returned an error",
		},
		[]string{"operation", "error_code"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "backoffice_operation_duration_seconds",
			Help: "Duration of operation processing in seconds",
		},
		[]string{"operation"},
	)

	UploadedBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backoffice_uploaded_bytes_total",
			Help: "Bytes accepted by the document upload endpoint",
		},
		[]string{"backend"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backoffice_agent_notifications_total",
			Help: "Agent notifications by outcome",
		},
		[]string{"kind", "outcome"},
	)

	NotificationQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backoffice_agent_notifications_pending",
			Help: "Notifications waiting in the in-memory queue",
		},
	)
)

// Record observes one operation run. code is empty on success.
func Record(operation string, start time.Time, code string) {
	OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if code == "" {
		OperationsCompleted.WithLabelValues(operation).Inc()
		return
	}
	OperationsFailed.WithLabelValues(operation, code).Inc()
}
