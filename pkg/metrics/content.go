package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Lawliet-Chan/offchain-storage/pkg/store/content"
)

// contentMetrics is the Prometheus implementation of content.Metrics.
type contentMetrics struct {
	backend           string
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	bytesTransferred  *prometheus.CounterVec
	errorsTotal       *prometheus.CounterVec
}

// NewContentMetrics creates Prometheus-backed content.Metrics labelled with
// the backend type.
//
// Returns nil if metrics are not enabled, which makes content.Instrumented a
// pass-through.
func NewContentMetrics(backend string) content.Metrics {
	if !IsEnabled() {
		return nil
	}
	return NewContentMetricsWith(GetRegistry(), backend)
}

// NewContentMetricsWith registers content metrics on reg.
func NewContentMetricsWith(reg prometheus.Registerer, backend string) content.Metrics {
	return &contentMetrics{
		backend: backend,
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "offchain_content_operations_total",
				Help: "Total number of content backend operations by backend, operation and status",
			},
			[]string{"backend", "operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "offchain_content_operation_duration_seconds",
				Help: "Duration of content backend operations in seconds",
				Buckets: []float64{
					0.001, // 1ms
					0.01,  // 10ms
					0.025, // 25ms
					0.05,  // 50ms
					0.1,   // 100ms
					0.25,  // 250ms
					0.5,   // 500ms
					1.0,   // 1s
					2.5,   // 2.5s
					10.0,  // 10s
				},
			},
			[]string{"backend", "operation"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "offchain_content_bytes_transferred_total",
				Help: "Total payload bytes transferred to and from the content backend",
			},
			[]string{"backend", "operation"},
		),
		errorsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "offchain_content_errors_total",
				Help: "Total number of content backend errors by operation",
			},
			[]string{"backend", "operation"},
		),
	}
}

// ObserveOperation implements content.Metrics.ObserveOperation
func (m *contentMetrics) ObserveOperation(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
		m.errorsTotal.WithLabelValues(m.backend, operation).Inc()
	}

	m.operationsTotal.WithLabelValues(m.backend, operation, status).Inc()
	m.operationDuration.WithLabelValues(m.backend, operation).Observe(duration.Seconds())
}

// RecordBytes implements content.Metrics.RecordBytes
func (m *contentMetrics) RecordBytes(operation string, bytes int64) {
	m.bytesTransferred.WithLabelValues(m.backend, operation).Add(float64(bytes))
}
