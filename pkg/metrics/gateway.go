package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// GatewayMetrics provides observability for gateway operations.
//
// Example usage:
//
//	// With metrics enabled
//	gw := gateway.New(gateway.Config{Metrics: metrics.NewGatewayMetrics()})
//
//	// Without metrics (no-op)
//	gw := gateway.New(gateway.Config{})
type GatewayMetrics interface {
	// RecordOperation records a completed gateway operation.
	//
	// Parameters:
	//   - operation: "read", "write", "delete", "provision", "set_access", "stat"
	//   - outcome: "ok" or the error class (e.g. "permission_denied")
	//   - duration: Time spent including the wait for the gateway lock
	RecordOperation(operation, outcome string, duration time.Duration)

	// RecordPayloadBytes records payload bytes returned by reads or accepted by writes.
	RecordPayloadBytes(operation string, bytes int)

	// RecordRecordCreated counts records created implicitly by write or by provisioning.
	RecordRecordCreated(source string)

	// RecordNotification records the outcome of a notification delivery.
	RecordNotification(err error)
}

type gatewayMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	payloadBytes      *prometheus.CounterVec
	recordsCreated    *prometheus.CounterVec
	notifications     *prometheus.CounterVec
}

// NewGatewayMetrics creates a Prometheus-backed GatewayMetrics on the global
// registry. Returns a no-op implementation if metrics are not enabled.
func NewGatewayMetrics() GatewayMetrics {
	if !IsEnabled() {
		return NewNoopGatewayMetrics()
	}
	return NewGatewayMetricsWith(GetRegistry())
}

// NewGatewayMetricsWith registers gateway metrics on reg.
func NewGatewayMetricsWith(reg prometheus.Registerer) GatewayMetrics {
	return &gatewayMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "offchain_gateway_operations_total",
				Help: "Total number of gateway operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "offchain_gateway_operation_duration_seconds",
				Help: "Duration of gateway operations in seconds",
				Buckets: []float64{
					0.0005, // 500us
					0.001,  // 1ms
					0.005,  // 5ms
					0.01,   // 10ms
					0.05,   // 50ms
					0.1,    // 100ms
					0.5,    // 500ms
					1.0,    // 1s
					5.0,    // 5s
				},
			},
			[]string{"operation"},
		),
		payloadBytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "offchain_gateway_payload_bytes_total",
				Help: "Total payload bytes moved through the gateway",
			},
			[]string{"operation"},
		),
		recordsCreated: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "offchain_gateway_records_created_total",
				Help: "Total number of access records created by source",
			},
			[]string{"source"}, // write, provision
		),
		notifications: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "offchain_gateway_notifications_total",
				Help: "Total number of notifications by delivery status",
			},
			[]string{"status"},
		),
	}
}

func (m *gatewayMetrics) RecordOperation(operation, outcome string, duration time.Duration) {
	m.operationsTotal.WithLabelValues(operation, outcome).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *gatewayMetrics) RecordPayloadBytes(operation string, bytes int) {
	m.payloadBytes.WithLabelValues(operation).Add(float64(bytes))
}

func (m *gatewayMetrics) RecordRecordCreated(source string) {
	m.recordsCreated.WithLabelValues(source).Inc()
}

func (m *gatewayMetrics) RecordNotification(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.notifications.WithLabelValues(status).Inc()
}

// noopGatewayMetrics is a no-op implementation with zero overhead.
type noopGatewayMetrics struct{}

// NewNoopGatewayMetrics returns a GatewayMetrics that discards everything.
func NewNoopGatewayMetrics() GatewayMetrics {
	return noopGatewayMetrics{}
}

func (noopGatewayMetrics) RecordOperation(string, string, time.Duration) {}
func (noopGatewayMetrics) RecordPayloadBytes(string, int)                {}
func (noopGatewayMetrics) RecordRecordCreated(string)                    {}
func (noopGatewayMetrics) RecordNotification(error)                      {}
