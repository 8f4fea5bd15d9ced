package metrics

import (
	"time"

	"mercator-hq/growth/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// OperationMetrics tracks latency and failures of facade operations.
//
// Metrics:
//   - growth_engine_operation_duration_seconds: Operation latency histogram
//   - growth_engine_operation_errors_total: Failed operations by kind
type OperationMetrics struct {
	duration    *prometheus.HistogramVec
	errorsTotal *prometheus.CounterVec
}

// NewOperationMetrics creates and registers operation metrics with the provided registry.
func NewOperationMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *OperationMetrics {
	om := &OperationMetrics{
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "operation_duration_seconds",
				Help:      "Duration of engine operations in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"operation"},
		),

		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "operation_errors_total",
				Help:      "Total number of failed engine operations",
			},
			[]string{"operation", "kind"},
		),
	}

	registry.MustRegister(om.duration, om.errorsTotal)

	return om
}

// Observe records an operation duration.
func (om *OperationMetrics) Observe(operation string, d time.Duration) {
	om.duration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordError counts a failed operation.
func (om *OperationMetrics) RecordError(operation, kind string) {
	om.errorsTotal.WithLabelValues(operation, kind).Inc()
}
