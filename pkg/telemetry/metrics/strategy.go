package metrics

import (
	"mercator-hq/growth/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// StrategyMetrics tracks changes to the strategy version registry.
//
// Metrics:
//   - growth_engine_strategy_changes_total: Registry writes by strategy type and action
type StrategyMetrics struct {
	changesTotal *prometheus.CounterVec
}

// NewStrategyMetrics creates and registers strategy metrics with the provided registry.
func NewStrategyMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *StrategyMetrics {
	sm := &StrategyMetrics{
		changesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "strategy_changes_total",
				Help:      "Total number of strategy version changes",
			},
			[]string{"strategy_type", "action"},
		),
	}

	registry.MustRegister(sm.changesTotal)

	return sm
}

// RecordChange counts a strategy registry change.
func (sm *StrategyMetrics) RecordChange(strategyType, action string) {
	sm.changesTotal.WithLabelValues(strategyType, action).Inc()
}
