package metrics

import (
	"strconv"

	"mercator-hq/growth/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ExperimentMetrics tracks assignments, funnel events and comparison results.
//
// Metrics:
//   - growth_engine_assignments_total: Assignment calls by experiment, variant and outcome
//   - growth_engine_events_total: Funnel events by stage and attribution
//   - growth_engine_conversion_rate: Latest conversion rate per experiment variant
//   - growth_engine_comparison_p_value: Latest comparison p-value per experiment
//   - growth_engine_funnel_subjects: Distinct subjects per stage in the latest bucket
type ExperimentMetrics struct {
	assignmentsTotal *prometheus.CounterVec
	eventsTotal      *prometheus.CounterVec
	conversionRate   *prometheus.GaugeVec
	pValue           *prometheus.GaugeVec
	funnelSubjects   *prometheus.GaugeVec
}

// NewExperimentMetrics creates and registers experiment metrics with the provided registry.
func NewExperimentMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ExperimentMetrics {
	em := &ExperimentMetrics{
		assignmentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "assignments_total",
				Help:      "Total number of assignment calls",
			},
			[]string{"experiment", "variant", "outcome"},
		),

		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "events_total",
				Help:      "Total number of recorded funnel events",
			},
			[]string{"stage", "attributed"},
		),

		conversionRate: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "conversion_rate",
				Help:      "Conversion rate per experiment variant at the last comparison",
			},
			[]string{"experiment", "variant"},
		),

		pValue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "comparison_p_value",
				Help:      "Two-proportion z-test p-value at the last comparison",
			},
			[]string{"experiment"},
		),

		funnelSubjects: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "funnel_subjects",
				Help:      "Distinct subjects per stage in the most recent funnel bucket",
			},
			[]string{"stage"},
		),
	}

	registry.MustRegister(
		em.assignmentsTotal,
		em.eventsTotal,
		em.conversionRate,
		em.pValue,
		em.funnelSubjects,
	)

	return em
}

// RecordAssignment counts an assignment call.
func (em *ExperimentMetrics) RecordAssignment(experiment, variant, outcome string) {
	em.assignmentsTotal.WithLabelValues(experiment, variant, outcome).Inc()
}

// RecordEvent counts a stored funnel event.
func (em *ExperimentMetrics) RecordEvent(stage string, attributed bool) {
	em.eventsTotal.WithLabelValues(stage, strconv.FormatBool(attributed)).Inc()
}

// SetConversionRate sets the conversion rate gauge for a variant.
func (em *ExperimentMetrics) SetConversionRate(experiment, variant string, rate float64) {
	em.conversionRate.WithLabelValues(experiment, variant).Set(rate)
}

// SetPValue sets the p-value gauge, or deletes it when p is nil.
func (em *ExperimentMetrics) SetPValue(experiment string, p *float64) {
	if p == nil {
		em.pValue.DeleteLabelValues(experiment)
		return
	}
	em.pValue.WithLabelValues(experiment).Set(*p)
}

// SetFunnelSubjects sets the distinct subject gauge for a stage.
func (em *ExperimentMetrics) SetFunnelSubjects(stage string, n int) {
	em.funnelSubjects.WithLabelValues(stage).Set(float64(n))
}

// ResetFunnelSubjects drops every stage so stale stages disappear.
func (em *ExperimentMetrics) ResetFunnelSubjects() {
	em.funnelSubjects.Reset()
}
