package metrics

import (
	"strings"
	"sync"
	"time"

	"mercator-hq/growth/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// OverflowLabel replaces label values once the cardinality limit is reached.
const OverflowLabel = "other"

// Collector is the main orchestrator for all Prometheus metrics of the
// growth engine. It manages metric registration and provides a unified
// interface for recording metrics across all components.
//
// Experiment and variant labels come from callers, so they pass through a
// CardinalityLimiter before they reach a metric. A nil *Collector is valid
// and records nothing.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	// Assignment, event and comparison metrics
	experimentMetrics *ExperimentMetrics

	// Strategy activation and rollback metrics
	strategyMetrics *StrategyMetrics

	// Per-operation latency and error metrics
	operationMetrics *OperationMetrics

	// Cardinality tracking
	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is used.
//
// Example:
//
//	cfg := &config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "growth",
//		Subsystem: "engine",
//	}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	// Work on a copy so defaults never leak into the caller's config
	c := *cfg
	if c.Namespace == "" {
		c.Namespace = config.DefaultMetricsNamespace
	}
	if c.Subsystem == "" {
		c.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(c.DurationBuckets) == 0 {
		c.DurationBuckets = config.DefaultDurationBuckets()
	}
	if c.MaxLabelSets <= 0 {
		c.MaxLabelSets = config.DefaultMaxLabelSets
	}

	return &Collector{
		config:             &c,
		registry:           registry,
		experimentMetrics:  NewExperimentMetrics(&c, registry),
		strategyMetrics:    NewStrategyMetrics(&c, registry),
		operationMetrics:   NewOperationMetrics(&c, registry),
		cardinalityLimiter: NewCardinalityLimiter(c.MaxLabelSets),
	}
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordAssignment counts an assignment call.
//
// Parameters:
//   - experiment: experiment identifier
//   - variant: returned variant
//   - created: true when this call created the assignment
func (c *Collector) RecordAssignment(experiment, variant string, created bool) {
	if !c.enabled() {
		return
	}

	outcome := "existing"
	if created {
		outcome = "created"
	}
	experiment, variant = c.limit("assignment", experiment, variant)
	c.experimentMetrics.RecordAssignment(experiment, variant, outcome)
}

// RecordEvent counts a stored funnel event.
//
// Parameters:
//   - stage: funnel stage
//   - attributed: true when the event carries a variant
func (c *Collector) RecordEvent(stage string, attributed bool) {
	if !c.enabled() {
		return
	}

	stage, _ = c.limit("event", stage, "")
	c.experimentMetrics.RecordEvent(stage, attributed)
}

// UpdateComparison publishes the conversion rate of each variant and the
// p-value of the comparison. A nil pValue removes the p-value series.
func (c *Collector) UpdateComparison(experiment string, rates map[string]float64, pValue *float64) {
	if !c.enabled() {
		return
	}

	for variant, rate := range rates {
		e, v := c.limit("comparison", experiment, variant)
		c.experimentMetrics.SetConversionRate(e, v, rate)
	}

	e, _ := c.limit("comparison", experiment, "")
	c.experimentMetrics.SetPValue(e, pValue)
}

// UpdateFunnelSubjects publishes distinct subjects per stage for the most
// recent bucket of a funnel report.
func (c *Collector) UpdateFunnelSubjects(counts map[string]int) {
	if !c.enabled() {
		return
	}

	c.experimentMetrics.ResetFunnelSubjects()
	for stage, n := range counts {
		s, _ := c.limit("funnel", stage, "")
		c.experimentMetrics.SetFunnelSubjects(s, n)
	}
}

// RecordStrategyChange counts a strategy registry change.
//
// Parameters:
//   - strategyType: strategy type
//   - action: "activate", "register" or "rollback"
func (c *Collector) RecordStrategyChange(strategyType, action string) {
	if !c.enabled() {
		return
	}

	strategyType, _ = c.limit("strategy", strategyType, "")
	c.strategyMetrics.RecordChange(strategyType, action)
}

// RecordOperation records the latency of a facade operation. A non-empty
// kind ("invalid_input", "storage", "internal") also counts a failure.
func (c *Collector) RecordOperation(operation string, duration time.Duration, kind string) {
	if !c.enabled() {
		return
	}

	c.operationMetrics.Observe(operation, duration)
	if kind != "" {
		c.operationMetrics.RecordError(operation, kind)
	}
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// limit maps label values that would exceed the cardinality limit to
// OverflowLabel.
func (c *Collector) limit(metric, a, b string) (string, string) {
	labelSet := strings.Join([]string{metric, a, b}, "\x00")
	if c.cardinalityLimiter.Allow(labelSet) {
		return a, b
	}
	if b != "" {
		b = OverflowLabel
	}
	return OverflowLabel, b
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label combinations.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether a label set may be used: it already exists or the
// limit has not been reached yet.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
