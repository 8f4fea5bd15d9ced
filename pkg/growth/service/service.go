package service

import (
	"context"
	"log/slog"
	"time"

	"mercator-hq/growth/pkg/config"
	"mercator-hq/growth/pkg/growth"
	"mercator-hq/growth/pkg/growth/assignment"
	"mercator-hq/growth/pkg/growth/funnel"
	"mercator-hq/growth/pkg/growth/rollout"
	"mercator-hq/growth/pkg/telemetry/logging"
	"mercator-hq/growth/pkg/telemetry/metrics"
	"mercator-hq/growth/pkg/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// Operation names used for spans, metrics and logs.
const (
	OpAssignVariant      = "assign_variant"
	OpRecordEvent        = "record_event"
	OpFunnelStats        = "funnel_stats"
	OpCompareVariants    = "compare_variants"
	OpSetStrategyVersion = "set_strategy_version"
	OpRollbackToBaseline = "rollback_to_baseline"
	OpGetActiveStrategy  = "get_active_strategy"
	OpStrategyVersions   = "strategy_versions"
)

// Error kinds recorded on failed operations.
const (
	KindInvalidInput = "invalid_input"
	KindStorage      = "storage"
	KindInternal     = "internal"
)

// Options wires optional collaborators into a Service. Every field may be
// left zero.
type Options struct {
	// Experiments supplies default variants and comparison stages.
	Experiments *config.ExperimentsConfig

	Logger  *slog.Logger
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer

	// Clock overrides time.Now for stored timestamps.
	Clock func() time.Time
}

// Service is the single entry point of the growth engine. It delegates to
// the assignment engine, funnel analytics and rollout governor, and adds
// logging, metrics and a span to each call.
type Service struct {
	store     growth.Storage
	assigner  *assignment.Engine
	analytics *funnel.Analytics
	governor  *rollout.Governor

	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
}

// New creates a service over store. opts may be nil.
func New(store growth.Storage, opts *Options) *Service {
	if opts == nil {
		opts = &Options{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		assignOpts = []assignment.Option{assignment.WithLogger(logger.With("component", "growth.assignment"))}
		funnelOpts = []funnel.Option{funnel.WithLogger(logger.With("component", "growth.funnel"))}
		govOpts    = []rollout.Option{rollout.WithLogger(logger.With("component", "growth.rollout"))}
	)
	if exp := opts.Experiments; exp != nil {
		assignOpts = append(assignOpts, assignment.WithDefaultVariants(exp.DefaultVariants))
		funnelOpts = append(funnelOpts, funnel.WithDefaultStages(exp.DefaultFromStage, exp.DefaultToStage))
	}
	if opts.Clock != nil {
		assignOpts = append(assignOpts, assignment.WithClock(opts.Clock))
		funnelOpts = append(funnelOpts, funnel.WithClock(opts.Clock))
		govOpts = append(govOpts, rollout.WithClock(opts.Clock))
	}

	return &Service{
		store:     store,
		assigner:  assignment.NewEngine(store, assignOpts...),
		analytics: funnel.NewAnalytics(store, funnelOpts...),
		governor:  rollout.NewGovernor(store, govOpts...),
		logger:    logger.With("component", "growth.service"),
		metrics:   opts.Metrics,
		tracer:    opts.Tracer,
	}
}

// AssignVariant returns the subject's variant for an experiment, creating
// the assignment on first contact.
func (s *Service) AssignVariant(ctx context.Context, req assignment.Request) (a *growth.Assignment, err error) {
	ctx = logging.WithExperimentID(ctx, req.ExperimentID)
	ctx = logging.WithSubjectID(ctx, req.SubjectID)
	ctx, span, done := s.begin(ctx, OpAssignVariant,
		tracing.NewAttributeBuilder().WithExperiment(req.ExperimentID, req.SubjectID))
	defer func() { done(err) }()

	a, err = s.assigner.Assign(ctx, req)
	if err != nil {
		return nil, err
	}

	tracing.NewAttributeBuilder().
		WithVariant(a.Variant).
		WithBool(tracing.AttrCreated, a.NewAssignment).
		Apply(span)
	s.metrics.RecordAssignment(a.ExperimentID, a.Variant, a.NewAssignment)
	if a.NewAssignment {
		s.logger.InfoContext(ctx, "Assigned variant", "variant", a.Variant)
	}
	return a, nil
}

// RecordEvent appends a funnel checkpoint, attributing it to the
// subject's variant when an experiment is named.
func (s *Service) RecordEvent(ctx context.Context, req funnel.EventRequest) (e *growth.FunnelEvent, err error) {
	ctx = logging.WithSubjectID(ctx, req.SubjectID)
	if req.ExperimentID != "" {
		ctx = logging.WithExperimentID(ctx, req.ExperimentID)
	}
	ctx, span, done := s.begin(ctx, OpRecordEvent,
		tracing.NewAttributeBuilder().WithExperiment(req.ExperimentID, req.SubjectID).WithStage(req.Stage))
	defer func() { done(err) }()

	e, err = s.analytics.RecordEvent(ctx, req)
	if err != nil {
		return nil, err
	}

	tracing.NewAttributeBuilder().WithVariant(e.Variant).Apply(span)
	s.metrics.RecordEvent(e.Stage, e.Variant != "")
	return e, nil
}

// FunnelStats returns distinct subjects per stage, bucketed by day or ISO
// week, over the last days days.
func (s *Service) FunnelStats(ctx context.Context, days int, bucket string) (stats *growth.FunnelStats, err error) {
	ctx, _, done := s.begin(ctx, OpFunnelStats,
		tracing.NewAttributeBuilder().WithWindow(days, bucket))
	defer func() { done(err) }()

	stats, err = s.analytics.Stats(ctx, days, bucket)
	if err != nil {
		return nil, err
	}

	if n := len(stats.Buckets); n > 0 {
		s.metrics.UpdateFunnelSubjects(stats.Series[stats.Buckets[n-1]])
	} else {
		s.metrics.UpdateFunnelSubjects(nil)
	}
	return stats, nil
}

// CompareVariants compares the from→to conversion rate of each variant of
// an experiment. Empty stages fall back to the configured defaults.
func (s *Service) CompareVariants(ctx context.Context, experimentID, fromStage, toStage string) (cmp *growth.Comparison, err error) {
	ctx = logging.WithExperimentID(ctx, experimentID)
	ctx, span, done := s.begin(ctx, OpCompareVariants,
		tracing.NewAttributeBuilder().WithExperiment(experimentID, "").WithStages(fromStage, toStage))
	defer func() { done(err) }()

	cmp, err = s.analytics.CompareVariants(ctx, experimentID, fromStage, toStage)
	if err != nil {
		return nil, err
	}

	rates := make(map[string]float64, len(cmp.Variants))
	for variant, vs := range cmp.Variants {
		rates[variant] = vs.ConversionRate
	}
	if cmp.PValue != nil {
		span.SetAttributes(attribute.Float64(tracing.AttrPValue, *cmp.PValue))
	}
	s.metrics.UpdateComparison(experimentID, rates, cmp.PValue)
	return cmp, nil
}

// SetStrategyVersion registers a strategy version and optionally activates
// it. It returns the active version of the type afterwards, or nil.
func (s *Service) SetStrategyVersion(ctx context.Context, strategyType, version string, opts rollout.SetOptions) (active *growth.StrategyVersion, err error) {
	ctx = logging.WithStrategyType(ctx, strategyType)
	ctx, _, done := s.begin(ctx, OpSetStrategyVersion,
		tracing.NewAttributeBuilder().
			WithStrategy(strategyType, version).
			WithBool(tracing.AttrStrategyActive, opts.Active).
			WithBool(tracing.AttrBaseline, opts.Baseline))
	defer func() { done(err) }()

	active, err = s.governor.SetVersion(ctx, strategyType, version, opts)
	if err != nil {
		return nil, err
	}

	action := "register"
	if opts.Active {
		action = "activate"
	}
	s.metrics.RecordStrategyChange(strategyType, action)
	return active, nil
}

// RollbackToBaseline reactivates the most recent baseline of the type. It
// returns nil, with a nil error, when the type has no baseline.
func (s *Service) RollbackToBaseline(ctx context.Context, strategyType string) (restored *growth.StrategyVersion, err error) {
	ctx = logging.WithStrategyType(ctx, strategyType)
	ctx, span, done := s.begin(ctx, OpRollbackToBaseline,
		tracing.NewAttributeBuilder().WithStrategy(strategyType, ""))
	defer func() { done(err) }()

	restored, err = s.governor.RollbackToBaseline(ctx, strategyType)
	if err != nil || restored == nil {
		return nil, err
	}

	span.SetAttributes(attribute.String(tracing.AttrStrategyVersion, restored.Version))
	s.metrics.RecordStrategyChange(strategyType, "rollback")
	return restored, nil
}

// GetActiveStrategy returns the active version of the type, or nil.
func (s *Service) GetActiveStrategy(ctx context.Context, strategyType string) (v *growth.StrategyVersion, err error) {
	ctx = logging.WithStrategyType(ctx, strategyType)
	ctx, _, done := s.begin(ctx, OpGetActiveStrategy,
		tracing.NewAttributeBuilder().WithStrategy(strategyType, ""))
	defer func() { done(err) }()

	return s.governor.ActiveStrategy(ctx, strategyType)
}

// StrategyVersions lists every registered version of the type, oldest first.
func (s *Service) StrategyVersions(ctx context.Context, strategyType string) (versions []*growth.StrategyVersion, err error) {
	ctx = logging.WithStrategyType(ctx, strategyType)
	ctx, _, done := s.begin(ctx, OpStrategyVersions,
		tracing.NewAttributeBuilder().WithStrategy(strategyType, ""))
	defer func() { done(err) }()

	return s.governor.Versions(ctx, strategyType)
}

// Ping checks the backing store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ErrorKind classifies err for metrics and logs. It returns "" for nil.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case growth.IsInvalidInput(err):
		return KindInvalidInput
	case growth.IsStorageUnavailable(err):
		return KindStorage
	default:
		return KindInternal
	}
}
