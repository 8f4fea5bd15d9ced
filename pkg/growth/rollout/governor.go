package rollout

import (
	"context"
	"log/slog"
	"time"

	"mercator-hq/growth/pkg/growth"
)

// SetOptions are the flags written by SetVersion.
type SetOptions struct {
	Active   bool
	Baseline bool
}

// Governor manages strategy versions: registration, activation and
// rollback to the last known-good baseline.
type Governor struct {
	store  growth.StrategyStore
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Governor.
type Option func(*Governor)

// WithClock sets the time source for new version rows.
func WithClock(now func() time.Time) Option {
	return func(g *Governor) {
		if now != nil {
			g.now = now
		}
	}
}

// WithLogger sets the governor logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Governor) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGovernor creates a rollout governor backed by store.
func NewGovernor(store growth.StrategyStore, opts ...Option) *Governor {
	g := &Governor{
		store:  store,
		now:    time.Now,
		logger: slog.Default().With("component", "growth.rollout"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SetVersion registers or updates a version of strategyType. Activating a
// version deactivates every other version of the type atomically. It
// returns the active version for the type, which is nil when none is active.
func (g *Governor) SetVersion(ctx context.Context, strategyType, version string, opts SetOptions) (*growth.StrategyVersion, error) {
	if strategyType == "" {
		return nil, growth.NewValidationError("strategy_type", "must not be empty")
	}
	if version == "" {
		return nil, growth.NewValidationError("version", "must not be empty")
	}

	active, err := g.store.SaveStrategyVersion(ctx, &growth.StrategyVersion{
		StrategyType: strategyType,
		Version:      version,
		IsActive:     opts.Active,
		IsBaseline:   opts.Baseline,
		CreatedAt:    growth.Truncate(g.now()),
	})
	if err != nil {
		return nil, err
	}

	g.logger.Info("strategy version saved",
		"strategy_type", strategyType,
		"version", version,
		"active", opts.Active,
		"baseline", opts.Baseline,
	)

	return active, nil
}

// RollbackToBaseline activates the most recently created baseline of
// strategyType. It returns nil, without error, when the type has no baseline.
func (g *Governor) RollbackToBaseline(ctx context.Context, strategyType string) (*growth.StrategyVersion, error) {
	if strategyType == "" {
		return nil, growth.NewValidationError("strategy_type", "must not be empty")
	}

	baseline, err := g.store.LatestBaseline(ctx, strategyType)
	if err != nil {
		return nil, err
	}
	if baseline == nil {
		g.logger.Warn("rollback requested without a baseline", "strategy_type", strategyType)
		return nil, nil
	}

	active, err := g.SetVersion(ctx, strategyType, baseline.Version, SetOptions{Active: true, Baseline: true})
	if err != nil {
		return nil, err
	}

	g.logger.Info("strategy rolled back to baseline",
		"strategy_type", strategyType,
		"version", baseline.Version,
	)
	return active, nil
}

// ActiveStrategy returns the active version of strategyType, or nil.
func (g *Governor) ActiveStrategy(ctx context.Context, strategyType string) (*growth.StrategyVersion, error) {
	if strategyType == "" {
		return nil, growth.NewValidationError("strategy_type", "must not be empty")
	}
	return g.store.ActiveStrategy(ctx, strategyType)
}

// Versions lists every registered version of strategyType, oldest first.
func (g *Governor) Versions(ctx context.Context, strategyType string) ([]*growth.StrategyVersion, error) {
	if strategyType == "" {
		return nil, growth.NewValidationError("strategy_type", "must not be empty")
	}
	return g.store.StrategyVersions(ctx, strategyType)
}
