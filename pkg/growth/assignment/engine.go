package assignment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/growth/pkg/growth"
)

// Request describes one assignment call.
type Request struct {
	ExperimentID string
	SubjectID    string

	// Variants lists the variant labels. nil selects growth.DefaultVariants;
	// an explicit empty slice is rejected.
	Variants []string

	// StrategyVersion optionally tags the assignment with the strategy
	// version in effect.
	StrategyVersion string
}

// Engine assigns subjects to experiment variants. The first assignment for
// an (experiment, subject) pair is persisted and returned on every later call,
// even if the variant list changes.
type Engine struct {
	store    growth.AssignmentStore
	variants []string
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithDefaultVariants overrides the variants used when a request has none.
func WithDefaultVariants(variants []string) Option {
	return func(e *Engine) {
		if len(variants) > 0 {
			e.variants = append([]string(nil), variants...)
		}
	}
}

// WithClock sets the time source used for AssignedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an assignment engine backed by store.
func NewEngine(store growth.AssignmentStore, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		variants: growth.DefaultVariants,
		now:      time.Now,
		logger:   slog.Default().With("component", "growth.assignment"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Assign returns the subject's variant, creating the assignment on first call.
//
// When two callers race on a new key, exactly one insert lands and both
// return the stored winner; the loser reports NewAssignment=false.
func (e *Engine) Assign(ctx context.Context, req Request) (*growth.Assignment, error) {
	variants, err := e.validate(req)
	if err != nil {
		return nil, err
	}

	existing, err := e.store.GetAssignment(ctx, req.ExperimentID, req.SubjectID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		existing.NewAssignment = false
		return existing, nil
	}

	idx, err := Bucket(req.ExperimentID, req.SubjectID, len(variants))
	if err != nil {
		return nil, growth.NewValidationError("variants", err.Error())
	}

	candidate := &growth.Assignment{
		ExperimentID:    req.ExperimentID,
		SubjectID:       req.SubjectID,
		Variant:         variants[idx],
		StrategyVersion: req.StrategyVersion,
		AssignedAt:      growth.Truncate(e.now()),
	}

	inserted, err := e.store.InsertAssignment(ctx, candidate)
	if err != nil {
		return nil, err
	}
	if inserted {
		candidate.NewAssignment = true
		e.logger.Debug("assignment created",
			"experiment_id", req.ExperimentID,
			"subject_id", req.SubjectID,
			"variant", candidate.Variant,
		)
		return candidate, nil
	}

	// Lost the race: the stored row is authoritative.
	winner, err := e.store.GetAssignment(ctx, req.ExperimentID, req.SubjectID)
	if err != nil {
		return nil, err
	}
	if winner == nil {
		return nil, growth.NewStorageError(growth.BackendName(e.store), "reread_assignment",
			fmt.Errorf("assignment for %s/%s vanished after conflict", req.ExperimentID, req.SubjectID))
	}
	winner.NewAssignment = false
	return winner, nil
}

func (e *Engine) validate(req Request) ([]string, error) {
	if req.ExperimentID == "" {
		return nil, growth.NewValidationError("experiment_id", "must not be empty")
	}
	if req.SubjectID == "" {
		return nil, growth.NewValidationError("subject_id", "must not be empty")
	}

	variants := req.Variants
	if variants == nil {
		variants = e.variants
	}
	if len(variants) == 0 {
		return nil, growth.NewValidationError("variants", "at least one variant is required")
	}

	seen := make(map[string]struct{}, len(variants))
	for _, v := range variants {
		if v == "" {
			return nil, growth.NewValidationError("variants", "variant labels must not be empty")
		}
		if _, dup := seen[v]; dup {
			return nil, growth.NewValidationError("variants", fmt.Sprintf("duplicate variant %q", v))
		}
		seen[v] = struct{}{}
	}
	return variants, nil
}
