package funnel

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"mercator-hq/growth/pkg/growth"
)

// SignificanceLevel is the p-value threshold for SignificantAt005.
const SignificanceLevel = 0.05

// EventRequest describes one funnel checkpoint to record.
type EventRequest struct {
	SubjectID       string
	Stage           string
	ExperimentID    string
	Variant         string
	StrategyVersion string
}

// Store is the storage Analytics needs: the event log plus assignment
// lookups for variant attribution.
type Store interface {
	growth.EventStore
	GetAssignment(ctx context.Context, experimentID, subjectID string) (*growth.Assignment, error)
}

// Analytics records funnel events and computes stage and variant statistics.
type Analytics struct {
	store     Store
	fromStage string
	toStage   string
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures Analytics.
type Option func(*Analytics)

// WithDefaultStages overrides the stages compared when a caller leaves them empty.
func WithDefaultStages(from, to string) Option {
	return func(a *Analytics) {
		if from != "" {
			a.fromStage = from
		}
		if to != "" {
			a.toStage = to
		}
	}
}

// WithClock sets the time source for event timestamps and the stats window.
func WithClock(now func() time.Time) Option {
	return func(a *Analytics) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets the analytics logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analytics) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAnalytics creates funnel analytics backed by store.
func NewAnalytics(store Store, opts ...Option) *Analytics {
	a := &Analytics{
		store:     store,
		fromStage: growth.DefaultFromStage,
		toStage:   growth.DefaultToStage,
		now:       time.Now,
		logger:    slog.Default().With("component", "growth.funnel"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RecordEvent appends a funnel event.
//
// When the request names an experiment but no variant, the variant and
// (if unset) strategy version are copied from the subject's stored
// assignment. Without an assignment the event is stored unattributed.
func (a *Analytics) RecordEvent(ctx context.Context, req EventRequest) (*growth.FunnelEvent, error) {
	if req.SubjectID == "" {
		return nil, growth.NewValidationError("subject_id", "must not be empty")
	}
	if req.Stage == "" {
		return nil, growth.NewValidationError("stage", "must not be empty")
	}

	event := &growth.FunnelEvent{
		SubjectID:       req.SubjectID,
		Stage:           req.Stage,
		ExperimentID:    req.ExperimentID,
		Variant:         req.Variant,
		StrategyVersion: req.StrategyVersion,
		CreatedAt:       growth.Truncate(a.now()),
	}

	if event.ExperimentID != "" && event.Variant == "" {
		assigned, err := a.store.GetAssignment(ctx, event.ExperimentID, event.SubjectID)
		if err != nil {
			return nil, err
		}
		if assigned != nil {
			event.Variant = assigned.Variant
			if event.StrategyVersion == "" {
				event.StrategyVersion = assigned.StrategyVersion
			}
		}
	}

	id, err := a.store.AppendEvent(ctx, event)
	if err != nil {
		return nil, err
	}
	event.ID = id

	a.logger.Debug("funnel event recorded",
		"event_id", id,
		"stage", event.Stage,
		"experiment_id", event.ExperimentID,
		"variant", event.Variant,
	)

	return event, nil
}

// Stats counts distinct subjects per stage per time bucket over the last
// days days. bucket "day" labels buckets YYYY-MM-DD; anything else groups
// by ISO week and labels them YYYY-Www. Buckets without events are omitted.
func (a *Analytics) Stats(ctx context.Context, days int, bucket string) (*growth.FunnelStats, error) {
	if days <= 0 {
		return nil, growth.NewValidationError("days", fmt.Sprintf("must be positive, got %d", days))
	}
	if bucket != growth.BucketDay {
		bucket = growth.BucketWeek
	}

	since := a.now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	hits, err := a.store.StageDays(ctx, since)
	if err != nil {
		return nil, err
	}

	subjects := make(map[string]map[string]map[string]struct{})
	for _, hit := range hits {
		label := bucketLabel(hit.Day, bucket)
		stages := subjects[label]
		if stages == nil {
			stages = make(map[string]map[string]struct{})
			subjects[label] = stages
		}
		if stages[hit.Stage] == nil {
			stages[hit.Stage] = make(map[string]struct{})
		}
		stages[hit.Stage][hit.SubjectID] = struct{}{}
	}

	stats := &growth.FunnelStats{
		Days:    days,
		Bucket:  bucket,
		Series:  make(map[string]map[string]int, len(subjects)),
		Buckets: make([]string, 0, len(subjects)),
	}
	for label, stages := range subjects {
		counts := make(map[string]int, len(stages))
		for stage, set := range stages {
			counts[stage] = len(set)
		}
		stats.Series[label] = counts
		stats.Buckets = append(stats.Buckets, label)
	}
	sort.Strings(stats.Buckets)

	return stats, nil
}

// bucketLabel renders the bucket label for a UTC day.
func bucketLabel(day time.Time, bucket string) string {
	if bucket == growth.BucketDay {
		return day.UTC().Format(time.DateOnly)
	}
	year, week := day.UTC().ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// CompareVariants compares conversion from fromStage to toStage across the
// experiment's variants. Empty stages fall back to the configured defaults.
//
// The first two variants in lexicographic order feed a pooled
// two-proportion z-test. With fewer than two variants PValue is nil.
func (a *Analytics) CompareVariants(ctx context.Context, experimentID, fromStage, toStage string) (*growth.Comparison, error) {
	if experimentID == "" {
		return nil, growth.NewValidationError("experiment_id", "must not be empty")
	}
	if fromStage == "" {
		fromStage = a.fromStage
	}
	if toStage == "" {
		toStage = a.toStage
	}

	fromCounts, err := a.store.DistinctSubjectsByVariant(ctx, experimentID, fromStage)
	if err != nil {
		return nil, err
	}
	toCounts, err := a.store.DistinctSubjectsByVariant(ctx, experimentID, toStage)
	if err != nil {
		return nil, err
	}

	result := &growth.Comparison{
		ExperimentID: experimentID,
		FromStage:    fromStage,
		ToStage:      toStage,
		Variants:     make(map[string]growth.VariantStats),
		Order:        []string{},
	}

	seen := make(map[string]struct{})
	for v := range fromCounts {
		seen[v] = struct{}{}
	}
	for v := range toCounts {
		seen[v] = struct{}{}
	}
	for v := range seen {
		result.Order = append(result.Order, v)
	}
	sort.Strings(result.Order)

	for _, v := range result.Order {
		from, to := fromCounts[v], toCounts[v]
		rate := 0.0
		if from > 0 {
			rate = round(float64(to)/float64(from), 4)
		}
		result.Variants[v] = growth.VariantStats{
			FromStageUsers: from,
			ToStageUsers:   to,
			ConversionRate: rate,
		}
	}

	if len(result.Order) >= 2 {
		first := result.Variants[result.Order[0]]
		second := result.Variants[result.Order[1]]
		p := TwoProportionPValue(first.ConversionRate, second.ConversionRate, first.FromStageUsers, second.FromStageUsers)
		rounded := round(p, 6)
		result.PValue = &rounded
		result.SignificantAt005 = p < SignificanceLevel
	}

	return result, nil
}
