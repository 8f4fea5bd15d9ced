package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/growth/pkg/config"
	"mercator-hq/growth/pkg/growth"

	"github.com/google/uuid"
)

// Source computes the statistics a report run publishes. *service.Service
// satisfies it, and publishing gauges happens as a side effect of each call.
type Source interface {
	FunnelStats(ctx context.Context, days int, bucket string) (*growth.FunnelStats, error)
	CompareVariants(ctx context.Context, experimentID, fromStage, toStage string) (*growth.Comparison, error)
}

// Report is the outcome of one run.
type Report struct {
	RunID       string               `json:"run_id"`
	StartedAt   time.Time            `json:"started_at"`
	Duration    time.Duration        `json:"duration"`
	Funnel      *growth.FunnelStats  `json:"funnel,omitempty"`
	Comparisons []*growth.Comparison `json:"comparisons"`
}

// Job recomputes the configured funnel window and variant comparisons.
// It is safe for concurrent use; UpdateConfig may be called while a run
// is in progress and takes effect on the next run.
type Job struct {
	source Source
	now    func() time.Time
	logger *slog.Logger

	mu   sync.Mutex
	cfg  config.ReportsConfig
	last *Report
}

// NewJob creates a report job. A nil logger uses slog.Default.
func NewJob(source Source, cfg *config.ReportsConfig, logger *slog.Logger) *Job {
	if logger == nil {
		logger = slog.Default()
	}
	j := &Job{
		source: source,
		now:    time.Now,
		logger: logger.With("component", "growth.report"),
	}
	j.UpdateConfig(cfg)
	return j
}

// UpdateConfig replaces the funnel window and comparison list.
func (j *Job) UpdateConfig(cfg *config.ReportsConfig) {
	if cfg == nil {
		return
	}
	c := *cfg
	c.Comparisons = append([]config.ComparisonConfig(nil), cfg.Comparisons...)

	j.mu.Lock()
	j.cfg = c
	j.mu.Unlock()
}

// Config returns a copy of the current configuration.
func (j *Job) Config() config.ReportsConfig {
	j.mu.Lock()
	defer j.mu.Unlock()
	c := j.cfg
	c.Comparisons = append([]config.ComparisonConfig(nil), j.cfg.Comparisons...)
	return c
}

// RunOnce computes one report. A failing comparison does not stop the
// others; all failures are joined into the returned error, and the
// partial report is still returned and retained.
func (j *Job) RunOnce(ctx context.Context) (*Report, error) {
	cfg := j.Config()
	start := j.now()

	r := &Report{
		RunID:       uuid.NewString(),
		StartedAt:   start.UTC(),
		Comparisons: make([]*growth.Comparison, 0, len(cfg.Comparisons)),
	}
	logger := j.logger.With("run_id", r.RunID)

	var errs []error

	stats, err := j.source.FunnelStats(ctx, cfg.FunnelDays, cfg.FunnelBucket)
	if err != nil {
		errs = append(errs, fmt.Errorf("funnel stats: %w", err))
	} else {
		r.Funnel = stats
	}

	for _, c := range cfg.Comparisons {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		cmp, err := j.source.CompareVariants(ctx, c.ExperimentID, c.FromStage, c.ToStage)
		if err != nil {
			errs = append(errs, fmt.Errorf("compare %s: %w", c.ExperimentID, err))
			continue
		}
		r.Comparisons = append(r.Comparisons, cmp)

		attrs := []any{
			"experiment_id", cmp.ExperimentID,
			"from_stage", cmp.FromStage,
			"to_stage", cmp.ToStage,
			"variants", len(cmp.Order),
			"significant", cmp.SignificantAt005,
		}
		if cmp.PValue != nil {
			attrs = append(attrs, "p_value", *cmp.PValue)
		}
		logger.InfoContext(ctx, "Comparison computed", attrs...)
	}

	r.Duration = j.now().Sub(start)

	j.mu.Lock()
	j.last = r
	j.mu.Unlock()

	err = errors.Join(errs...)
	if err != nil {
		logger.ErrorContext(ctx, "Report run completed with errors",
			"comparisons", len(r.Comparisons),
			"failures", len(errs),
			"error", err,
		)
		return r, err
	}

	logger.InfoContext(ctx, "Report run completed",
		"comparisons", len(r.Comparisons),
		"duration_ms", r.Duration.Milliseconds(),
	)
	return r, nil
}

// Last returns the most recent report, or nil before the first run.
func (j *Job) Last() *Report {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.last
}
