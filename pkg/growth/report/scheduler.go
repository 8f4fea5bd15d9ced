package report

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs a Job on a cron schedule.
type Scheduler struct {
	job      *Job
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	schedule string
	entry    cron.EntryID
	running  bool
}

// NewScheduler creates a scheduler for job. Overlapping runs are skipped.
func NewScheduler(job *Job) *Scheduler {
	return &Scheduler{
		job: job,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
		)),
		logger: job.logger,
	}
}

// Start schedules the job using the job's configured cron expression and
// stops when ctx is cancelled.
//
// Common expressions:
//   - "*/15 * * * *" - every 15 minutes
//   - "0 * * * *"    - hourly
//   - "0 6 * * *"    - daily at 6 AM
//
// An empty schedule leaves the scheduler idle.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedule := s.job.Config().Schedule
	if schedule == "" {
		s.logger.Info("Report schedule not configured, skipping scheduler")
		return nil
	}

	if err := s.addLocked(ctx, schedule); err != nil {
		return err
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("Report scheduler started", "schedule", schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Reschedule replaces the cron expression of a running scheduler.
func (s *Scheduler) Reschedule(ctx context.Context, schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || schedule == s.schedule {
		return nil
	}

	old := s.entry
	if err := s.addLocked(ctx, schedule); err != nil {
		return err
	}
	s.cron.Remove(old)
	s.logger.Info("Report schedule changed", "schedule", schedule)
	return nil
}

func (s *Scheduler) addLocked(ctx context.Context, schedule string) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}

	id, err := s.cron.AddFunc(schedule, func() {
		// Errors are logged by the job.
		_, _ = s.job.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule report: %w", err)
	}
	s.entry = id
	s.schedule = schedule
	return nil
}

// Stop stops the scheduler and waits for a running report to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("Report scheduler stopped")
}

// IsRunning reports whether the scheduler is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled run, or nil when idle.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	next := s.cron.Entry(s.entry).Next
	if next.IsZero() {
		return nil
	}
	return &next
}
