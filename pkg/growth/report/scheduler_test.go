package report

import (
	"context"
	"testing"
	"time"
)

func TestScheduler_Start(t *testing.T) {
	tests := []struct {
		name        string
		schedule    string
		wantRunning bool
		wantError   bool
	}{
		{name: "every 15 minutes", schedule: "*/15 * * * *", wantRunning: true},
		{name: "hourly", schedule: "0 * * * *", wantRunning: true},
		{name: "empty schedule", schedule: "", wantRunning: false},
		{name: "invalid schedule", schedule: "invalid cron", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testReportsConfig()
			cfg.Schedule = tt.schedule
			scheduler := NewScheduler(NewJob(&stubSource{}, cfg, nil))

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := scheduler.Start(ctx)
			if (err != nil) != tt.wantError {
				t.Errorf("Start() error = %v, wantError %v", err, tt.wantError)
			}
			if scheduler.IsRunning() != tt.wantRunning {
				t.Errorf("IsRunning() = %v, want %v", scheduler.IsRunning(), tt.wantRunning)
			}

			next := scheduler.NextRun()
			if tt.wantRunning {
				if next == nil || !next.After(time.Now()) {
					t.Errorf("NextRun() = %v, want a future time", next)
				}
			} else if next != nil {
				t.Errorf("NextRun() = %v, want nil", next)
			}

			scheduler.Stop()
		})
	}
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	scheduler := NewScheduler(NewJob(&stubSource{}, testReportsConfig(), nil))

	ctx, cancel := context.WithCancel(context.Background())
	if err := scheduler.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for scheduler.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if scheduler.IsRunning() {
		t.Error("scheduler still running after context cancel")
	}

	// Stop after cancel is a no-op.
	scheduler.Stop()
}

func TestScheduler_Reschedule(t *testing.T) {
	scheduler := NewScheduler(NewJob(&stubSource{}, testReportsConfig(), nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := scheduler.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer scheduler.Stop()

	if err := scheduler.Reschedule(ctx, "not a schedule"); err == nil {
		t.Error("Reschedule() accepted an invalid expression")
	}
	if err := scheduler.Reschedule(ctx, "0 0 1 1 *"); err != nil {
		t.Fatalf("Reschedule() error = %v", err)
	}

	next := scheduler.NextRun()
	if next == nil {
		t.Fatal("NextRun() = nil after reschedule")
	}
	if next.Month() != time.January || next.Day() != 1 || next.Hour() != 0 {
		t.Errorf("NextRun() = %v, want midnight on January 1", next)
	}
	if got := len(scheduler.cron.Entries()); got != 1 {
		t.Errorf("cron has %d entries, want 1", got)
	}
}

func TestScheduler_RunsJob(t *testing.T) {
	src := &stubSource{}
	cfg := testReportsConfig()
	cfg.Schedule = "@every 1s"
	scheduler := NewScheduler(NewJob(src, cfg, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := scheduler.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer scheduler.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for src.runCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if src.runCount() == 0 {
		t.Error("scheduled job never ran")
	}
}
