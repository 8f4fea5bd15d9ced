package funnel

import (
	"context"
	"testing"
	"time"

	"mercator-hq/growth/pkg/growth"
	"mercator-hq/growth/pkg/growth/storage"
)

// clock is a settable time source for tests.
type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestAnalytics(t *testing.T, start time.Time) (*Analytics, *storage.MemoryStorage, *clock) {
	t.Helper()
	store := storage.NewMemoryStorage()
	c := &clock{t: start}
	return NewAnalytics(store, WithClock(c.now)), store, c
}

func record(t *testing.T, a *Analytics, req EventRequest) *growth.FunnelEvent {
	t.Helper()
	e, err := a.RecordEvent(context.Background(), req)
	if err != nil {
		t.Fatalf("RecordEvent(%+v) failed: %v", req, err)
	}
	return e
}

// TestRecordEvent_AutoFillVariant tests attribution from a stored assignment.
func TestRecordEvent_AutoFillVariant(t *testing.T) {
	a, store, _ := newTestAnalytics(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	if _, err := store.InsertAssignment(ctx, &growth.Assignment{
		ExperimentID: "e1", SubjectID: "u1", Variant: "B", StrategyVersion: "v2",
	}); err != nil {
		t.Fatalf("InsertAssignment() failed: %v", err)
	}

	e := record(t, a, EventRequest{SubjectID: "u1", Stage: "inquiry", ExperimentID: "e1"})
	if e.Variant != "B" {
		t.Errorf("Variant = %q, want %q", e.Variant, "B")
	}
	if e.StrategyVersion != "v2" {
		t.Errorf("StrategyVersion = %q, want %q", e.StrategyVersion, "v2")
	}
	if e.ID == 0 {
		t.Error("Expected event ID to be set")
	}

	// An explicit strategy version is kept
	e = record(t, a, EventRequest{SubjectID: "u1", Stage: "quoted", ExperimentID: "e1", StrategyVersion: "v9"})
	if e.Variant != "B" || e.StrategyVersion != "v9" {
		t.Errorf("got variant=%q strategy=%q, want B/v9", e.Variant, e.StrategyVersion)
	}

	// An explicit variant is never overridden
	e = record(t, a, EventRequest{SubjectID: "u1", Stage: "quoted", ExperimentID: "e1", Variant: "A"})
	if e.Variant != "A" {
		t.Errorf("Variant = %q, want %q", e.Variant, "A")
	}
}

// TestRecordEvent_Unattributed tests events without a matching assignment.
func TestRecordEvent_Unattributed(t *testing.T) {
	a, _, _ := newTestAnalytics(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	e := record(t, a, EventRequest{SubjectID: "u1", Stage: "inquiry", ExperimentID: "e1"})
	if e.Variant != "" {
		t.Errorf("Variant = %q, want empty", e.Variant)
	}

	e = record(t, a, EventRequest{SubjectID: "u1", Stage: "inquiry"})
	if e.ExperimentID != "" || e.Variant != "" {
		t.Errorf("Expected no attribution, got %+v", e)
	}
}

// TestRecordEvent_Validation tests rejected events.
func TestRecordEvent_Validation(t *testing.T) {
	a, _, _ := newTestAnalytics(t, time.Now())

	for _, req := range []EventRequest{
		{Stage: "inquiry"},
		{SubjectID: "u1"},
	} {
		if _, err := a.RecordEvent(context.Background(), req); !growth.IsInvalidInput(err) {
			t.Errorf("RecordEvent(%+v) expected invalid input, got %v", req, err)
		}
	}
}

// TestStats_DailyDistinctSubjects tests daily bucketing and distinct counting.
func TestStats_DailyDistinctSubjects(t *testing.T) {
	day1 := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	a, _, c := newTestAnalytics(t, day1)

	record(t, a, EventRequest{SubjectID: "u1", Stage: "inquiry"})
	record(t, a, EventRequest{SubjectID: "u1", Stage: "inquiry"})
	record(t, a, EventRequest{SubjectID: "u2", Stage: "inquiry"})
	record(t, a, EventRequest{SubjectID: "u1", Stage: "ordered"})

	c.t = day1.Add(24 * time.Hour)
	record(t, a, EventRequest{SubjectID: "u3", Stage: "inquiry"})

	stats, err := a.Stats(context.Background(), 7, growth.BucketDay)
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}

	if stats.Bucket != growth.BucketDay || stats.Days != 7 {
		t.Errorf("Bucket/Days = %q/%d", stats.Bucket, stats.Days)
	}
	wantBuckets := []string{"2025-03-10", "2025-03-11"}
	if len(stats.Buckets) != len(wantBuckets) {
		t.Fatalf("Buckets = %v, want %v", stats.Buckets, wantBuckets)
	}
	for i, b := range wantBuckets {
		if stats.Buckets[i] != b {
			t.Errorf("Buckets[%d] = %q, want %q", i, stats.Buckets[i], b)
		}
	}

	if got := stats.Series["2025-03-10"]["inquiry"]; got != 2 {
		t.Errorf("2025-03-10 inquiry = %d, want 2", got)
	}
	if got := stats.Series["2025-03-10"]["ordered"]; got != 1 {
		t.Errorf("2025-03-10 ordered = %d, want 1", got)
	}
	if got := stats.Series["2025-03-11"]["inquiry"]; got != 1 {
		t.Errorf("2025-03-11 inquiry = %d, want 1", got)
	}
	if _, ok := stats.Series["2025-03-11"]["ordered"]; ok {
		t.Error("Expected no ordered entry for 2025-03-11")
	}
}

// TestStats_WeeklyISOLabels tests ISO week grouping across a year boundary.
func TestStats_WeeklyISOLabels(t *testing.T) {
	// Monday 2024-12-30 belongs to ISO week 2025-W01
	start := time.Date(2024, 12, 27, 12, 0, 0, 0, time.UTC)
	a, _, c := newTestAnalytics(t, start)

	record(t, a, EventRequest{SubjectID: "u1", Stage: "inquiry"})
	c.t = time.Date(2024, 12, 30, 12, 0, 0, 0, time.UTC)
	record(t, a, EventRequest{SubjectID: "u1", Stage: "inquiry"})
	c.t = time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC)
	record(t, a, EventRequest{SubjectID: "u1", Stage: "inquiry"})
	record(t, a, EventRequest{SubjectID: "u2", Stage: "inquiry"})

	for _, bucket := range []string{growth.BucketWeek, "anything-else"} {
		stats, err := a.Stats(context.Background(), 30, bucket)
		if err != nil {
			t.Fatalf("Stats() failed: %v", err)
		}
		if stats.Bucket != growth.BucketWeek {
			t.Errorf("Bucket = %q, want %q", stats.Bucket, growth.BucketWeek)
		}
		if len(stats.Buckets) != 2 || stats.Buckets[0] != "2024-W52" || stats.Buckets[1] != "2025-W01" {
			t.Fatalf("Buckets = %v, want [2024-W52 2025-W01]", stats.Buckets)
		}
		// u1 appears twice in 2025-W01 but counts once
		if got := stats.Series["2025-W01"]["inquiry"]; got != 2 {
			t.Errorf("2025-W01 inquiry = %d, want 2", got)
		}
	}
}

// TestStats_Window tests that events older than the window are excluded.
func TestStats_Window(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	a, _, c := newTestAnalytics(t, start)

	record(t, a, EventRequest{SubjectID: "old", Stage: "inquiry"})
	c.t = start.Add(10 * 24 * time.Hour)
	record(t, a, EventRequest{SubjectID: "new", Stage: "inquiry"})

	stats, err := a.Stats(context.Background(), 3, growth.BucketDay)
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if len(stats.Buckets) != 1 || stats.Buckets[0] != "2025-03-11" {
		t.Errorf("Buckets = %v, want [2025-03-11]", stats.Buckets)
	}
}

// TestStats_Empty tests an empty event log.
func TestStats_Empty(t *testing.T) {
	a, _, _ := newTestAnalytics(t, time.Now())

	stats, err := a.Stats(context.Background(), 7, growth.BucketDay)
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if len(stats.Series) != 0 || len(stats.Buckets) != 0 {
		t.Errorf("Expected empty stats, got %+v", stats)
	}
}

// TestStats_InvalidDays tests the non-positive window guard.
func TestStats_InvalidDays(t *testing.T) {
	a, _, _ := newTestAnalytics(t, time.Now())

	for _, days := range []int{0, -5} {
		if _, err := a.Stats(context.Background(), days, growth.BucketDay); !growth.IsInvalidInput(err) {
			t.Errorf("Stats(days=%d) expected invalid input, got %v", days, err)
		}
	}
}

// TestCompareVariants_ConversionMath tests per-variant conversion rates.
func TestCompareVariants_ConversionMath(t *testing.T) {
	a, _, _ := newTestAnalytics(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	record(t, a, EventRequest{SubjectID: "u1", Stage: "inquiry", ExperimentID: "e1", Variant: "A"})
	record(t, a, EventRequest{SubjectID: "u2", Stage: "inquiry", ExperimentID: "e1", Variant: "A"})
	record(t, a, EventRequest{SubjectID: "u2", Stage: "inquiry", ExperimentID: "e1", Variant: "A"})
	record(t, a, EventRequest{SubjectID: "u1", Stage: "ordered", ExperimentID: "e1", Variant: "A"})
	record(t, a, EventRequest{SubjectID: "u3", Stage: "inquiry", ExperimentID: "e1", Variant: "B"})
	// Unattributed events never count
	record(t, a, EventRequest{SubjectID: "u4", Stage: "inquiry", ExperimentID: "e1"})

	cmp, err := a.CompareVariants(context.Background(), "e1", "", "")
	if err != nil {
		t.Fatalf("CompareVariants() failed: %v", err)
	}

	if cmp.FromStage != growth.DefaultFromStage || cmp.ToStage != growth.DefaultToStage {
		t.Errorf("stages = %q -> %q, want defaults", cmp.FromStage, cmp.ToStage)
	}
	if len(cmp.Order) != 2 || cmp.Order[0] != "A" || cmp.Order[1] != "B" {
		t.Fatalf("Order = %v, want [A B]", cmp.Order)
	}

	va := cmp.Variants["A"]
	if va.FromStageUsers != 2 || va.ToStageUsers != 1 || va.ConversionRate != 0.5 {
		t.Errorf("A = %+v, want 2/1/0.5", va)
	}
	vb := cmp.Variants["B"]
	if vb.FromStageUsers != 1 || vb.ToStageUsers != 0 || vb.ConversionRate != 0 {
		t.Errorf("B = %+v, want 1/0/0", vb)
	}

	if cmp.PValue == nil {
		t.Fatal("Expected a p-value with two variants")
	}
	if *cmp.PValue != 0.386476 {
		t.Errorf("PValue = %v, want 0.386476", *cmp.PValue)
	}
	if cmp.SignificantAt005 {
		t.Error("Expected not significant")
	}
}

// TestCompareVariants_Significant tests a clearly significant difference.
func TestCompareVariants_Significant(t *testing.T) {
	a, _, _ := newTestAnalytics(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	for i := 0; i < 200; i++ {
		subject := string(rune('a'+i%26)) + string(rune('0'+i/26))
		record(t, a, EventRequest{SubjectID: "a-" + subject, Stage: "inquiry", ExperimentID: "e", Variant: "control"})
		record(t, a, EventRequest{SubjectID: "b-" + subject, Stage: "inquiry", ExperimentID: "e", Variant: "treatment"})
		if i < 20 {
			record(t, a, EventRequest{SubjectID: "a-" + subject, Stage: "ordered", ExperimentID: "e", Variant: "control"})
		}
		if i < 60 {
			record(t, a, EventRequest{SubjectID: "b-" + subject, Stage: "ordered", ExperimentID: "e", Variant: "treatment"})
		}
	}

	cmp, err := a.CompareVariants(context.Background(), "e", "inquiry", "ordered")
	if err != nil {
		t.Fatalf("CompareVariants() failed: %v", err)
	}
	if cmp.Variants["control"].ConversionRate != 0.1 || cmp.Variants["treatment"].ConversionRate != 0.3 {
		t.Fatalf("rates = %+v", cmp.Variants)
	}
	if !cmp.SignificantAt005 {
		t.Errorf("Expected significant result, p=%v", *cmp.PValue)
	}
}

// TestCompareVariants_SingleVariant tests the fewer-than-two-variants case.
func TestCompareVariants_SingleVariant(t *testing.T) {
	a, _, _ := newTestAnalytics(t, time.Now())

	record(t, a, EventRequest{SubjectID: "u1", Stage: "inquiry", ExperimentID: "e1", Variant: "A"})

	cmp, err := a.CompareVariants(context.Background(), "e1", "inquiry", "ordered")
	if err != nil {
		t.Fatalf("CompareVariants() failed: %v", err)
	}
	if cmp.PValue != nil {
		t.Errorf("PValue = %v, want nil", *cmp.PValue)
	}
	if cmp.SignificantAt005 {
		t.Error("Expected not significant")
	}

	empty, err := a.CompareVariants(context.Background(), "unknown", "", "")
	if err != nil {
		t.Fatalf("CompareVariants() failed: %v", err)
	}
	if len(empty.Variants) != 0 || empty.PValue != nil {
		t.Errorf("Expected empty comparison, got %+v", empty)
	}
}

// TestCompareVariants_ToStageOnly tests variants seen only at the target stage.
func TestCompareVariants_ToStageOnly(t *testing.T) {
	a, _, _ := newTestAnalytics(t, time.Now())

	record(t, a, EventRequest{SubjectID: "u1", Stage: "inquiry", ExperimentID: "e1", Variant: "A"})
	record(t, a, EventRequest{SubjectID: "u2", Stage: "ordered", ExperimentID: "e1", Variant: "B"})

	cmp, err := a.CompareVariants(context.Background(), "e1", "inquiry", "ordered")
	if err != nil {
		t.Fatalf("CompareVariants() failed: %v", err)
	}
	vb := cmp.Variants["B"]
	if vb.FromStageUsers != 0 || vb.ToStageUsers != 1 || vb.ConversionRate != 0 {
		t.Errorf("B = %+v, want 0/1/0", vb)
	}
	if cmp.PValue == nil || *cmp.PValue != 1.0 {
		t.Errorf("Expected p-value 1.0 for an empty sample, got %v", cmp.PValue)
	}
}
