package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"mercator-hq/growth/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Helper function to create test config
func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:         true,
		Namespace:       "test",
		Subsystem:       "growth",
		DurationBuckets: []float64{0.001, 0.01, 0.1},
		MaxLabelSets:    100,
	}
}

// TestCollector_NewCollector tests collector creation
func TestCollector_NewCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewCollector(testConfig(), registry)

	if collector == nil {
		t.Fatal("Expected non-nil collector")
	}
	if collector.Registry() != registry {
		t.Error("Collector registry not set correctly")
	}
}

// TestCollector_RecordAssignment tests assignment counters
func TestCollector_RecordAssignment(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordAssignment("exp", "A", true)
	collector.RecordAssignment("exp", "A", false)
	collector.RecordAssignment("exp", "A", false)

	created := testutil.ToFloat64(collector.experimentMetrics.assignmentsTotal.WithLabelValues("exp", "A", "created"))
	if created != 1 {
		t.Errorf("Expected 1 created assignment, got %f", created)
	}
	existing := testutil.ToFloat64(collector.experimentMetrics.assignmentsTotal.WithLabelValues("exp", "A", "existing"))
	if existing != 2 {
		t.Errorf("Expected 2 existing assignments, got %f", existing)
	}
}

// TestCollector_RecordEvent tests event counters
func TestCollector_RecordEvent(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordEvent("inquiry", true)
	collector.RecordEvent("inquiry", false)

	if got := testutil.ToFloat64(collector.experimentMetrics.eventsTotal.WithLabelValues("inquiry", "true")); got != 1 {
		t.Errorf("Expected 1 attributed event, got %f", got)
	}
	if got := testutil.ToFloat64(collector.experimentMetrics.eventsTotal.WithLabelValues("inquiry", "false")); got != 1 {
		t.Errorf("Expected 1 unattributed event, got %f", got)
	}
}

// TestCollector_UpdateComparison tests conversion and p-value gauges
func TestCollector_UpdateComparison(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	p := 0.03
	collector.UpdateComparison("exp", map[string]float64{"A": 0.5, "B": 0.25}, &p)

	if got := testutil.ToFloat64(collector.experimentMetrics.conversionRate.WithLabelValues("exp", "B")); got != 0.25 {
		t.Errorf("Expected rate 0.25, got %f", got)
	}
	if got := testutil.ToFloat64(collector.experimentMetrics.pValue.WithLabelValues("exp")); got != 0.03 {
		t.Errorf("Expected p-value 0.03, got %f", got)
	}

	collector.UpdateComparison("exp", nil, nil)
	if n := testutil.CollectAndCount(collector.experimentMetrics.pValue); n != 0 {
		t.Errorf("Expected p-value series removed, got %d series", n)
	}
}

// TestCollector_UpdateFunnelSubjects tests that stale stages are dropped
func TestCollector_UpdateFunnelSubjects(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.UpdateFunnelSubjects(map[string]int{"inquiry": 5, "ordered": 2})
	collector.UpdateFunnelSubjects(map[string]int{"inquiry": 7})

	if n := testutil.CollectAndCount(collector.experimentMetrics.funnelSubjects); n != 1 {
		t.Errorf("Expected 1 stage series, got %d", n)
	}
	if got := testutil.ToFloat64(collector.experimentMetrics.funnelSubjects.WithLabelValues("inquiry")); got != 7 {
		t.Errorf("Expected 7 inquiry subjects, got %f", got)
	}
}

// TestCollector_StrategyAndOperations tests strategy and operation metrics
func TestCollector_StrategyAndOperations(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordStrategyChange("pricing", "rollback")
	if got := testutil.ToFloat64(collector.strategyMetrics.changesTotal.WithLabelValues("pricing", "rollback")); got != 1 {
		t.Errorf("Expected 1 rollback, got %f", got)
	}

	collector.RecordOperation("assign_variant", 2*time.Millisecond, "")
	collector.RecordOperation("assign_variant", time.Millisecond, "storage")
	if got := testutil.ToFloat64(collector.operationMetrics.errorsTotal.WithLabelValues("assign_variant", "storage")); got != 1 {
		t.Errorf("Expected 1 storage error, got %f", got)
	}
	if n := testutil.CollectAndCount(collector.operationMetrics.duration); n != 1 {
		t.Errorf("Expected 1 histogram series, got %d", n)
	}
}

// TestCollector_Disabled tests that a disabled collector records nothing
func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	collector := NewCollector(cfg, nil)

	collector.RecordAssignment("exp", "A", true)
	collector.RecordEvent("inquiry", true)

	if n := testutil.CollectAndCount(collector.experimentMetrics.assignmentsTotal); n != 0 {
		t.Errorf("Expected no series when disabled, got %d", n)
	}
}

// TestCollector_Nil tests that a nil collector is safe to use
func TestCollector_Nil(t *testing.T) {
	var collector *Collector
	collector.RecordAssignment("exp", "A", true)
	collector.RecordEvent("inquiry", true)
	collector.RecordStrategyChange("pricing", "activate")
	collector.RecordOperation("op", time.Millisecond, "")
	collector.UpdateComparison("exp", nil, nil)
	collector.UpdateFunnelSubjects(nil)
}

// TestCollector_CardinalityOverflow tests the "other" label fallback
func TestCollector_CardinalityOverflow(t *testing.T) {
	cfg := testConfig()
	cfg.MaxLabelSets = 2
	collector := NewCollector(cfg, nil)

	collector.RecordAssignment("e1", "A", true)
	collector.RecordAssignment("e2", "A", true)
	collector.RecordAssignment("e3", "B", true)

	if got := testutil.ToFloat64(collector.experimentMetrics.assignmentsTotal.WithLabelValues(OverflowLabel, OverflowLabel, "created")); got != 1 {
		t.Errorf("Expected overflow series with 1 assignment, got %f", got)
	}
}

// TestCardinalityLimiter tests the limiter directly
func TestCardinalityLimiter(t *testing.T) {
	cl := NewCardinalityLimiter(2)

	if !cl.Allow("a") || !cl.Allow("b") {
		t.Fatal("Expected first two label sets to be allowed")
	}
	if cl.Allow("c") {
		t.Error("Expected third label set to be rejected")
	}
	if !cl.Allow("a") {
		t.Error("Expected existing label set to be allowed")
	}
	if cl.Count() != 2 {
		t.Errorf("Expected count 2, got %d", cl.Count())
	}
}

// TestCollector_ConcurrentRecording tests concurrent metric updates
func TestCollector_ConcurrentRecording(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.RecordAssignment("exp", "A", false)
		}()
	}
	wg.Wait()

	if got := testutil.ToFloat64(collector.experimentMetrics.assignmentsTotal.WithLabelValues("exp", "A", "existing")); got != 50 {
		t.Errorf("Expected 50 assignments, got %f", got)
	}
}

// TestCollector_Handler tests the exposition endpoint
func TestCollector_Handler(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.RecordAssignment("exp", "A", true)

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "test_growth_assignments_total") {
		t.Errorf("Expected assignments metric in output, got:\n%s", body)
	}
}

// TestCollector_HandlerCountsScrapes tests that scrapes are instrumented on
// the collector's registry and that building the handler twice is safe.
func TestCollector_HandlerCountsScrapes(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	first := httptest.NewRecorder()
	collector.Handler().ServeHTTP(first, httptest.NewRequest("GET", "/metrics", nil))
	if first.Code != 200 {
		t.Fatalf("first scrape status = %d", first.Code)
	}

	second := httptest.NewRecorder()
	collector.Handler().ServeHTTP(second, httptest.NewRequest("GET", "/metrics", nil))

	body := second.Body.String()
	if !strings.Contains(body, `promhttp_metric_handler_requests_total{code="200"} 1`) {
		t.Errorf("Expected one counted scrape, got:\n%s", body)
	}
}

