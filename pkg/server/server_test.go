package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mercator-hq/growth/pkg/config"
	"mercator-hq/growth/pkg/growth"
	"mercator-hq/growth/pkg/growth/service"
	"mercator-hq/growth/pkg/growth/storage"
	"mercator-hq/growth/pkg/telemetry/metrics"
)

func testServerConfig() *config.ServerConfig {
	return &config.ServerConfig{
		ListenAddress:   "127.0.0.1:0",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		IdleTimeout:     5 * time.Second,
		RequestTimeout:  5 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

func newTestServer(t *testing.T, store growth.Storage) *httptest.Server {
	t.Helper()
	if store == nil {
		store = storage.NewMemoryStorage()
	}
	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: true}, nil)
	svc := service.New(store, &service.Options{Metrics: collector})
	srv := NewServer(testServerConfig(), svc, &Options{Metrics: collector, Version: "test"})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// do sends a request and decodes the JSON response into a generic map.
func do(t *testing.T, ts *httptest.Server, method, path, body string) (int, map[string]json.RawMessage) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if resp.Header.Get("X-Request-ID") == "" {
		t.Errorf("%s %s: missing X-Request-ID", method, path)
	}

	out := map[string]json.RawMessage{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode, out
}

func decodeField[T any](t *testing.T, body map[string]json.RawMessage, field string) T {
	t.Helper()
	var v T
	raw, ok := body[field]
	if !ok {
		t.Fatalf("response missing %q: %v", field, body)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %q: %v", field, err)
	}
	return v
}

func TestAPI_Assignment(t *testing.T) {
	ts := newTestServer(t, nil)

	code, body := do(t, ts, http.MethodPost, "/v1/experiments/exp_quote/assignments", `{"subject_id":"session-42"}`)
	if code != http.StatusCreated {
		t.Fatalf("first assignment status = %d, want 201", code)
	}
	first := decodeField[growth.Assignment](t, body, "assignment")
	if !first.NewAssignment || first.ExperimentID != "exp_quote" {
		t.Errorf("first = %+v", first)
	}

	code, body = do(t, ts, http.MethodPost, "/v1/experiments/exp_quote/assignments",
		`{"subject_id":"session-42","variants":["X","Y","Z"]}`)
	if code != http.StatusOK {
		t.Fatalf("repeat assignment status = %d, want 200", code)
	}
	again := decodeField[growth.Assignment](t, body, "assignment")
	if again.NewAssignment || again.Variant != first.Variant {
		t.Errorf("repeat = %+v, want existing %q", again, first.Variant)
	}
}

func TestAPI_ValidationErrors(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name      string
		method    string
		path      string
		body      string
		wantType  string
		wantField string
	}{
		{"missing subject", http.MethodPost, "/v1/experiments/exp/assignments", `{}`, "invalid_input", "subject_id"},
		{"empty variants", http.MethodPost, "/v1/experiments/exp/assignments", `{"subject_id":"s","variants":[]}`, "invalid_input", "variants"},
		{"malformed json", http.MethodPost, "/v1/events", `{"subject_id":`, "invalid_request", ""},
		{"unknown field", http.MethodPost, "/v1/events", `{"subject":"s"}`, "invalid_request", ""},
		{"missing stage", http.MethodPost, "/v1/events", `{"subject_id":"s"}`, "invalid_input", "stage"},
		{"days not integer", http.MethodGet, "/v1/funnel?days=week", "", "invalid_input", "days"},
		{"days zero", http.MethodGet, "/v1/funnel?days=0", "", "invalid_input", "days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := do(t, ts, tt.method, tt.path, tt.body)
			if code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", code)
			}
			e := decodeField[ErrorBody](t, body, "error")
			if e.Type != tt.wantType {
				t.Errorf("error type = %q, want %q", e.Type, tt.wantType)
			}
			if tt.wantField != "" && e.Field != tt.wantField {
				t.Errorf("error field = %q, want %q", e.Field, tt.wantField)
			}
		})
	}
}

func TestAPI_EventsFunnelAndComparison(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, s := range []string{"s1", "s2"} {
		if code, _ := do(t, ts, http.MethodPost, "/v1/experiments/exp/assignments", `{"subject_id":"`+s+`"}`); code != http.StatusCreated {
			t.Fatalf("assign %s status = %d", s, code)
		}
		code, body := do(t, ts, http.MethodPost, "/v1/events", `{"subject_id":"`+s+`","stage":"inquiry","experiment_id":"exp"}`)
		if code != http.StatusCreated {
			t.Fatalf("event status = %d", code)
		}
		if e := decodeField[growth.FunnelEvent](t, body, "event"); e.Variant == "" {
			t.Error("event was not attributed to the subject's variant")
		}
	}

	code, body := do(t, ts, http.MethodGet, "/v1/funnel?days=7&bucket=week", "")
	if code != http.StatusOK {
		t.Fatalf("funnel status = %d", code)
	}
	stats := decodeField[growth.FunnelStats](t, body, "funnel")
	if stats.Bucket != growth.BucketWeek || len(stats.Buckets) != 1 {
		t.Errorf("funnel = %+v", stats)
	}

	code, body = do(t, ts, http.MethodGet, "/v1/experiments/exp/comparison?from=inquiry&to=ordered", "")
	if code != http.StatusOK {
		t.Fatalf("comparison status = %d", code)
	}
	cmp := decodeField[growth.Comparison](t, body, "comparison")
	total := 0
	for _, vs := range cmp.Variants {
		total += vs.FromStageUsers
	}
	if total != 2 {
		t.Errorf("from-stage users = %d, want 2", total)
	}
}

func TestAPI_StrategyLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)

	code, body := do(t, ts, http.MethodGet, "/v1/strategies/pricing/active", "")
	if code != http.StatusOK || string(body["active"]) != "null" {
		t.Fatalf("active before any version = %d %s, want 200 null", code, body["active"])
	}

	code, body = do(t, ts, http.MethodPost, "/v1/strategies/pricing/rollback", "")
	if code != http.StatusOK || string(body["rolled_back"]) != "null" {
		t.Fatalf("rollback without baseline = %d %s, want 200 null", code, body["rolled_back"])
	}

	if code, _ := do(t, ts, http.MethodPut, "/v1/strategies/pricing/versions/v1", `{"active":true,"baseline":true}`); code != http.StatusOK {
		t.Fatalf("set v1 status = %d", code)
	}
	// Registering without a body leaves v2 inactive.
	code, body = do(t, ts, http.MethodPut, "/v1/strategies/pricing/versions/v2", "")
	if code != http.StatusOK {
		t.Fatalf("set v2 status = %d", code)
	}
	if active := decodeField[*growth.StrategyVersion](t, body, "active"); active == nil || active.Version != "v1" {
		t.Errorf("active after registering v2 = %+v, want v1", active)
	}

	if code, _ := do(t, ts, http.MethodPut, "/v1/strategies/pricing/versions/v2", `{"active":true}`); code != http.StatusOK {
		t.Fatalf("activate v2 status = %d", code)
	}

	code, body = do(t, ts, http.MethodPost, "/v1/strategies/pricing/rollback", "")
	if code != http.StatusOK {
		t.Fatalf("rollback status = %d", code)
	}
	if restored := decodeField[*growth.StrategyVersion](t, body, "rolled_back"); restored == nil || restored.Version != "v1" {
		t.Errorf("rolled back to %+v, want v1", restored)
	}

	_, body = do(t, ts, http.MethodGet, "/v1/strategies/pricing/versions", "")
	if versions := decodeField[[]growth.StrategyVersion](t, body, "versions"); len(versions) != 2 {
		t.Errorf("got %d versions, want 2", len(versions))
	}

	_, body = do(t, ts, http.MethodGet, "/v1/strategies/unknown/versions", "")
	if string(body["versions"]) != "[]" {
		t.Errorf("versions of unknown type = %s, want []", body["versions"])
	}
}

func TestAPI_StorageUnavailable(t *testing.T) {
	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
		Driver:      storage.DriverPureGo,
		Path:        filepath.Join(t.TempDir(), "growth.db"),
		BusyTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("NewSQLiteStorage() error = %v", err)
	}
	ts := newTestServer(t, store)
	store.Close()

	code, body := do(t, ts, http.MethodGet, "/v1/strategies/pricing/active", "")
	if code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", code)
	}
	if e := decodeField[ErrorBody](t, body, "error"); e.Type != "storage_unavailable" {
		t.Errorf("error type = %q", e.Type)
	}

	if code, _ := do(t, ts, http.MethodGet, "/ready", ""); code != http.StatusServiceUnavailable {
		t.Errorf("/ready status = %d, want 503", code)
	}
	if code, _ := do(t, ts, http.MethodGet, "/health", ""); code != http.StatusOK {
		t.Errorf("/health status = %d, want 200", code)
	}
}

func TestAPI_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, nil)

	code, _ := do(t, ts, http.MethodGet, "/v1/events", "")
	if code != http.StatusMethodNotAllowed {
		t.Errorf("GET /v1/events status = %d, want 405", code)
	}
}

func TestAPI_Metrics(t *testing.T) {
	ts := newTestServer(t, nil)
	do(t, ts, http.MethodPost, "/v1/experiments/exp/assignments", `{"subject_id":"s1"}`)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(raw), "growth_engine_assignments_total") {
		t.Errorf("metrics output missing assignments counter:\n%s", raw)
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	svc := service.New(storage.NewMemoryStorage(), nil)
	srv := NewServer(testServerConfig(), svc, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Addr() == "" && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if !srv.IsRunning() {
		t.Fatal("server not running")
	}

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/health status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	if srv.IsRunning() {
		t.Error("server still running after shutdown")
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}

func TestServer_StartInvalidAddress(t *testing.T) {
	cfg := testServerConfig()
	cfg.ListenAddress = "256.0.0.1:0"
	srv := NewServer(cfg, service.New(storage.NewMemoryStorage(), nil), nil)

	if err := srv.Start(context.Background()); err == nil {
		t.Error("Start() on an invalid address should fail")
	}
}
