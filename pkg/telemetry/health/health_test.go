package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestNew_DefaultTimeout(t *testing.T) {
	if got := New(0).checkTimeout; got != DefaultCheckTimeout {
		t.Errorf("checkTimeout = %v, want %v", got, DefaultCheckTimeout)
	}
	if got := New(time.Second).checkTimeout; got != time.Second {
		t.Errorf("checkTimeout = %v, want 1s", got)
	}
}

func TestRegisterAndList(t *testing.T) {
	checker := New(time.Second)
	checker.RegisterCheck("storage", func(context.Context) error { return nil })
	checker.RegisterCheck("config", func(context.Context) error { return nil })
	checker.RegisterCheck("storage", func(context.Context) error { return nil })

	if got, want := checker.ListChecks(), []string{"config", "storage"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ListChecks() = %v, want %v", got, want)
	}

	checker.UnregisterCheck("config")
	if got := checker.ListChecks(); len(got) != 1 {
		t.Errorf("ListChecks() after unregister = %v", got)
	}
}

func TestCheckReadiness(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus string
	}{
		{
			name:       "no checks",
			checks:     nil,
			wantStatus: StatusReady,
		},
		{
			name: "all healthy",
			checks: map[string]CheckFunc{
				"storage": PingCheck(pingerFunc(func(context.Context) error { return nil })),
			},
			wantStatus: StatusReady,
		},
		{
			name: "storage down",
			checks: map[string]CheckFunc{
				"storage": PingCheck(pingerFunc(func(context.Context) error { return errors.New("database is closed") })),
				"config":  func(context.Context) error { return nil },
			},
			wantStatus: StatusDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(time.Second)
			for name, check := range tt.checks {
				checker.RegisterCheck(name, check)
			}

			status := checker.CheckReadiness(context.Background())
			if status.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", status.Status, tt.wantStatus)
			}
			if len(status.Checks) != len(tt.checks) {
				t.Errorf("got %d results, want %d", len(status.Checks), len(tt.checks))
			}
		})
	}
}

func TestCheckReadiness_Timeout(t *testing.T) {
	checker := New(20 * time.Millisecond)
	checker.RegisterCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return nil
	})

	status := checker.CheckReadiness(context.Background())
	result := status.Checks["slow"]
	if result.Status != StatusFailing || result.Message != ErrCheckTimeout.Error() {
		t.Errorf("slow check = %+v, want timeout failure", result)
	}
}

func TestReadinessHandler(t *testing.T) {
	healthy := true
	checker := New(time.Second)
	checker.RegisterCheck("storage", func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("database is closed")
	})
	handler := checker.ReadinessHandler()

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("healthy code = %d, want 200", rec.Code)
	}

	healthy = false
	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy code = %d, want 503", rec.Code)
	}

	var body HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Checks["storage"].Message != "database is closed" {
		t.Errorf("storage message = %q", body.Checks["storage"].Message)
	}
}

func TestRegister_Endpoints(t *testing.T) {
	mux := http.NewServeMux()
	Register(mux, New(time.Second), "1.2.3", "abc123", "2025-03-10")

	tests := []struct {
		method   string
		path     string
		wantCode int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodHead, "/health", http.StatusOK},
		{http.MethodGet, "/ready", http.StatusOK},
		{http.MethodGet, "/version", http.StatusOK},
		{http.MethodPost, "/health", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != tt.wantCode {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.wantCode)
		}
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	var info VersionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Version != "1.2.3" || info.Commit != "abc123" || info.GoVersion == "" {
		t.Errorf("version info = %+v", info)
	}
}
