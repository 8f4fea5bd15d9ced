package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "growth.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
storage:
  driver: "sqlite"
  path: "./test-growth.db"
  busy_timeout: "2s"

server:
  listen_address: "0.0.0.0:9000"
  read_timeout: "60s"

experiments:
  default_variants: ["control", "treatment"]

reports:
  enabled: true
  schedule: "0 * * * *"
  funnel_bucket: "week"
  comparisons:
    - experiment_id: "exp_quote"
      to_stage: "quoted"

telemetry:
  logging:
    level: "debug"
    format: "text"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("expected driver %q, got %q", "sqlite", cfg.Storage.Driver)
	}
	if cfg.Storage.BusyTimeout != 2*time.Second {
		t.Errorf("expected busy timeout 2s, got %v", cfg.Storage.BusyTimeout)
	}
	if cfg.Server.ListenAddress != "0.0.0.0:9000" {
		t.Errorf("expected listen address %q, got %q", "0.0.0.0:9000", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != 60*time.Second {
		t.Errorf("expected read timeout 60s, got %v", cfg.Server.ReadTimeout)
	}
	if got := strings.Join(cfg.Experiments.DefaultVariants, ","); got != "control,treatment" {
		t.Errorf("expected variants control,treatment, got %s", got)
	}
	if !cfg.Reports.Enabled || cfg.Reports.FunnelBucket != "week" {
		t.Errorf("unexpected reports config: %+v", cfg.Reports)
	}
	if len(cfg.Reports.Comparisons) != 1 || cfg.Reports.Comparisons[0].ToStage != "quoted" {
		t.Errorf("unexpected comparisons: %+v", cfg.Reports.Comparisons)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %q", cfg.Telemetry.Logging.Level)
	}

	// Omitted fields keep their defaults, including true booleans
	if !cfg.Storage.WALMode {
		t.Error("expected wal_mode to default to true")
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("expected metrics to default to enabled")
	}
	if cfg.Server.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("expected default write timeout, got %v", cfg.Server.WriteTimeout)
	}
	if cfg.Experiments.DefaultFromStage != DefaultFromStage {
		t.Errorf("expected default from stage, got %q", cfg.Experiments.DefaultFromStage)
	}
}

func TestLoadConfig_ExplicitFalse(t *testing.T) {
	path := writeConfig(t, `
storage:
  wal_mode: false
telemetry:
  metrics:
    enabled: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Storage.WALMode {
		t.Error("expected wal_mode false")
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("expected metrics disabled")
	}
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig(\"\") failed: %v", err)
	}
	if cfg.Storage.Path != DefaultStoragePath {
		t.Errorf("expected default path, got %q", cfg.Storage.Path)
	}
	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("expected default listen address, got %q", cfg.Server.ListenAddress)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist in chain, got %v", err)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "storage: [unclosed")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
storage:
  driver: "postgres"
`)
	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if verr.Errors[0].Field != "storage.driver" {
		t.Errorf("expected storage.driver error, got %q", verr.Errors[0].Field)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
storage:
  path: "from-file.db"
`)

	t.Setenv("GROWTH_STORAGE_PATH", "from-env.db")
	t.Setenv("GROWTH_STORAGE_DRIVER", "memory")
	t.Setenv("GROWTH_SERVER_READ_TIMEOUT", "45s")
	t.Setenv("GROWTH_EXPERIMENTS_DEFAULT_VARIANTS", "x, y ,z")
	t.Setenv("GROWTH_REPORTS_ENABLED", "true")
	t.Setenv("GROWTH_TELEMETRY_TRACING_SAMPLE_RATIO", "0.25")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Storage.Path != "from-env.db" {
		t.Errorf("expected env path, got %q", cfg.Storage.Path)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("expected memory driver, got %q", cfg.Storage.Driver)
	}
	if cfg.Server.ReadTimeout != 45*time.Second {
		t.Errorf("expected 45s, got %v", cfg.Server.ReadTimeout)
	}
	if got := strings.Join(cfg.Experiments.DefaultVariants, ","); got != "x,y,z" {
		t.Errorf("expected x,y,z, got %s", got)
	}
	if !cfg.Reports.Enabled {
		t.Error("expected reports enabled")
	}
	if cfg.Telemetry.Tracing.SampleRatio != 0.25 {
		t.Errorf("expected sample ratio 0.25, got %v", cfg.Telemetry.Tracing.SampleRatio)
	}
}

func TestLoadConfigWithEnvOverrides_Malformed(t *testing.T) {
	t.Setenv("GROWTH_STORAGE_MAX_OPEN_CONNS", "many")
	t.Setenv("GROWTH_REPORTS_ENABLED", "sometimes")

	_, err := LoadConfigWithEnvOverrides("")
	if err == nil {
		t.Fatal("expected error for malformed overrides")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(verr.Errors) != 2 {
		t.Errorf("expected 2 errors, got %d: %v", len(verr.Errors), verr)
	}
}
