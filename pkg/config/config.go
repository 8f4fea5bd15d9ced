package config

import "time"

// Config is the root configuration structure for the growth engine.
// It contains all configuration sections for storage, the HTTP server,
// experiment defaults, scheduled reports and telemetry.
type Config struct {
	// Storage selects and tunes the durable store behind assignments,
	// funnel events and strategy versions.
	Storage StorageConfig `yaml:"storage"`

	// Server contains HTTP API server configuration including listen
	// address and timeouts.
	Server ServerConfig `yaml:"server"`

	// Experiments contains defaults applied when callers omit variants or
	// comparison stages.
	Experiments ExperimentsConfig `yaml:"experiments"`

	// Reports configures the scheduled recomputation of funnel statistics
	// and variant comparisons.
	Reports ReportsConfig `yaml:"reports"`

	// Telemetry contains configuration for observability including logging,
	// metrics, and distributed tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// StorageConfig contains storage backend configuration.
type StorageConfig struct {
	// Driver selects the backend.
	// Options: "sqlite3" (cgo), "sqlite" (pure Go), "memory"
	// Default: "sqlite3"
	Driver string `yaml:"driver"`

	// Path is the SQLite database file path.
	// Default: "data/growth.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 4
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle database connections.
	// Default: 2
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging mode for concurrent readers.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long a writer waits for a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// ServerConfig contains configuration for the HTTP API server.
type ServerConfig struct {
	// ListenAddress is the address and port for the server to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8090", "0.0.0.0:8090").
	// Default: "127.0.0.1:8090"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 15s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 15s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 60s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// RequestTimeout bounds the handling of a single API request.
	// Default: 10s
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ExperimentsConfig contains experiment defaults.
type ExperimentsConfig struct {
	// DefaultVariants is used when an assignment request names no variants.
	// Default: ["A", "B"]
	DefaultVariants []string `yaml:"default_variants"`

	// DefaultFromStage is the comparison denominator stage.
	// Default: "inquiry"
	DefaultFromStage string `yaml:"default_from_stage"`

	// DefaultToStage is the comparison numerator stage.
	// Default: "ordered"
	DefaultToStage string `yaml:"default_to_stage"`
}

// ReportsConfig contains scheduled report configuration.
type ReportsConfig struct {
	// Enabled controls whether the report job runs in serve mode.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Schedule is a standard five-field cron expression.
	// Default: "*/15 * * * *"
	Schedule string `yaml:"schedule"`

	// FunnelDays is the funnel window recomputed on each run.
	// Default: 7
	FunnelDays int `yaml:"funnel_days"`

	// FunnelBucket is the funnel bucket granularity ("day" or "week").
	// Default: "day"
	FunnelBucket string `yaml:"funnel_bucket"`

	// Comparisons lists the experiments whose variants are compared on
	// each run.
	Comparisons []ComparisonConfig `yaml:"comparisons"`
}

// ComparisonConfig names one variant comparison recomputed by reports.
type ComparisonConfig struct {
	// ExperimentID is the experiment to compare.
	ExperimentID string `yaml:"experiment_id"`

	// FromStage overrides experiments.default_from_stage.
	FromStage string `yaml:"from_stage"`

	// ToStage overrides experiments.default_to_stage.
	ToStage string `yaml:"to_stage"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "growth"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "engine"
	Subsystem string `yaml:"subsystem"`

	// DurationBuckets defines histogram buckets for operation duration (seconds).
	// Default: [0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1]
	DurationBuckets []float64 `yaml:"duration_buckets"`

	// MaxLabelSets caps distinct experiment/variant label combinations.
	// Default: 10000
	MaxLabelSets int `yaml:"max_label_sets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "growth"
	ServiceName string `yaml:"service_name"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}
