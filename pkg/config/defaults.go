package config

import "time"

// Default values for configuration fields.
const (
	// Storage defaults
	DefaultStorageDriver       = "sqlite3"
	DefaultStoragePath         = "data/growth.db"
	DefaultStorageMaxOpenConns = 4
	DefaultStorageMaxIdleConns = 2
	DefaultStorageWALMode      = true
	DefaultStorageBusyTimeout  = 5 * time.Second

	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8090"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultRequestTimeout  = 10 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Experiment defaults
	DefaultFromStage = "inquiry"
	DefaultToStage   = "ordered"

	// Report defaults
	DefaultReportsEnabled = false
	DefaultReportSchedule = "*/15 * * * *"
	DefaultFunnelDays     = 7
	DefaultFunnelBucket   = "day"

	// Telemetry defaults
	DefaultLoggingLevel        = "info"
	DefaultLoggingFormat       = "json"
	DefaultMetricsEnabled      = true
	DefaultPrometheusPath      = "/metrics"
	DefaultMetricsNamespace    = "growth"
	DefaultMetricsSubsystem    = "engine"
	DefaultMaxLabelSets        = 10000
	DefaultTracingEnabled      = false
	DefaultTracingServiceName  = "growth"
	DefaultTracingSamplingRate = 1.0
	DefaultTracingInsecure     = true
	DefaultTracingTimeout      = 10 * time.Second
)

// DefaultVariants is the variant list used when none is configured.
func DefaultVariants() []string {
	return []string{"A", "B"}
}

// DefaultDurationBuckets returns the default operation latency buckets in seconds.
func DefaultDurationBuckets() []float64 {
	return []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}
}

// NewDefaultConfig returns a configuration with every field at its default.
// Loading YAML on top of it keeps defaults for omitted fields, including
// booleans whose default is true.
func NewDefaultConfig() *Config {
	cfg := &Config{
		Storage: StorageConfig{
			WALMode: DefaultStorageWALMode,
		},
		Reports: ReportsConfig{
			Enabled: DefaultReportsEnabled,
		},
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{
				Enabled: DefaultMetricsEnabled,
			},
			Tracing: TracingConfig{
				Enabled:  DefaultTracingEnabled,
				Insecure: DefaultTracingInsecure,
			},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults. Booleans are
// left alone because false is indistinguishable from unset; start from
// NewDefaultConfig to get their defaults.
func ApplyDefaults(cfg *Config) {
	// Storage defaults
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DefaultStorageDriver
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultStoragePath
	}
	if cfg.Storage.MaxOpenConns == 0 {
		cfg.Storage.MaxOpenConns = DefaultStorageMaxOpenConns
	}
	if cfg.Storage.MaxIdleConns == 0 {
		cfg.Storage.MaxIdleConns = DefaultStorageMaxIdleConns
	}
	if cfg.Storage.BusyTimeout == 0 {
		cfg.Storage.BusyTimeout = DefaultStorageBusyTimeout
	}

	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Experiment defaults
	if cfg.Experiments.DefaultVariants == nil {
		cfg.Experiments.DefaultVariants = DefaultVariants()
	}
	if cfg.Experiments.DefaultFromStage == "" {
		cfg.Experiments.DefaultFromStage = DefaultFromStage
	}
	if cfg.Experiments.DefaultToStage == "" {
		cfg.Experiments.DefaultToStage = DefaultToStage
	}

	// Report defaults
	if cfg.Reports.Schedule == "" {
		cfg.Reports.Schedule = DefaultReportSchedule
	}
	if cfg.Reports.FunnelDays == 0 {
		cfg.Reports.FunnelDays = DefaultFunnelDays
	}
	if cfg.Reports.FunnelBucket == "" {
		cfg.Reports.FunnelBucket = DefaultFunnelBucket
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Telemetry.Metrics.DurationBuckets) == 0 {
		cfg.Telemetry.Metrics.DurationBuckets = DefaultDurationBuckets()
	}
	if cfg.Telemetry.Metrics.MaxLabelSets == 0 {
		cfg.Telemetry.Metrics.MaxLabelSets = DefaultMaxLabelSets
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSamplingRate
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}
}
