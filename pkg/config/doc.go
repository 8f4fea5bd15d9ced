// Package config provides configuration management for the growth engine.
//
// This package handles loading and validating configuration from YAML files
// with environment variable overrides. Configuration is an explicit value:
// load it once at startup and pass the *Config (or the section a component
// needs) down to constructors. There is no global instance.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfig("growth.yaml")
//	cfg, err := config.LoadConfigWithEnvOverrides("growth.yaml")
//
// An empty path loads the defaults.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention GROWTH_SECTION_FIELD.
// For example:
//
//   - GROWTH_STORAGE_PATH overrides storage.path
//   - GROWTH_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - GROWTH_EXPERIMENTS_DEFAULT_VARIANTS overrides experiments.default_variants (comma separated)
//   - GROWTH_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Hot Reload
//
// Watcher observes the configuration file with fsnotify and hands every
// successfully validated reload to a callback. The serve command uses it to
// change the log level and the scheduled report list without a restart.
//
// # Example Configuration
//
//	storage:
//	  driver: "sqlite3"
//	  path: "data/growth.db"
//
//	server:
//	  listen_address: "127.0.0.1:8090"
//
//	experiments:
//	  default_variants: ["A", "B"]
//
//	reports:
//	  enabled: true
//	  schedule: "*/15 * * * *"
//	  comparisons:
//	    - experiment_id: "exp_quote"
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
package config
