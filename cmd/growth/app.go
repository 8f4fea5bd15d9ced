package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/growth/pkg/cli"
	"mercator-hq/growth/pkg/config"
	"mercator-hq/growth/pkg/growth"
	"mercator-hq/growth/pkg/growth/service"
	"mercator-hq/growth/pkg/growth/storage"
	"mercator-hq/growth/pkg/telemetry/logging"
)

// loadConfig reads --config with environment overrides and applies
// --db-path on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Storage.Path = dbPath
	}
	return cfg, nil
}

// newLogger builds the process logger on stderr. One-shot commands stay
// at warn unless --verbose is set.
func newLogger(cmd *cobra.Command, cfg *config.LoggingConfig, oneShot bool) (*logging.Logger, error) {
	level := cfg.Level
	if oneShot && !verbose {
		level = "warn"
	}
	logger, err := logging.New(logging.Config{
		Level:     level,
		Format:    cfg.Format,
		AddSource: cfg.AddSource,
		Writer:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	logger.SetDefault()
	return logger, nil
}

func openStorage(cfg *config.StorageConfig) (growth.Storage, error) {
	return storage.New(&storage.SQLiteConfig{
		Driver:       cfg.Driver,
		Path:         cfg.Path,
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
		WALMode:      cfg.WALMode,
		BusyTimeout:  cfg.BusyTimeout,
	})
}

// withService runs fn against a service over the configured store and
// renders its result in the selected output format.
func withService(cmd *cobra.Command, name string, fn func(*service.Service) (any, error)) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, &cfg.Telemetry.Logging, true)
	if err != nil {
		return err
	}

	store, err := openStorage(&cfg.Storage)
	if err != nil {
		return cli.NewCommandError(name, err)
	}
	defer store.Close()

	svc := service.New(store, &service.Options{
		Experiments: &cfg.Experiments,
		Logger:      logger.Slog(),
	})

	result, err := fn(svc)
	if err != nil {
		return cli.NewCommandError(name, err)
	}
	return render(cmd, result)
}

func render(cmd *cobra.Command, data any) error {
	if err := cli.NewFormatter(outputFormat).FormatTo(cmd.OutOrStdout(), data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
