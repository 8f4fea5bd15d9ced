package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mercator-hq/growth/pkg/cli"
	"mercator-hq/growth/pkg/config"
	"mercator-hq/growth/pkg/growth/report"
	"mercator-hq/growth/pkg/growth/service"
	"mercator-hq/growth/pkg/server"
	"mercator-hq/growth/pkg/telemetry/logging"
	"mercator-hq/growth/pkg/telemetry/metrics"
	"mercator-hq/growth/pkg/telemetry/tracing"
)

var serveFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	noWatch       bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve the HTTP API together with health probes, Prometheus metrics and,
when reports.enabled is set, the scheduled report job.

With --config the file is watched: log level and report settings are
applied without a restart.

Examples:
  # Start with defaults (SQLite at data/growth.db, 127.0.0.1:8090)
  growth serve

  # Start with a config file and override the listen address
  growth serve --config /etc/growth/config.yaml --listen 0.0.0.0:8090

  # Validate config and storage without starting the server
  growth serve --dry-run`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override server.listen_address")
	serveCmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "override telemetry.logging.level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config and open storage without serving")
	serveCmd.Flags().BoolVar(&serveFlags.noWatch, "no-watch", false, "do not reload the config file on change")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}
	if serveFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = serveFlags.logLevel
	}

	logger, err := newLogger(cmd, &cfg.Telemetry.Logging, false)
	if err != nil {
		return err
	}
	log := logger.Slog()
	out := cmd.OutOrStdout()

	store, err := openStorage(&cfg.Storage)
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	defer store.Close()

	if serveFlags.dryRun {
		cli.Success(out, "Configuration valid, storage %s reachable", cli.Highlight(cfg.Storage.Driver))
		return nil
	}

	tracing.Version = Version
	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Telemetry.Tracing.Timeout)
		defer cancel()
		if err := tracer.Shutdown(ctx); err != nil {
			log.Warn("Tracer shutdown failed", "error", err)
		}
	}()

	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	}

	svc := service.New(store, &service.Options{
		Experiments: &cfg.Experiments,
		Logger:      log,
		Metrics:     collector,
		Tracer:      tracer,
	})

	srv := server.NewServer(&cfg.Server, svc, &server.Options{
		Logger:      log,
		Metrics:     collector,
		Tracer:      tracer,
		MetricsPath: cfg.Telemetry.Metrics.Path,
		Version:     Version,
		Commit:      GitCommit,
		BuildTime:   BuildDate,
	})

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Start(gctx)
	})

	var scheduler *report.Scheduler
	job := report.NewJob(svc, &cfg.Reports, log)
	if cfg.Reports.Enabled {
		scheduler = report.NewScheduler(job)
		if err := scheduler.Start(gctx); err != nil {
			stop()
			_ = g.Wait()
			return cli.NewCommandError("serve", err)
		}
	}

	if cfgFile != "" && !serveFlags.noWatch {
		watcher := config.NewWatcher(cfgFile, log)
		g.Go(func() error {
			return watcher.Watch(gctx, func(next *config.Config) {
				applyReload(gctx, log, logger, job, scheduler, next)
			})
		})
	}

	printBanner(cmd, cfg, scheduler)

	if err := g.Wait(); err != nil {
		return cli.NewCommandError("serve", err)
	}
	cli.Success(out, "Server stopped")
	return nil
}

// applyReload applies the settings that can change at runtime. Storage,
// server and telemetry exporters need a restart.
func applyReload(ctx context.Context, log *slog.Logger, logger *logging.Logger, job *report.Job, scheduler *report.Scheduler, next *config.Config) {
	if serveFlags.logLevel == "" {
		if err := logger.SetLevel(next.Telemetry.Logging.Level); err != nil {
			log.Warn("Ignoring log level from reloaded config", "error", err)
		}
	}

	job.UpdateConfig(&next.Reports)
	if scheduler == nil {
		if next.Reports.Enabled {
			log.Warn("Enabling reports requires a restart")
		}
		return
	}
	if err := scheduler.Reschedule(ctx, next.Reports.Schedule); err != nil {
		log.Error("Failed to apply report schedule", "error", err)
	}
}

func printBanner(cmd *cobra.Command, cfg *config.Config, scheduler *report.Scheduler) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Growth v%s\n", Version)
	cli.Success(out, "Storage: %s (%s)", cfg.Storage.Driver, cfg.Storage.Path)
	cli.Success(out, "API: http://%s/v1", cfg.Server.ListenAddress)
	cli.Success(out, "Health: http://%s/health", cfg.Server.ListenAddress)
	if cfg.Telemetry.Metrics.Enabled {
		cli.Success(out, "Metrics: http://%s%s", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	if scheduler != nil {
		if next := scheduler.NextRun(); next != nil {
			cli.Success(out, "Reports: next run %s", next.UTC().Format("2006-01-02 15:04:05Z"))
		} else {
			cli.Warning(out, "Reports enabled without a schedule")
		}
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")
}
