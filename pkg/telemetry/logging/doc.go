// Package logging configures structured logging on top of log/slog.
//
// # Overview
//
// New builds a JSON or text slog handler from Config. The level lives in a
// slog.LevelVar, so SetLevel takes effect immediately for every logger
// derived from the same root, which is how configuration reloads change
// verbosity without a restart.
//
// Records logged with a context pick up the request ID, experiment ID,
// subject ID and strategy type stored by the With* helpers, plus the
// OpenTelemetry trace and span IDs of the active span.
//
// # Usage
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json"})
//	if err != nil {
//	    return err
//	}
//	logger.SetDefault()
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	slog.InfoContext(ctx, "assignment created", "variant", "B")
package logging
