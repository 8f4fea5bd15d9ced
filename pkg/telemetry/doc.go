// Package telemetry groups the observability packages of the growth engine:
//
//   - logging: slog-based structured logging with request context
//   - metrics: Prometheus collectors for assignments, events and comparisons
//   - tracing: OpenTelemetry spans exported over OTLP gRPC
//   - health: liveness and readiness probes
package telemetry
