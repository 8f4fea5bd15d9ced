package service

import (
	"context"
	"log/slog"
	"time"

	"mercator-hq/growth/pkg/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// begin starts the span for op and returns a completion func that records
// its outcome. Call the completion func exactly once with the final error.
func (s *Service) begin(ctx context.Context, op string, attrs *tracing.AttributeBuilder) (context.Context, trace.Span, func(error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "growth."+op, attrs.Build())

	return ctx, span, func(err error) {
		defer span.End()

		kind := ErrorKind(err)
		s.metrics.RecordOperation(op, time.Since(start), kind)

		if err == nil {
			tracing.SetStatus(span, nil)
			return
		}

		tracing.SetError(span, err)
		span.SetAttributes(attribute.String(tracing.AttrErrorKind, kind))

		level := slog.LevelError
		if kind == KindInvalidInput {
			level = slog.LevelDebug
		}
		s.logger.Log(ctx, level, "Operation failed",
			"operation", op,
			"kind", kind,
			"error", err,
		)
	}
}
