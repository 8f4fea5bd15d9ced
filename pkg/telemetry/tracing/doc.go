// Package tracing provides OpenTelemetry tracing for the growth engine.
//
// Spans are exported over OTLP gRPC when tracing is enabled. When it is
// disabled, or when a nil *Tracer is used, every span is a no-op, so
// service code instruments unconditionally:
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "growth.assign_variant",
//	    tracing.NewAttributeBuilder().WithExperiment(exp, subject).Build())
//	defer span.End()
//
// Sampling is parent-based: root spans are sampled at the configured ratio
// and child spans inherit the decision of their parent.
//
// HTTPMiddleware extracts W3C traceparent headers from incoming requests so
// that spans started by handlers join the caller's trace.
package tracing
