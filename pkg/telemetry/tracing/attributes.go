package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys recorded on growth spans. Custom keys use the "growth.*"
// namespace; HTTP keys follow OpenTelemetry semantic conventions.
const (
	AttrExperimentID    = "growth.experiment_id"
	AttrSubjectID       = "growth.subject_id"
	AttrVariant         = "growth.variant"
	AttrCreated         = "growth.assignment.created"
	AttrStage           = "growth.stage"
	AttrFromStage       = "growth.from_stage"
	AttrToStage         = "growth.to_stage"
	AttrStrategyType    = "growth.strategy.type"
	AttrStrategyVersion = "growth.strategy.version"
	AttrStrategyActive  = "growth.strategy.active"
	AttrBaseline        = "growth.strategy.baseline"
	AttrDays            = "growth.funnel.days"
	AttrBucket          = "growth.funnel.bucket"
	AttrPValue          = "growth.comparison.p_value"
	AttrReportRunID     = "growth.report.run_id"
	AttrErrorKind       = "growth.error.kind"

	AttrHTTPMethod     = "http.method"
	AttrHTTPRoute      = "http.route"
	AttrHTTPStatusCode = "http.status_code"
	AttrRequestID      = "http.request_id"
)

// AttributeBuilder collects span attributes, skipping empty strings.
type AttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewAttributeBuilder creates an empty builder.
func NewAttributeBuilder() *AttributeBuilder {
	return &AttributeBuilder{attrs: make([]attribute.KeyValue, 0, 6)}
}

func (ab *AttributeBuilder) str(key, value string) *AttributeBuilder {
	if value != "" {
		ab.attrs = append(ab.attrs, attribute.String(key, value))
	}
	return ab
}

// WithExperiment adds the experiment and subject identifiers.
func (ab *AttributeBuilder) WithExperiment(experimentID, subjectID string) *AttributeBuilder {
	return ab.str(AttrExperimentID, experimentID).str(AttrSubjectID, subjectID)
}

// WithVariant adds the variant label.
func (ab *AttributeBuilder) WithVariant(variant string) *AttributeBuilder {
	return ab.str(AttrVariant, variant)
}

// WithStage adds a funnel stage.
func (ab *AttributeBuilder) WithStage(stage string) *AttributeBuilder {
	return ab.str(AttrStage, stage)
}

// WithStages adds the from/to stages of a comparison.
func (ab *AttributeBuilder) WithStages(from, to string) *AttributeBuilder {
	return ab.str(AttrFromStage, from).str(AttrToStage, to)
}

// WithStrategy adds the strategy type and version.
func (ab *AttributeBuilder) WithStrategy(strategyType, version string) *AttributeBuilder {
	return ab.str(AttrStrategyType, strategyType).str(AttrStrategyVersion, version)
}

// WithWindow adds funnel window parameters.
func (ab *AttributeBuilder) WithWindow(days int, bucket string) *AttributeBuilder {
	ab.attrs = append(ab.attrs, attribute.Int(AttrDays, days))
	return ab.str(AttrBucket, bucket)
}

// WithBool adds a boolean attribute.
func (ab *AttributeBuilder) WithBool(key string, value bool) *AttributeBuilder {
	ab.attrs = append(ab.attrs, attribute.Bool(key, value))
	return ab
}

// WithString adds a string attribute if value is non-empty.
func (ab *AttributeBuilder) WithString(key, value string) *AttributeBuilder {
	return ab.str(key, value)
}

// Build returns the attributes as a span start option.
func (ab *AttributeBuilder) Build() trace.SpanStartOption {
	return trace.WithAttributes(ab.attrs...)
}

// Apply sets the attributes on span.
func (ab *AttributeBuilder) Apply(span trace.Span) {
	span.SetAttributes(ab.attrs...)
}

// Attributes returns the raw attribute slice.
func (ab *AttributeBuilder) Attributes() []attribute.KeyValue {
	return ab.attrs
}
