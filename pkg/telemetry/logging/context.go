package logging

import (
	"context"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// ExperimentIDKey is the context key for experiment identifiers.
	ExperimentIDKey contextKey = "experiment_id"

	// SubjectIDKey is the context key for experiment subject identifiers.
	SubjectIDKey contextKey = "subject_id"

	// StrategyTypeKey is the context key for strategy types.
	StrategyTypeKey contextKey = "strategy_type"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithExperimentID adds an experiment ID to the context.
func WithExperimentID(ctx context.Context, experimentID string) context.Context {
	return context.WithValue(ctx, ExperimentIDKey, experimentID)
}

// GetExperimentID retrieves the experiment ID from the context.
func GetExperimentID(ctx context.Context) string {
	if experimentID, ok := ctx.Value(ExperimentIDKey).(string); ok {
		return experimentID
	}
	return ""
}

// WithSubjectID adds a subject ID to the context.
func WithSubjectID(ctx context.Context, subjectID string) context.Context {
	return context.WithValue(ctx, SubjectIDKey, subjectID)
}

// GetSubjectID retrieves the subject ID from the context.
func GetSubjectID(ctx context.Context) string {
	if subjectID, ok := ctx.Value(SubjectIDKey).(string); ok {
		return subjectID
	}
	return ""
}

// WithStrategyType adds a strategy type to the context.
func WithStrategyType(ctx context.Context, strategyType string) context.Context {
	return context.WithValue(ctx, StrategyTypeKey, strategyType)
}

// GetStrategyType retrieves the strategy type from the context.
func GetStrategyType(ctx context.Context) string {
	if strategyType, ok := ctx.Value(StrategyTypeKey).(string); ok {
		return strategyType
	}
	return ""
}
