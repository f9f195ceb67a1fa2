package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized structured logging key for training run identifiers.
	FieldRunID = "run_id"
	// FieldIteration is the standardized structured logging key for the current training iteration.
	FieldIteration = "iter"
	// FieldEventType names the kind of event a line reports.
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for warnings and errors.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldDecisionType names a controller decision (shrink, select, average).
	FieldDecisionType = "decision_type"
)

type contextKey int

const (
	runIDKey contextKey = iota
	iterationKey
)

// WithRunID returns a context carrying the training run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext returns the run identifier, if any.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(runIDKey).(string)
	return id, ok && id != ""
}

// WithIteration returns a context carrying the current iteration number.
func WithIteration(ctx context.Context, iter int) context.Context {
	return context.WithValue(ctx, iterationKey, iter)
}

// IterationFromContext returns the iteration number, if any.
func IterationFromContext(ctx context.Context) (int, bool) {
	if ctx == nil {
		return 0, false
	}
	iter, ok := ctx.Value(iterationKey).(int)
	return iter, ok
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if iter, ok := IterationFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldIteration, iter))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
