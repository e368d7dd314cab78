package logging

import (
	"context"
	"log/slog"

	"satcerts/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized structured logging key for batch run identifiers.
	FieldRunID = "run_id"
	// FieldLookupID is the standardized structured logging key for per-lookup correlation identifiers.
	FieldLookupID = "lookup_id"
	// FieldRFC is the standardized structured logging key for taxpayer identifiers.
	FieldRFC = "rfc"
	// FieldSequenceID is the standardized structured logging key for input sequence correlators.
	FieldSequenceID = "sequence_id"
	// FieldAttempt is the standardized structured logging key for 1-based CAPTCHA attempt numbers.
	FieldAttempt = "attempt"
	// FieldOutcome is the standardized structured logging key for per-attempt outcomes.
	FieldOutcome = "outcome"
	// FieldStatus is the standardized structured logging key for terminal lookup statuses.
	FieldStatus = "status"
	// FieldEventType is the standardized structured logging key for machine-readable event names.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to do about a logged failure.
	FieldErrorHint = "error_hint"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if rfc, ok := services.RFCFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRFC, rfc))
	}
	if id, ok := services.LookupIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldLookupID, id))
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
	return logger.With(attrsToArgs(fields)...)
}
