package services

import "context"

type contextKey string

const (
	runIDKey    contextKey = "run_id"
	lookupIDKey contextKey = "lookup_id"
	rfcKey      contextKey = "rfc"
)

// WithRunID annotates context with the batch run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the batch run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithLookupID annotates context with a per-lookup correlation identifier.
func WithLookupID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, lookupIDKey, id)
}

// LookupIDFromContext extracts the per-lookup correlation identifier if present.
func LookupIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(lookupIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRFC annotates context with the taxpayer identifier being processed.
func WithRFC(ctx context.Context, rfc string) context.Context {
	if rfc == "" {
		return ctx
	}
	return context.WithValue(ctx, rfcKey, rfc)
}

// RFCFromContext extracts the taxpayer identifier if present.
func RFCFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(rfcKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
