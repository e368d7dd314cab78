// Package logging assembles structured slog loggers and formatting helpers
// used across satcerts.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so lookup code can automatically tag log
// lines with run, identifier, and correlation fields. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits data with the same shape, including the per-run log file.
package logging
