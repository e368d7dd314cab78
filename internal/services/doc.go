// Package services defines shared utilities consumed by the lookup pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run, lookup, and identifier fields for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper so failures from the
//     browser, the portal, and the solver classify consistently.
//   - Operator hints derived from markers, surfaced in error logs.
//
// Use these helpers when wiring new components so operational behaviour
// (error handling, observability) stays uniform across the batch.
package services
