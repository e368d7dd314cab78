// Package solver turns CAPTCHA images into candidate solutions using a
// vision-capable language model.
//
// A Solver performs exactly one model call per Solve invocation and never
// retries internally; the lookup state machine owns the attempt budget and
// decides whether a failed solve consumes another round. Failures carry a
// typed reason (rate limited, malformed response, upstream error) so the
// caller can log and classify them without parsing error strings.
package solver
