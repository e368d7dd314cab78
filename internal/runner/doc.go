// Package runner executes one batch of certificate lookups end to end.
//
// A run owns everything with a lifetime longer than a single identifier: the
// timestamped run directory and its artifact layout, the flock guard that
// keeps two runs out of one output root, the run database, the run log, the
// shared browser process, and the solver client. Identifiers are processed
// strictly in input order by the lookup state machine; after each one the
// runner mirrors the result into the run database so a crash loses at most
// the identifier in flight. The CSV exports are flushed at the end of the
// batch, aborted or not.
//
// The runner never decides lookup semantics. Attempt policy, outcome
// classification, and terminal statuses belong to the lookup package; this
// package supplies collaborators and accounts for the results.
package runner
