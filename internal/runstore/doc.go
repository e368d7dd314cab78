// Package runstore persists run, lookup, attempt, and certificate records
// in a SQLite database inside the run directory.
//
// The store is the durable mirror of a run in progress: lookups are
// inserted when they start and completed in place, attempts are appended
// as they finish, so a crash leaves an inspectable database behind. The
// results command reads the same database afterwards.
package runstore
