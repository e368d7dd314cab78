// Package notifications delivers run milestones via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Batch runs take hours against a slow portal, so the service covers
// the moments an operator actually waits for: the run starting, the run
// finishing with its tallies, and the run aborting early.
//
// Extend this package if you need alternative transports; the runner depends
// only on the simple Service interface.
package notifications
