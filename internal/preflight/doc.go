// Package preflight provides readiness checks for external services
// and filesystem paths that satcerts depends on.
//
// These checks run in two contexts:
//   - The run command calls RunAll before launching the browser. If any
//     check fails, the batch is refused instead of burning portal attempts
//     on a doomed run.
//   - The CLI "satcerts preflight" command displays the same checks so an
//     operator can vet a host before scheduling a batch.
package preflight
