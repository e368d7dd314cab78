package preflight

import (
	"context"

	"satcerts/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all preflight checks for the given config. The checks cover
// everything a run needs before the first portal session: writable output
// root, a readable input CSV when one is configured, a launchable browser,
// and solver credentials that the API accepts.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Output directory (always checked)
	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))

	// Input CSV (when configured)
	if cfg.Paths.InputCSV != "" {
		results = append(results, CheckInputFile("Input CSV", cfg.Paths.InputCSV))
	}

	// Browser binary
	results = append(results, CheckBrowser(cfg.Browser.Binary))

	// Solver credentials and API reachability
	results = append(results, CheckSolverAPI(ctx, cfg.SolverSettings()))

	return results
}

// Passed reports whether every result in the slice passed.
func Passed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
