package testsupport

import (
	"path/filepath"
	"testing"

	"satcerts/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t   testing.TB
	cfg *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields, shrinks every timeout so fakes never stall a
// test, and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.InputCSV = filepath.Join(base, "rfcs.csv")
	cfgVal.Paths.OutputDir = filepath.Join(base, "runs")
	cfgVal.Solver.Provider = config.ProviderOpenAI
	cfgVal.Solver.OpenAIKey = "test"
	cfgVal.Lookup.IdentifierDelaySeconds = 0
	cfgVal.Portal.NavigationTimeout = 1
	cfgVal.Portal.ElementTimeout = 1
	cfgVal.Portal.ResponseTimeout = 1

	builder := &configBuilder{
		t:   t,
		cfg: &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithIdentifiers writes an input CSV containing the provided RFCs and points
// the config at it.
func WithIdentifiers(rfcs ...string) ConfigOption {
	return func(b *configBuilder) {
		WriteInputCSV(b.t, b.cfg.Paths.InputCSV, rfcs...)
	}
}

// WithMaxAttempts overrides the per-identifier attempt cap.
func WithMaxAttempts(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Lookup.MaxAttempts = n
	}
}
