package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteInputCSV writes a batch input file with an rfc header and one row per
// provided identifier.
func WriteInputCSV(t testing.TB, path string, rfcs ...string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}

	var builder strings.Builder
	builder.WriteString("rfc\n")
	for _, rfc := range rfcs {
		builder.WriteString(rfc)
		builder.WriteString("\n")
	}
	if err := os.WriteFile(path, []byte(builder.String()), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
