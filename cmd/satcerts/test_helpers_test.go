package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"satcerts/internal/runstore"
	"satcerts/internal/testsupport"
)

type cliEnv struct {
	baseDir    string
	configPath string
	inputCSV   string
	outputDir  string
}

// setupCLIEnv builds a config file whose checks all pass: temp directories,
// a stub browser on PATH, and a local stand-in for the solver API.
func setupCLIEnv(t *testing.T) cliEnv {
	t.Helper()

	base := t.TempDir()
	home := filepath.Join(base, "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	t.Setenv("SATCERTS_CONFIG", "")
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("ANTHROPIC_API_KEY", "")

	binDir := filepath.Join(base, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	stub := filepath.Join(binDir, "google-chrome")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write browser stub: %v", err)
	}
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	solverAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(solverAPI.Close)

	inputCSV := filepath.Join(base, "rfcs.csv")
	testsupport.WriteInputCSV(t, inputCSV, "AAA010101AAA")
	outputDir := filepath.Join(base, "runs")

	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf("[paths]\ninput_csv = %q\noutput_dir = %q\n\n[solver]\nprovider = \"openai\"\nopenai_base_url = %q\n",
		inputCSV, outputDir, solverAPI.URL)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return cliEnv{baseDir: base, configPath: configPath, inputCSV: inputCSV, outputDir: outputDir}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// seedRunDir writes a finished two-lookup run database under outputDir.
func seedRunDir(t *testing.T, outputDir, runID string) string {
	t.Helper()
	ctx := context.Background()

	runDir := filepath.Join(outputDir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		t.Fatalf("mkdir run dir: %v", err)
	}
	store, err := runstore.Open(filepath.Join(runDir, "run.db"))
	if err != nil {
		t.Fatalf("open run store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close run store: %v", err)
		}
	}()

	record := &runstore.RunRecord{RunID: runID, InputPath: "rfcs.csv", OutputDir: runDir, Total: 2}
	if err := store.BeginRun(ctx, record); err != nil {
		t.Fatalf("begin run: %v", err)
	}

	first := &runstore.Lookup{
		LookupID:   runID + "-1",
		RunID:      runID,
		Position:   0,
		SequenceID: "1",
		RFC:        "AAA010101AAA",
		Status:     runstore.LookupStatusRunning,
	}
	if err := store.InsertLookup(ctx, first); err != nil {
		t.Fatalf("insert lookup: %v", err)
	}
	first.Status = "success"
	first.AttemptCount = 1
	first.RazonSocial = "EMPRESA UNO SA DE CV"
	first.CertificateCount = 2
	if err := store.CompleteLookup(ctx, first); err != nil {
		t.Fatalf("complete lookup: %v", err)
	}

	second := &runstore.Lookup{
		LookupID:   runID + "-2",
		RunID:      runID,
		Position:   1,
		SequenceID: "2",
		RFC:        "BBB010101BB2",
		Status:     runstore.LookupStatusRunning,
	}
	if err := store.InsertLookup(ctx, second); err != nil {
		t.Fatalf("insert lookup: %v", err)
	}
	second.Status = "exhausted_retries"
	second.AttemptCount = 5
	if err := store.CompleteLookup(ctx, second); err != nil {
		t.Fatalf("complete lookup: %v", err)
	}

	record.Status = runstore.RunStatusCompleted
	record.Succeeded = 1
	record.Exhausted = 1
	if err := store.FinishRun(ctx, record); err != nil {
		t.Fatalf("finish run: %v", err)
	}
	return runDir
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
