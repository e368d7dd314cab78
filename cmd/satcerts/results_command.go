package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"satcerts/internal/config"
	"satcerts/internal/runstore"
)

func newResultsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "results [run-dir]",
		Short: "Show the lookups recorded for a run",
		Long: "Show the lookups recorded in a run directory's database. Without an " +
			"argument the most recent run under the configured output directory is used.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var runDir string
			if len(args) == 1 {
				runDir, err = config.ExpandPath(args[0])
			} else {
				runDir, err = latestRunDir(cfg.Paths.OutputDir)
			}
			if err != nil {
				return err
			}

			store, err := runstore.Open(filepath.Join(runDir, "run.db"))
			if err != nil {
				return fmt.Errorf("open run database: %w", err)
			}
			defer store.Close()

			run, err := store.GetRun(cmd.Context())
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("%s holds no run record", runDir)
			}
			lookups, err := store.ListLookups(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, buildResultsDocument(run, lookups))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s (%s): %d identifiers\n", run.RunID, run.Status, run.Total)
			if run.Detail != "" {
				fmt.Fprintf(out, "Detail: %s\n", run.Detail)
			}
			if len(lookups) == 0 {
				fmt.Fprintln(out, "No lookups recorded")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "ID", "RFC", "Status", "Attempts", "Certs", "Razon Social"},
				buildResultRows(lookups),
				0, 4, 5,
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")

	return cmd
}

// latestRunDir finds the newest run_* folder under outputDir. Run IDs embed
// their start timestamp, so lexical order is chronological order.
func latestRunDir(outputDir string) (string, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return "", fmt.Errorf("read output directory: %w", err)
	}
	var runs []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), "run_") {
			runs = append(runs, entry.Name())
		}
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("no runs found under %s", outputDir)
	}
	sort.Strings(runs)
	return filepath.Join(outputDir, runs[len(runs)-1]), nil
}

func buildResultRows(lookups []*runstore.Lookup) [][]string {
	rows := make([][]string, 0, len(lookups))
	for _, row := range lookups {
		rows = append(rows, []string{
			strconv.Itoa(row.Position + 1),
			row.SequenceID,
			row.RFC,
			row.Status,
			strconv.Itoa(row.AttemptCount),
			strconv.Itoa(row.CertificateCount),
			row.RazonSocial,
		})
	}
	return rows
}

type runDocument struct {
	RunID     string `json:"run_id"`
	Status    string `json:"status"`
	Total     int    `json:"total"`
	Succeeded int    `json:"succeeded"`
	NotFound  int    `json:"not_found"`
	Exhausted int    `json:"exhausted"`
	Fatal     int    `json:"fatal"`
	Detail    string `json:"detail,omitempty"`
}

type lookupDocument struct {
	Position     int    `json:"position"`
	SequenceID   string `json:"id"`
	RFC          string `json:"rfc"`
	Status       string `json:"status"`
	Attempts     int    `json:"attempts"`
	RazonSocial  string `json:"razon_social,omitempty"`
	Certificates int    `json:"certificates"`
	Page         string `json:"page,omitempty"`
	Error        string `json:"error,omitempty"`
}

type resultsDocument struct {
	Run     runDocument      `json:"run"`
	Lookups []lookupDocument `json:"lookups"`
}

func buildResultsDocument(run *runstore.RunRecord, lookups []*runstore.Lookup) resultsDocument {
	doc := resultsDocument{
		Run: runDocument{
			RunID:     run.RunID,
			Status:    run.Status,
			Total:     run.Total,
			Succeeded: run.Succeeded,
			NotFound:  run.NotFound,
			Exhausted: run.Exhausted,
			Fatal:     run.Fatal,
			Detail:    run.Detail,
		},
		Lookups: make([]lookupDocument, 0, len(lookups)),
	}
	for _, row := range lookups {
		doc.Lookups = append(doc.Lookups, lookupDocument{
			Position:     row.Position + 1,
			SequenceID:   row.SequenceID,
			RFC:          row.RFC,
			Status:       row.Status,
			Attempts:     row.AttemptCount,
			RazonSocial:  row.RazonSocial,
			Certificates: row.CertificateCount,
			Page:         row.PagePath,
			Error:        row.ErrorDetail,
		})
	}
	return doc
}
