package main

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"satcerts/internal/config"
	"satcerts/internal/preflight"
	"satcerts/internal/runner"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var inputFlag string
	var outputFlag string
	var maxAttemptsFlag int
	var headlessFlag bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process the input CSV against the recovery portal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := applyRunFlags(cmd, cfg, inputFlag, outputFlag, maxAttemptsFlag, headlessFlag); err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := runPreflight(signalCtx, cmd, cfg); err != nil {
				return err
			}

			summary, err := runner.New(cfg).Run(signalCtx)
			if summary != nil {
				printSummary(cmd, summary)
			}
			if err != nil {
				return err
			}
			if summary.Aborted {
				return fmt.Errorf("run aborted: %s", summary.AbortReason)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputFlag, "input", "i", "", "Input CSV path (overrides config)")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Directory that receives run folders (overrides config)")
	cmd.Flags().IntVar(&maxAttemptsFlag, "max-attempts", 0, "CAPTCHA attempts per identifier (overrides config)")
	cmd.Flags().BoolVar(&headlessFlag, "headless", true, "Run the browser headless")

	return cmd
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config, input, output string, maxAttempts int, headless bool) error {
	flags := cmd.Flags()
	if flags.Changed("input") {
		expanded, err := config.ExpandPath(strings.TrimSpace(input))
		if err != nil {
			return fmt.Errorf("resolve input path: %w", err)
		}
		cfg.Paths.InputCSV = expanded
	}
	if flags.Changed("output") {
		expanded, err := config.ExpandPath(strings.TrimSpace(output))
		if err != nil {
			return fmt.Errorf("resolve output path: %w", err)
		}
		cfg.Paths.OutputDir = expanded
	}
	if flags.Changed("max-attempts") {
		if maxAttempts < 1 {
			return fmt.Errorf("max-attempts must be at least 1, got %d", maxAttempts)
		}
		cfg.Lookup.MaxAttempts = maxAttempts
	}
	if flags.Changed("headless") {
		cfg.Browser.Headless = headless
	}
	return nil
}

func runPreflight(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	out := cmd.OutOrStdout()
	var failures []string
	for _, result := range preflight.RunAll(ctx, cfg) {
		state := "ok"
		if !result.Passed {
			state = "FAIL"
			failures = append(failures, fmt.Sprintf("%s: %s", result.Name, result.Detail))
		}
		fmt.Fprintf(out, "[%4s] %-16s %s\n", state, result.Name, result.Detail)
	}
	if len(failures) > 0 {
		return fmt.Errorf("preflight checks failed: %s", strings.Join(failures, "; "))
	}
	return nil
}

func printSummary(cmd *cobra.Command, summary *runner.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nRun %s finished in %s\n", summary.RunID, summary.Duration.Round(time.Second))
	rows := [][]string{
		{"Certificates found", strconv.Itoa(summary.Succeeded)},
		{"Not registered", strconv.Itoa(summary.NotFound)},
		{"Retries exhausted", strconv.Itoa(summary.Exhausted)},
		{"Failed", strconv.Itoa(summary.Fatal)},
		{"Skipped input rows", strconv.Itoa(summary.Skipped)},
	}
	fmt.Fprintln(out, renderTable([]string{"Outcome", "Count"}, rows, 1))
	fmt.Fprintf(out, "Artifacts: %s\n", summary.RunDir)
}
