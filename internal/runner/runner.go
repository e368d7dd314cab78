package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"satcerts/internal/config"
	"satcerts/internal/deps"
	"satcerts/internal/logging"
	"satcerts/internal/lookup"
	"satcerts/internal/notifications"
	"satcerts/internal/portal"
	"satcerts/internal/records"
	"satcerts/internal/report"
	"satcerts/internal/runstore"
	"satcerts/internal/services"
	"satcerts/internal/solver"
)

const runIDLayout = "20060102_150405"

// BrowserHandle is the slice of portal.Browser a run drives.
type BrowserHandle interface {
	NewTab(ctx context.Context) (portal.Driver, error)
	Alive() bool
	Close() error
}

// Environment supplies a run's external boundaries. Zero fields fall back to
// the production implementations; tests substitute fakes.
type Environment struct {
	// StartBrowser launches the shared browser process. The runner owns the
	// returned handle and closes it when the batch ends.
	StartBrowser func(ctx context.Context, logger *slog.Logger) (BrowserHandle, error)
	// NewSessions builds the per-identifier session factory over the browser.
	NewSessions func(browser BrowserHandle, logger *slog.Logger) lookup.SessionFactory
	// NewSolver builds the vision solver client.
	NewSolver func() (solver.Solver, error)
	// Notifier overrides the ntfy service derived from config.
	Notifier notifications.Service
	// Logger overrides the console-plus-run.log logger built at run start.
	Logger *slog.Logger
}

// Runner executes one batch of identifier lookups.
type Runner struct {
	cfg *config.Config
	env Environment
}

// New builds a Runner with the production browser and solver.
func New(cfg *config.Config) *Runner {
	return NewWithEnvironment(cfg, Environment{})
}

// NewWithEnvironment builds a Runner with explicit collaborators.
func NewWithEnvironment(cfg *config.Config, env Environment) *Runner {
	return &Runner{cfg: cfg, env: env}
}

// Run processes the configured input CSV to completion. The returned Summary
// is non-nil whenever the run directory was opened; a non-nil error means the
// run could not start or could not flush its exports. Mid-run aborts are
// reported through Summary.Aborted, not the error.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	batch, err := records.Load(r.cfg.Paths.InputCSV)
	if err != nil {
		return nil, err
	}
	if len(batch.Identifiers) == 0 {
		return nil, fmt.Errorf("input %s contains no usable identifiers (%d rows skipped)", r.cfg.Paths.InputCSV, batch.Skipped)
	}

	prompts, err := solver.Rotation(r.cfg.Solver.PromptStrategy)
	if err != nil {
		return nil, err
	}
	solve, err := r.newSolver()
	if err != nil {
		return nil, err
	}

	if err := r.cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	lock := flock.New(filepath.Join(r.cfg.Paths.OutputDir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another run is already active in %s", r.cfg.Paths.OutputDir)
	}
	defer func() { _ = lock.Unlock() }()

	started := time.Now()
	runID := "run_" + started.Format(runIDLayout)
	layout := newRunLayout(r.cfg.Paths.OutputDir, runID)
	if err := layout.prepare(); err != nil {
		return nil, err
	}

	logger, err := r.runLogger(layout)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		RunID:           runID,
		RunDir:          layout.root,
		Total:           len(batch.Identifiers),
		Skipped:         batch.Skipped,
		Started:         started,
		ResultsCSV:      layout.resultsCSV(),
		CertificatesCSV: layout.certificatesCSV(),
	}

	store, err := runstore.Open(layout.database())
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close run database", logging.Error(err))
		}
	}()

	// Cancellation stops the loop, not the bookkeeping: rows, exports, and
	// the final notification still land after an abort.
	persistCtx := context.WithoutCancel(ctx)

	rec := newRecorder(store, runID, logger)
	record := &runstore.RunRecord{
		RunID:     runID,
		InputPath: r.cfg.Paths.InputCSV,
		OutputDir: layout.root,
		Total:     len(batch.Identifiers),
		StartedAt: started.UTC(),
	}
	if err := store.BeginRun(persistCtx, record); err != nil {
		return nil, err
	}

	notifier := r.notifier()
	logger.Info("run started",
		logging.String(logging.FieldRunID, runID),
		logging.String("input", r.cfg.Paths.InputCSV),
		logging.Int("identifiers", len(batch.Identifiers)),
		logging.Int("skipped_rows", batch.Skipped))
	if err := notifier.NotifyRunStarted(ctx, runID, len(batch.Identifiers)); err != nil {
		logger.Warn("failed to send run start notification", logging.Error(err))
	}

	browser, err := r.startBrowser(ctx, logger)
	if err != nil {
		r.failRun(persistCtx, rec, record, summary, logger, err)
		r.notifyFinished(persistCtx, notifier, summary, logger)
		return summary, err
	}
	defer func() {
		if err := browser.Close(); err != nil {
			logger.Warn("failed to close browser", logging.Error(err))
		}
	}()

	sink := newArtifactSink(layout)
	var current *runstore.Lookup
	machine, err := lookup.NewMachine(lookup.MachineConfig{
		Sessions:    r.newSessions(browser, logger),
		Solver:      solve,
		Artifacts:   sink,
		Prompts:     prompts,
		MaxAttempts: r.cfg.Lookup.MaxAttempts,
		Observer: func(identifier records.Identifier, attempt lookup.Attempt) {
			if current != nil {
				rec.attempt(persistCtx, current, attempt)
			}
		},
		Logger: logger,
	})
	if err != nil {
		r.failRun(persistCtx, rec, record, summary, logger, err)
		r.notifyFinished(persistCtx, notifier, summary, logger)
		return summary, err
	}

	ctx = services.WithRunID(ctx, runID)
	results := make([]*lookup.Result, 0, len(batch.Identifiers))
	delay := time.Duration(r.cfg.Lookup.IdentifierDelaySeconds) * time.Second

	for position, identifier := range batch.Identifiers {
		if position > 0 {
			pause(ctx, delay)
		}
		if err := ctx.Err(); err != nil {
			r.abort(summary, logger, err, abortReason(err))
			break
		}
		if !browser.Alive() {
			r.abort(summary, logger, services.ErrBrowserLost, "browser terminated")
			break
		}

		logger.Info("lookup started",
			logging.String(logging.FieldRFC, identifier.RFC),
			logging.String(logging.FieldSequenceID, identifier.SequenceID),
			logging.Int("position", position+1),
			logging.Int("of", len(batch.Identifiers)))

		row := rec.beginLookup(persistCtx, position, identifier)
		lookupCtx := services.WithLookupID(services.WithRFC(ctx, identifier.RFC), row.LookupID)

		current = row
		result, runErr := machine.Run(lookupCtx, identifier)
		current = nil

		results = append(results, result)
		summary.tally(result.Status)
		rec.complete(persistCtx, row, result)
		logger.Info("lookup finished",
			logging.String(logging.FieldRFC, identifier.RFC),
			logging.String(logging.FieldStatus, string(result.Status)),
			logging.Int("attempts", len(result.Attempts)),
			logging.Int("certificates", result.CertificateCount()))

		if runErr != nil {
			r.abort(summary, logger, runErr, abortReason(runErr))
			break
		}
	}

	summary.Duration = time.Since(started)

	exportErr := r.export(layout, results, logger)

	record.Succeeded = summary.Succeeded
	record.NotFound = summary.NotFound
	record.Exhausted = summary.Exhausted
	record.Fatal = summary.Fatal
	record.Detail = summary.AbortReason
	record.Status = runstore.RunStatusCompleted
	if summary.Aborted {
		record.Status = runstore.RunStatusAborted
	}
	rec.finishRun(persistCtx, record)

	r.notifyFinished(persistCtx, notifier, summary, logger)

	logger.Info("run finished",
		logging.String(logging.FieldRunID, runID),
		logging.String(logging.FieldStatus, record.Status),
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("not_found", summary.NotFound),
		logging.Int("exhausted", summary.Exhausted),
		logging.Int("fatal", summary.Fatal),
		logging.Duration("duration", summary.Duration))

	if exportErr != nil {
		return summary, exportErr
	}
	return summary, nil
}

// abort flips the summary into its aborted state; the loop breaks right after.
func (r *Runner) abort(summary *Summary, logger *slog.Logger, cause error, reason string) {
	summary.Aborted = true
	summary.AbortReason = reason
	attrs := []logging.Attr{
		logging.String("reason", reason),
		logging.Int("completed", summary.Completed()),
		logging.Int("total", summary.Total),
	}
	if cause != nil {
		attrs = append(attrs, logging.String(logging.FieldErrorHint, services.ErrorHint(cause)))
	}
	logging.ErrorWithContext(logger, "run aborted", "run_aborted", attrs...)
}

// failRun marks the run aborted when startup dies after the run row exists.
func (r *Runner) failRun(ctx context.Context, rec *recorder, record *runstore.RunRecord, summary *Summary, logger *slog.Logger, err error) {
	summary.Aborted = true
	summary.AbortReason = err.Error()
	record.Status = runstore.RunStatusAborted
	record.Detail = err.Error()
	rec.finishRun(ctx, record)
	logging.ErrorWithContext(logger, "run failed during startup", "run_startup_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, services.ErrorHint(err)))
}

func (r *Runner) export(layout runLayout, results []*lookup.Result, logger *slog.Logger) error {
	if err := report.WriteResults(layout.resultsCSV(), results); err != nil {
		return fmt.Errorf("write results export: %w", err)
	}
	if err := report.WriteCertificates(layout.certificatesCSV(), results); err != nil {
		return fmt.Errorf("write certificates export: %w", err)
	}
	logger.Info("exports written",
		logging.String("results", layout.resultsCSV()),
		logging.String("certificates", layout.certificatesCSV()))
	return nil
}

func (r *Runner) notifyFinished(ctx context.Context, notifier notifications.Service, summary *Summary, logger *slog.Logger) {
	notifyCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var err error
	if summary.Aborted {
		err = notifier.NotifyRunAborted(notifyCtx, summary.Completed(), summary.Total, summary.AbortReason)
	} else {
		err = notifier.NotifyRunCompleted(notifyCtx, summary.Succeeded, summary.NotFound, summary.Failed(), summary.Duration)
	}
	if err != nil {
		logger.Warn("failed to send run notification", logging.Error(err))
	}
}

func (r *Runner) startBrowser(ctx context.Context, logger *slog.Logger) (BrowserHandle, error) {
	if r.env.StartBrowser != nil {
		return r.env.StartBrowser(ctx, logger)
	}
	binary := deps.ResolveBrowserPath(r.cfg.Browser.Binary)
	if binary == "" {
		if r.cfg.Browser.Binary != "" {
			return nil, fmt.Errorf("configured browser %q is not an executable", r.cfg.Browser.Binary)
		}
		return nil, errors.New("no Chrome or Chromium binary found on PATH")
	}
	browser, err := portal.StartBrowser(ctx, portal.BrowserConfig{
		Binary:       binary,
		Headless:     r.cfg.Browser.Headless,
		WindowWidth:  r.cfg.Browser.WindowWidth,
		WindowHeight: r.cfg.Browser.WindowHeight,
		UserAgent:    r.cfg.Browser.UserAgent,
	}, logger)
	if err != nil {
		return nil, err
	}
	return browser, nil
}

func (r *Runner) newSessions(browser BrowserHandle, logger *slog.Logger) lookup.SessionFactory {
	if r.env.NewSessions != nil {
		return r.env.NewSessions(browser, logger)
	}
	return &tabSessions{browser: browser, portal: r.cfg.Portal, logger: logger}
}

func (r *Runner) newSolver() (solver.Solver, error) {
	if r.env.NewSolver != nil {
		return r.env.NewSolver()
	}
	settings := r.cfg.SolverSettings()
	return solver.New(solver.Config{
		Provider:          settings.Provider,
		APIKey:            settings.APIKey,
		BaseURL:           settings.BaseURL,
		Model:             settings.Model,
		TimeoutSeconds:    settings.TimeoutSeconds,
		MaxSolutionLength: settings.MaxSolutionLength,
	})
}

func (r *Runner) notifier() notifications.Service {
	if r.env.Notifier != nil {
		return r.env.Notifier
	}
	return notifications.NewService(r.cfg)
}

// runLogger builds the run-scoped logger: the configured console format plus
// an append-only copy in the run directory.
func (r *Runner) runLogger(layout runLayout) (*slog.Logger, error) {
	if r.env.Logger != nil {
		return r.env.Logger, nil
	}
	logger, err := logging.New(logging.Options{
		Level:       r.cfg.Logging.Level,
		Format:      r.cfg.Logging.Format,
		OutputPaths: []string{"stdout", layout.logFile()},
	})
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	return logger, nil
}

// tabSessions opens one tab per identifier on the shared browser.
type tabSessions struct {
	browser BrowserHandle
	portal  config.Portal
	logger  *slog.Logger
}

func (t *tabSessions) NewSession(ctx context.Context) (lookup.PortalSession, error) {
	driver, err := t.browser.NewTab(ctx)
	if err != nil {
		return nil, err
	}
	return portal.NewSession(driver, t.portal, t.logger), nil
}

func pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func abortReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "run cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "run timed out"
	case errors.Is(err, services.ErrBrowserLost):
		return "browser terminated"
	default:
		return err.Error()
	}
}
