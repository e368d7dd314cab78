package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"satcerts/internal/logging"
	"satcerts/internal/portal"
	"satcerts/internal/records"
	"satcerts/internal/services"
	"satcerts/internal/solver"
)

const defaultMaxAttempts = 5

// PortalSession is the slice of portal.Session the machine drives.
type PortalSession interface {
	Open(ctx context.Context) error
	FetchCaptcha(ctx context.Context) ([]byte, error)
	Submit(ctx context.Context, rfc, solution string) (*portal.SubmitResult, error)
	Close() error
}

// SessionFactory opens a fresh portal session for one identifier. A factory
// error means the browser itself is unusable, not the page.
type SessionFactory interface {
	NewSession(ctx context.Context) (PortalSession, error)
}

// ArtifactSink persists per-attempt artifacts. Sink failures are logged and
// never interrupt a lookup.
type ArtifactSink interface {
	SaveCaptcha(identifier records.Identifier, attempt int, image []byte) (string, error)
	SaveResultsPage(identifier records.Identifier, page string) (string, error)
}

// AttemptObserver sees every attempt immediately after it is recorded.
type AttemptObserver func(identifier records.Identifier, attempt Attempt)

// MachineConfig wires a Machine's collaborators.
type MachineConfig struct {
	Sessions    SessionFactory
	Solver      solver.Solver
	Artifacts   ArtifactSink
	Prompts     []solver.Prompt
	MaxAttempts int
	Observer    AttemptObserver
	Logger      *slog.Logger
}

// Machine executes lookups one identifier at a time.
type Machine struct {
	sessions    SessionFactory
	solver      solver.Solver
	artifacts   ArtifactSink
	prompts     []solver.Prompt
	maxAttempts int
	observer    AttemptObserver
	logger      *slog.Logger
}

// NewMachine validates cfg and builds a Machine.
func NewMachine(cfg MachineConfig) (*Machine, error) {
	if cfg.Sessions == nil {
		return nil, errors.New("lookup: session factory required")
	}
	if cfg.Solver == nil {
		return nil, errors.New("lookup: solver required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if len(cfg.Prompts) == 0 {
		cfg.Prompts = solver.Strategies()
	}
	if cfg.Artifacts == nil {
		cfg.Artifacts = discardSink{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	return &Machine{
		sessions:    cfg.Sessions,
		solver:      cfg.Solver,
		artifacts:   cfg.Artifacts,
		prompts:     cfg.Prompts,
		maxAttempts: cfg.MaxAttempts,
		observer:    cfg.Observer,
		logger:      logging.NewComponentLogger(cfg.Logger, "lookup"),
	}, nil
}

// MaxAttempts returns the per-identifier attempt budget.
func (m *Machine) MaxAttempts() int {
	return m.maxAttempts
}

// Run executes one identifier's lookup to a terminal status. The returned
// Result is always usable. A non-nil error means the whole batch must stop:
// the browser is gone or the run was cancelled.
func (m *Machine) Run(ctx context.Context, identifier records.Identifier) (*Result, error) {
	logger := m.logger.With(logging.String(logging.FieldRFC, identifier.RFC))
	result := &Result{Identifier: identifier, StartedAt: time.Now()}

	session, err := m.sessions.NewSession(ctx)
	if err != nil {
		m.finish(result, StatusFatalError, err.Error())
		if errors.Is(err, services.ErrBrowserLost) || ctx.Err() != nil {
			return result, err
		}
		return result, nil
	}

	sessionClosed := false
	closeSession := func() {
		if sessionClosed {
			return
		}
		sessionClosed = true
		if err := session.Close(); err != nil {
			logger.Warn("failed to close portal session", logging.Error(err))
		}
	}
	defer closeSession()

	if err := session.Open(ctx); err != nil {
		logger.Warn("portal form unavailable", logging.Error(err))
		m.finish(result, StatusFatalError, err.Error())
		return result, nil
	}

	for number := 1; number <= m.maxAttempts; number++ {
		if err := ctx.Err(); err != nil {
			m.finish(result, StatusFatalError, "run cancelled")
			return result, err
		}

		prompt := solver.ForAttempt(m.prompts, number)
		attempt := Attempt{Number: number, Strategy: prompt.Name}
		round := m.round(ctx, session, identifier, &attempt, prompt)

		attempt.Outcome = round.outcome
		attempt.RecordedAt = time.Now()
		result.Attempts = append(result.Attempts, attempt)
		logger.Info("attempt finished",
			logging.Int(logging.FieldAttempt, attempt.Number),
			logging.String(logging.FieldOutcome, string(attempt.Outcome)),
			logging.String("strategy", attempt.Strategy))
		if m.observer != nil {
			m.observer(identifier, attempt)
		}

		switch decide(round.outcome, round.stage) {
		case actionSuccess:
			m.attachPayload(result, identifier, round.submit)
			m.finish(result, StatusSuccess, "")
			return result, nil
		case actionNotFound:
			m.finish(result, StatusIdentifierNotFound, "")
			return result, nil
		case actionFatal:
			m.finish(result, StatusFatalError, attempt.Detail)
			if errors.Is(round.err, services.ErrBrowserLost) {
				return result, round.err
			}
			return result, nil
		case actionContinue:
		}
	}

	m.finish(result, StatusExhaustedRetries, "")
	return result, nil
}

type roundResult struct {
	outcome Outcome
	stage   Stage
	submit  *portal.SubmitResult
	err     error
}

// round performs one fetch/solve/submit pass and fills the attempt's
// solution, artifact path, and failure detail.
func (m *Machine) round(ctx context.Context, session PortalSession, identifier records.Identifier, attempt *Attempt, prompt solver.Prompt) roundResult {
	image, err := session.FetchCaptcha(ctx)
	if err != nil {
		attempt.Detail = err.Error()
		return roundResult{outcome: OutcomeTransportError, stage: StageFetch, err: err}
	}
	if path, err := m.artifacts.SaveCaptcha(identifier, attempt.Number, image); err != nil {
		m.logger.Warn("failed to save captcha image", logging.Error(err))
	} else {
		attempt.ImagePath = path
	}

	solution, err := m.solver.Solve(ctx, image, prompt)
	if err != nil {
		attempt.Detail = err.Error()
		return roundResult{outcome: OutcomeSolverFailed, stage: StageSolve, err: err}
	}
	attempt.Solution = solution

	submitted, err := session.Submit(ctx, identifier.RFC, solution)
	if err != nil {
		attempt.Detail = err.Error()
		return roundResult{outcome: OutcomeTransportError, stage: StageSubmit, err: err}
	}

	switch submitted.Verdict {
	case portal.VerdictAccepted:
		return roundResult{outcome: OutcomeAccepted, stage: StageSubmit, submit: submitted}
	case portal.VerdictWrongCaptcha:
		return roundResult{outcome: OutcomeRejectedWrongCaptcha, stage: StageSubmit, submit: submitted}
	case portal.VerdictUnknownIdentifier:
		return roundResult{outcome: OutcomeUnknownIdentifier, stage: StageSubmit, submit: submitted}
	default:
		attempt.Detail = fmt.Sprintf("unexpected portal verdict %q", submitted.Verdict)
		return roundResult{outcome: OutcomeTransportError, stage: StageSubmit}
	}
}

func (m *Machine) attachPayload(result *Result, identifier records.Identifier, submitted *portal.SubmitResult) {
	if submitted == nil {
		return
	}
	result.Report = submitted.Report
	if result.Report == nil {
		result.Report = &portal.CertificateReport{}
	}
	if submitted.Page == "" {
		return
	}
	if path, err := m.artifacts.SaveResultsPage(identifier, submitted.Page); err != nil {
		m.logger.Warn("failed to save results page", logging.Error(err))
	} else {
		result.PagePath = path
	}
}

func (m *Machine) finish(result *Result, status Status, detail string) {
	result.Status = status
	result.Detail = detail
	result.FinishedAt = time.Now()
}

// discardSink drops artifacts; used when no sink is wired.
type discardSink struct{}

func (discardSink) SaveCaptcha(records.Identifier, int, []byte) (string, error) {
	return "", nil
}

func (discardSink) SaveResultsPage(records.Identifier, string) (string, error) {
	return "", nil
}
