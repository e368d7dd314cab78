package lookup

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"satcerts/internal/portal"
	"satcerts/internal/records"
	"satcerts/internal/services"
	"satcerts/internal/solver"
)

var testIdentifier = records.Identifier{RFC: "ABC680524P76", SequenceID: "7"}

type fetchStep struct {
	image []byte
	err   error
}

type submitStep struct {
	result *portal.SubmitResult
	err    error
}

type fakeSession struct {
	openErr     error
	fetchSteps  []fetchStep
	submitSteps []submitStep
	fetchCalls  int
	submitCalls int
	closeCalls  int
}

func (s *fakeSession) Open(context.Context) error {
	return s.openErr
}

func (s *fakeSession) FetchCaptcha(context.Context) ([]byte, error) {
	defer func() { s.fetchCalls++ }()
	if s.fetchCalls < len(s.fetchSteps) {
		step := s.fetchSteps[s.fetchCalls]
		if step.err != nil {
			return nil, step.err
		}
		if step.image != nil {
			return step.image, nil
		}
	}
	return []byte("captcha-png"), nil
}

func (s *fakeSession) Submit(_ context.Context, _, _ string) (*portal.SubmitResult, error) {
	defer func() { s.submitCalls++ }()
	if s.submitCalls < len(s.submitSteps) {
		step := s.submitSteps[s.submitCalls]
		return step.result, step.err
	}
	return accepted(), nil
}

func (s *fakeSession) Close() error {
	s.closeCalls++
	return nil
}

type fakeFactory struct {
	session *fakeSession
	err     error
	calls   int
}

func (f *fakeFactory) NewSession(context.Context) (PortalSession, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

type solveStep struct {
	solution string
	err      error
}

type fakeSolver struct {
	steps   []solveStep
	calls   int
	prompts []string
}

func (s *fakeSolver) Solve(_ context.Context, _ []byte, prompt solver.Prompt) (string, error) {
	s.prompts = append(s.prompts, prompt.Name)
	defer func() { s.calls++ }()
	if s.calls < len(s.steps) {
		step := s.steps[s.calls]
		if step.err != nil {
			return "", step.err
		}
		if step.solution != "" {
			return step.solution, nil
		}
	}
	return "aB3kP", nil
}

type fakeSink struct {
	captchas   []string
	pages      []string
	captchaErr error
}

func (s *fakeSink) SaveCaptcha(identifier records.Identifier, attempt int, _ []byte) (string, error) {
	if s.captchaErr != nil {
		return "", s.captchaErr
	}
	path := fmt.Sprintf("captchas/%s_try%d.png", identifier.RFC, attempt)
	s.captchas = append(s.captchas, path)
	return path, nil
}

func (s *fakeSink) SaveResultsPage(identifier records.Identifier, _ string) (string, error) {
	path := fmt.Sprintf("paginas/%s.html", identifier.RFC)
	s.pages = append(s.pages, path)
	return path, nil
}

func accepted() *portal.SubmitResult {
	return &portal.SubmitResult{
		Verdict: portal.VerdictAccepted,
		Page:    "<html>resultados</html>",
		Report: &portal.CertificateReport{
			RazonSocial:  "ACME SA DE CV",
			Certificates: []portal.Certificate{{Serial: "00001000000301234567", Status: "Activo"}},
		},
	}
}

func rejected() *portal.SubmitResult {
	return &portal.SubmitResult{Verdict: portal.VerdictWrongCaptcha, Page: "<html>error</html>"}
}

func unknownRFC() *portal.SubmitResult {
	return &portal.SubmitResult{Verdict: portal.VerdictUnknownIdentifier, Page: "<html>no existe</html>"}
}

func newTestMachine(t *testing.T, cfg MachineConfig) *Machine {
	t.Helper()
	machine, err := NewMachine(cfg)
	if err != nil {
		t.Fatalf("NewMachine returned error: %v", err)
	}
	return machine
}

// checkInvariants verifies the cross-scenario attempt rules: contiguous
// one-based numbering, budget respected, accepted only in final position,
// payload exactly on success.
func checkInvariants(t *testing.T, result *Result, maxAttempts int) {
	t.Helper()
	if len(result.Attempts) > maxAttempts {
		t.Errorf("recorded %d attempts, budget is %d", len(result.Attempts), maxAttempts)
	}
	for i, attempt := range result.Attempts {
		if attempt.Number != i+1 {
			t.Errorf("attempt at index %d numbered %d", i, attempt.Number)
		}
		if attempt.Outcome == OutcomeAccepted && i != len(result.Attempts)-1 {
			t.Error("accepted attempt is not the last one")
		}
	}
	if result.Succeeded() && result.Report == nil {
		t.Error("success without a certificate report")
	}
	if !result.Succeeded() && result.Report != nil {
		t.Error("certificate report on a non-success result")
	}
}

func TestRunFirstTrySuccess(t *testing.T) {
	session := &fakeSession{submitSteps: []submitStep{{result: accepted()}}}
	sink := &fakeSink{}
	machine := newTestMachine(t, MachineConfig{
		Sessions:  &fakeFactory{session: session},
		Solver:    &fakeSolver{},
		Artifacts: sink,
	})

	result, err := machine.Run(context.Background(), testIdentifier)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("status = %s", result.Status)
	}
	if len(result.Attempts) != 1 {
		t.Fatalf("attempts = %d, want 1", len(result.Attempts))
	}
	if result.Attempts[0].Outcome != OutcomeAccepted {
		t.Errorf("outcome = %s", result.Attempts[0].Outcome)
	}
	if result.Attempts[0].Solution != "aB3kP" {
		t.Errorf("solution = %q", result.Attempts[0].Solution)
	}
	if result.Report == nil || result.Report.RazonSocial != "ACME SA DE CV" {
		t.Errorf("report = %+v", result.Report)
	}
	if result.PagePath == "" || len(sink.pages) != 1 {
		t.Error("results page was not saved")
	}
	if len(sink.captchas) != 1 {
		t.Errorf("saved captchas = %v, want 1", sink.captchas)
	}
	if session.closeCalls != 1 {
		t.Errorf("closeCalls = %d, want 1", session.closeCalls)
	}
	checkInvariants(t, result, machine.MaxAttempts())
}

func TestRunRetriesWrongCaptcha(t *testing.T) {
	session := &fakeSession{submitSteps: []submitStep{
		{result: rejected()},
		{result: rejected()},
		{result: accepted()},
	}}
	machine := newTestMachine(t, MachineConfig{
		Sessions: &fakeFactory{session: session},
		Solver:   &fakeSolver{},
	})

	result, err := machine.Run(context.Background(), testIdentifier)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("status = %s", result.Status)
	}
	if len(result.Attempts) != 3 {
		t.Fatalf("attempts = %d, want 3", len(result.Attempts))
	}
	wantOutcomes := []Outcome{OutcomeRejectedWrongCaptcha, OutcomeRejectedWrongCaptcha, OutcomeAccepted}
	for i, want := range wantOutcomes {
		if result.Attempts[i].Outcome != want {
			t.Errorf("attempt %d outcome = %s, want %s", i+1, result.Attempts[i].Outcome, want)
		}
	}
	if session.closeCalls != 1 {
		t.Errorf("closeCalls = %d, want 1", session.closeCalls)
	}
	checkInvariants(t, result, machine.MaxAttempts())
}

func TestRunExhaustsRetries(t *testing.T) {
	session := &fakeSession{submitSteps: []submitStep{
		{result: rejected()}, {result: rejected()}, {result: rejected()},
	}}
	machine := newTestMachine(t, MachineConfig{
		Sessions:    &fakeFactory{session: session},
		Solver:      &fakeSolver{},
		MaxAttempts: 3,
	})

	result, err := machine.Run(context.Background(), testIdentifier)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Status != StatusExhaustedRetries {
		t.Fatalf("status = %s", result.Status)
	}
	if len(result.Attempts) != 3 {
		t.Fatalf("attempts = %d, want 3", len(result.Attempts))
	}
	if session.closeCalls != 1 {
		t.Errorf("closeCalls = %d, want 1", session.closeCalls)
	}
	checkInvariants(t, result, 3)
}

func TestRunUnknownIdentifierStopsImmediately(t *testing.T) {
	session := &fakeSession{submitSteps: []submitStep{{result: unknownRFC()}}}
	machine := newTestMachine(t, MachineConfig{
		Sessions: &fakeFactory{session: session},
		Solver:   &fakeSolver{},
	})

	result, err := machine.Run(context.Background(), testIdentifier)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Status != StatusIdentifierNotFound {
		t.Fatalf("status = %s", result.Status)
	}
	if len(result.Attempts) != 1 {
		t.Fatalf("attempts = %d, want exactly 1", len(result.Attempts))
	}
	if result.Attempts[0].Outcome != OutcomeUnknownIdentifier {
		t.Errorf("outcome = %s", result.Attempts[0].Outcome)
	}
	if session.closeCalls != 1 {
		t.Errorf("closeCalls = %d, want 1", session.closeCalls)
	}
	checkInvariants(t, result, machine.MaxAttempts())
}

func TestRunNavigationFailureIsFatalWithoutAttempts(t *testing.T) {
	session := &fakeSession{openErr: services.Wrap(services.ErrNavigation, "portal", "open", "form did not render", nil)}
	machine := newTestMachine(t, MachineConfig{
		Sessions: &fakeFactory{session: session},
		Solver:   &fakeSolver{},
	})

	result, err := machine.Run(context.Background(), testIdentifier)
	if err != nil {
		t.Fatalf("navigation failure must not abort the batch, got %v", err)
	}
	if result.Status != StatusFatalError {
		t.Fatalf("status = %s", result.Status)
	}
	if len(result.Attempts) != 0 {
		t.Fatalf("attempts = %d, want 0", len(result.Attempts))
	}
	if result.Detail == "" {
		t.Error("fatal result must carry a detail")
	}
	if session.closeCalls != 1 {
		t.Errorf("closeCalls = %d, want 1", session.closeCalls)
	}
	checkInvariants(t, result, machine.MaxAttempts())
}

func TestRunSolverFailuresConsumeAttempts(t *testing.T) {
	session := &fakeSession{}
	rateLimited := &solver.Failure{Reason: solver.ReasonRateLimited, Err: errors.New("http 429")}
	machine := newTestMachine(t, MachineConfig{
		Sessions:    &fakeFactory{session: session},
		Solver:      &fakeSolver{steps: []solveStep{{err: rateLimited}, {err: rateLimited}}},
		MaxAttempts: 2,
	})

	result, err := machine.Run(context.Background(), testIdentifier)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Status != StatusExhaustedRetries {
		t.Fatalf("status = %s", result.Status)
	}
	for i, attempt := range result.Attempts {
		if attempt.Outcome != OutcomeSolverFailed {
			t.Errorf("attempt %d outcome = %s", i+1, attempt.Outcome)
		}
		if attempt.Detail == "" {
			t.Errorf("attempt %d has no failure detail", i+1)
		}
	}
	if session.submitCalls != 0 {
		t.Errorf("submitCalls = %d, solver failures must not submit", session.submitCalls)
	}
	checkInvariants(t, result, 2)
}

func TestRunFetchFailureContinues(t *testing.T) {
	session := &fakeSession{
		fetchSteps:  []fetchStep{{err: services.Wrap(services.ErrTransport, "portal", "fetch_captcha", "timeout", nil)}},
		submitSteps: []submitStep{{result: accepted()}},
	}
	machine := newTestMachine(t, MachineConfig{
		Sessions: &fakeFactory{session: session},
		Solver:   &fakeSolver{},
	})

	result, err := machine.Run(context.Background(), testIdentifier)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("status = %s", result.Status)
	}
	if len(result.Attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(result.Attempts))
	}
	if result.Attempts[0].Outcome != OutcomeTransportError {
		t.Errorf("first outcome = %s, want transport_error", result.Attempts[0].Outcome)
	}
	checkInvariants(t, result, machine.MaxAttempts())
}

func TestRunSubmitTransportFailureIsFatal(t *testing.T) {
	session := &fakeSession{submitSteps: []submitStep{
		{err: services.Wrap(services.ErrTransport, "portal", "submit", "no recognizable response", nil)},
	}}
	machine := newTestMachine(t, MachineConfig{
		Sessions: &fakeFactory{session: session},
		Solver:   &fakeSolver{},
	})

	result, err := machine.Run(context.Background(), testIdentifier)
	if err != nil {
		t.Fatalf("submit transport failure must not abort the batch, got %v", err)
	}
	if result.Status != StatusFatalError {
		t.Fatalf("status = %s", result.Status)
	}
	if len(result.Attempts) != 1 {
		t.Fatalf("attempts = %d, want 1", len(result.Attempts))
	}
	if result.Attempts[0].Outcome != OutcomeTransportError {
		t.Errorf("outcome = %s", result.Attempts[0].Outcome)
	}
	if session.closeCalls != 1 {
		t.Errorf("closeCalls = %d, want 1", session.closeCalls)
	}
	checkInvariants(t, result, machine.MaxAttempts())
}

func TestRunBrowserLossAbortsBatch(t *testing.T) {
	factory := &fakeFactory{err: services.Wrap(services.ErrBrowserLost, "portal", "new_tab", "browser process is gone", nil)}
	machine := newTestMachine(t, MachineConfig{
		Sessions: factory,
		Solver:   &fakeSolver{},
	})

	result, err := machine.Run(context.Background(), testIdentifier)
	if !errors.Is(err, services.ErrBrowserLost) {
		t.Fatalf("err = %v, want ErrBrowserLost", err)
	}
	if result.Status != StatusFatalError {
		t.Fatalf("status = %s", result.Status)
	}
	if len(result.Attempts) != 0 {
		t.Fatalf("attempts = %d, want 0", len(result.Attempts))
	}
}

func TestRunCancellationBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	session := &fakeSession{submitSteps: []submitStep{{result: rejected()}}}
	machine := newTestMachine(t, MachineConfig{
		Sessions: &fakeFactory{session: session},
		Solver:   &fakeSolver{},
		Observer: func(records.Identifier, Attempt) { cancel() },
	})

	result, err := machine.Run(ctx, testIdentifier)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if result.Status != StatusFatalError {
		t.Fatalf("status = %s", result.Status)
	}
	if len(result.Attempts) != 1 {
		t.Fatalf("attempts = %d, want the finished attempt only", len(result.Attempts))
	}
	if session.closeCalls != 1 {
		t.Errorf("closeCalls = %d, want 1", session.closeCalls)
	}
}

func TestRunRotatesPromptStrategies(t *testing.T) {
	session := &fakeSession{submitSteps: []submitStep{
		{result: rejected()}, {result: rejected()}, {result: rejected()}, {result: rejected()},
	}}
	solverFake := &fakeSolver{}
	machine := newTestMachine(t, MachineConfig{
		Sessions:    &fakeFactory{session: session},
		Solver:      solverFake,
		MaxAttempts: 4,
	})

	result, err := machine.Run(context.Background(), testIdentifier)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Status != StatusExhaustedRetries {
		t.Fatalf("status = %s", result.Status)
	}
	want := []string{
		solver.StrategyAncientScribe,
		solver.StrategyCalligraphyMaster,
		solver.StrategyOracleVision,
		solver.StrategyAncientScribe,
	}
	if len(solverFake.prompts) != len(want) {
		t.Fatalf("prompts = %v", solverFake.prompts)
	}
	for i, name := range want {
		if solverFake.prompts[i] != name {
			t.Errorf("attempt %d strategy = %s, want %s", i+1, solverFake.prompts[i], name)
		}
		if result.Attempts[i].Strategy != name {
			t.Errorf("attempt %d recorded strategy = %s, want %s", i+1, result.Attempts[i].Strategy, name)
		}
	}
}

func TestRunObserverSeesEveryAttempt(t *testing.T) {
	session := &fakeSession{submitSteps: []submitStep{{result: rejected()}, {result: accepted()}}}
	var seen []int
	machine := newTestMachine(t, MachineConfig{
		Sessions: &fakeFactory{session: session},
		Solver:   &fakeSolver{},
		Observer: func(identifier records.Identifier, attempt Attempt) {
			if identifier.RFC != testIdentifier.RFC {
				t.Errorf("observer identifier = %s", identifier.RFC)
			}
			seen = append(seen, attempt.Number)
		},
	})

	if _, err := machine.Run(context.Background(), testIdentifier); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Fatalf("observer saw %v, want [1 2]", seen)
	}
}

func TestRunSinkFailureDoesNotBreakLookup(t *testing.T) {
	session := &fakeSession{submitSteps: []submitStep{{result: accepted()}}}
	machine := newTestMachine(t, MachineConfig{
		Sessions:  &fakeFactory{session: session},
		Solver:    &fakeSolver{},
		Artifacts: &fakeSink{captchaErr: errors.New("disk full")},
	})

	result, err := machine.Run(context.Background(), testIdentifier)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("status = %s", result.Status)
	}
	if result.Attempts[0].ImagePath != "" {
		t.Error("failed save must leave the image path empty")
	}
}

func TestNewMachineValidation(t *testing.T) {
	if _, err := NewMachine(MachineConfig{Solver: &fakeSolver{}}); err == nil {
		t.Fatal("expected error without session factory")
	}
	if _, err := NewMachine(MachineConfig{Sessions: &fakeFactory{session: &fakeSession{}}}); err == nil {
		t.Fatal("expected error without solver")
	}
	machine := newTestMachine(t, MachineConfig{
		Sessions: &fakeFactory{session: &fakeSession{}},
		Solver:   &fakeSolver{},
	})
	if machine.MaxAttempts() != defaultMaxAttempts {
		t.Fatalf("MaxAttempts = %d, want default %d", machine.MaxAttempts(), defaultMaxAttempts)
	}
}
