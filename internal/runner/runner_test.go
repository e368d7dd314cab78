package runner

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"satcerts/internal/logging"
	"satcerts/internal/lookup"
	"satcerts/internal/portal"
	"satcerts/internal/services"
	"satcerts/internal/solver"
	"satcerts/internal/testsupport"
)

// scriptedSessions plays back canned portal verdicts keyed by RFC, one per
// submission. Submissions beyond the script repeat the last entry.
type scriptedSessions struct {
	script   map[string][]portal.Verdict
	onSubmit func(rfc string)
	opened   int
}

func (f *scriptedSessions) NewSession(context.Context) (lookup.PortalSession, error) {
	f.opened++
	return &scriptedSession{parent: f}, nil
}

type scriptedSession struct {
	parent  *scriptedSessions
	submits int
}

func (s *scriptedSession) Open(context.Context) error { return nil }

func (s *scriptedSession) FetchCaptcha(context.Context) ([]byte, error) {
	return []byte("captcha-image"), nil
}

func (s *scriptedSession) Submit(_ context.Context, rfc, _ string) (*portal.SubmitResult, error) {
	verdicts := s.parent.script[rfc]
	if len(verdicts) == 0 {
		verdicts = []portal.Verdict{portal.VerdictWrongCaptcha}
	}
	index := s.submits
	if index >= len(verdicts) {
		index = len(verdicts) - 1
	}
	s.submits++
	if s.parent.onSubmit != nil {
		defer s.parent.onSubmit(rfc)
	}

	result := &portal.SubmitResult{
		Verdict: verdicts[index],
		Page:    "<html><body>acuse " + rfc + "</body></html>",
	}
	if result.Verdict == portal.VerdictAccepted {
		result.Report = &portal.CertificateReport{
			RazonSocial: "EMPRESA DEMO " + rfc,
			Certificates: []portal.Certificate{{
				Serial:    "00001000000504465028",
				Status:    "Activo",
				Kind:      "FIEL",
				ValidFrom: "2023-01-17",
				ValidTo:   "2027-01-17",
			}},
		}
	}
	return result, nil
}

func (s *scriptedSession) Close() error { return nil }

// dyingSessions serves a limited number of sessions, then reports the
// browser process gone.
type dyingSessions struct {
	inner  lookup.SessionFactory
	allow  int
	opened int
}

func (d *dyingSessions) NewSession(ctx context.Context) (lookup.PortalSession, error) {
	if d.opened >= d.allow {
		return nil, services.Wrap(services.ErrBrowserLost, "portal", "new_tab", "browser process exited", nil)
	}
	d.opened++
	return d.inner.NewSession(ctx)
}

type fakeBrowser struct {
	mu     sync.Mutex
	dead   bool
	closed bool
}

func (b *fakeBrowser) NewTab(context.Context) (portal.Driver, error) {
	return nil, errors.New("fake browser does not open tabs")
}

func (b *fakeBrowser) Alive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.dead && !b.closed
}

func (b *fakeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *fakeBrowser) kill() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dead = true
}

type fakeSolver struct {
	solution string
}

func (f *fakeSolver) Solve(context.Context, []byte, solver.Prompt) (string, error) {
	return f.solution, nil
}

type recordingNotifier struct {
	started          int
	completed        int
	aborted          int
	completedFound   int
	completedMissing int
	completedFailed  int
	abortedCompleted int
	abortedTotal     int
	reason           string
}

func (n *recordingNotifier) NotifyRunStarted(context.Context, string, int) error {
	n.started++
	return nil
}

func (n *recordingNotifier) NotifyRunCompleted(_ context.Context, found, notFound, failed int, _ time.Duration) error {
	n.completed++
	n.completedFound = found
	n.completedMissing = notFound
	n.completedFailed = failed
	return nil
}

func (n *recordingNotifier) NotifyRunAborted(_ context.Context, completed, total int, reason string) error {
	n.aborted++
	n.abortedCompleted = completed
	n.abortedTotal = total
	n.reason = reason
	return nil
}

func (n *recordingNotifier) TestNotification(context.Context) error { return nil }

func testEnvironment(browser BrowserHandle, sessions lookup.SessionFactory, notifier *recordingNotifier) Environment {
	return Environment{
		StartBrowser: func(context.Context, *slog.Logger) (BrowserHandle, error) {
			return browser, nil
		},
		NewSessions: func(BrowserHandle, *slog.Logger) lookup.SessionFactory {
			return sessions
		},
		NewSolver: func() (solver.Solver, error) {
			return &fakeSolver{solution: "x7k2p"}, nil
		},
		Notifier: notifier,
		Logger:   logging.NewNop(),
	}
}

func TestRunCompletesBatch(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithIdentifiers("AAA010101AAA", "BBB010101BB2", "CCC010101CC3"))

	sessions := &scriptedSessions{script: map[string][]portal.Verdict{
		"AAA010101AAA": {portal.VerdictAccepted},
		"BBB010101BB2": {portal.VerdictWrongCaptcha, portal.VerdictAccepted},
		"CCC010101CC3": {portal.VerdictUnknownIdentifier},
	}}
	browser := &fakeBrowser{}
	notifier := &recordingNotifier{}

	summary, err := NewWithEnvironment(cfg, testEnvironment(browser, sessions, notifier)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Aborted {
		t.Fatalf("run aborted: %s", summary.AbortReason)
	}
	if !strings.HasPrefix(summary.RunID, "run_") {
		t.Errorf("RunID = %q, want run_ prefix", summary.RunID)
	}
	if summary.Total != 3 || summary.Skipped != 0 {
		t.Errorf("Total = %d, Skipped = %d, want 3 and 0", summary.Total, summary.Skipped)
	}
	if summary.Succeeded != 2 || summary.NotFound != 1 || summary.Exhausted != 0 || summary.Fatal != 0 {
		t.Errorf("unexpected tallies: %+v", summary)
	}
	if sessions.opened != 3 {
		t.Errorf("opened %d sessions, want one per identifier", sessions.opened)
	}

	results, err := os.ReadFile(summary.ResultsCSV)
	if err != nil {
		t.Fatalf("read resultados.csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(results)), "\n")
	if len(lines) != 4 {
		t.Fatalf("resultados.csv has %d lines, want header plus 3 rows:\n%s", len(lines), results)
	}
	if !strings.Contains(lines[1], "AAA010101AAA") || !strings.Contains(lines[1], "success") {
		t.Errorf("first result row = %q", lines[1])
	}
	if !strings.Contains(lines[2], "EMPRESA DEMO BBB010101BB2") {
		t.Errorf("second result row missing razon social: %q", lines[2])
	}
	if !strings.Contains(lines[3], "identifier_not_found") {
		t.Errorf("third result row = %q", lines[3])
	}

	certs, err := os.ReadFile(summary.CertificatesCSV)
	if err != nil {
		t.Fatalf("read certificados.csv: %v", err)
	}
	certLines := strings.Split(strings.TrimSpace(string(certs)), "\n")
	if len(certLines) != 3 {
		t.Fatalf("certificados.csv has %d lines, want header plus 2 rows:\n%s", len(certLines), certs)
	}
	if !strings.Contains(certLines[1], "00001000000504465028") {
		t.Errorf("certificate row missing serial: %q", certLines[1])
	}

	captchas, err := os.ReadDir(filepath.Join(summary.RunDir, "captchas"))
	if err != nil {
		t.Fatalf("read captchas dir: %v", err)
	}
	if len(captchas) != 4 {
		t.Fatalf("captchas dir has %d files, want 4", len(captchas))
	}
	wantCaptchas := []string{
		"a0001_id1_try1.png",
		"a0002_id2_try1.png",
		"a0003_id2_try2.png",
		"a0004_id3_try1.png",
	}
	for i, want := range wantCaptchas {
		if captchas[i].Name() != want {
			t.Errorf("captcha[%d] = %q, want %q", i, captchas[i].Name(), want)
		}
	}

	pages, err := os.ReadDir(filepath.Join(summary.RunDir, "paginas"))
	if err != nil {
		t.Fatalf("read paginas dir: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("paginas dir has %d files, want one per success", len(pages))
	}
	if pages[0].Name() != "id1_AAA010101AAA.html" || pages[1].Name() != "id2_BBB010101BB2.html" {
		t.Errorf("unexpected page files: %s, %s", pages[0].Name(), pages[1].Name())
	}

	ctx := context.Background()
	store := testsupport.MustOpenStore(t, filepath.Join(summary.RunDir, "run.db"))
	run, err := store.GetRun(ctx)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run == nil || run.Status != "completed" {
		t.Fatalf("run row = %+v, want status completed", run)
	}
	if run.Succeeded != 2 || run.NotFound != 1 {
		t.Errorf("run tallies = %d found, %d not found", run.Succeeded, run.NotFound)
	}
	if run.FinishedAt == nil {
		t.Error("run row has no finished_at")
	}

	rows, err := store.ListLookups(ctx)
	if err != nil {
		t.Fatalf("ListLookups: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("lookup rows = %d, want 3", len(rows))
	}
	if rows[0].Status != "success" || rows[1].Status != "success" || rows[2].Status != "identifier_not_found" {
		t.Errorf("lookup statuses = %s, %s, %s", rows[0].Status, rows[1].Status, rows[2].Status)
	}
	if rows[1].AttemptCount != 2 {
		t.Errorf("second lookup attempt count = %d, want 2", rows[1].AttemptCount)
	}
	if rows[0].RazonSocial != "EMPRESA DEMO AAA010101AAA" {
		t.Errorf("first lookup razon social = %q", rows[0].RazonSocial)
	}

	attempts, err := store.ListAttempts(ctx, rows[1].LookupID)
	if err != nil {
		t.Fatalf("ListAttempts: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("attempt rows = %d, want 2", len(attempts))
	}
	if attempts[0].Outcome != "rejected_wrong_captcha" || attempts[1].Outcome != "accepted" {
		t.Errorf("attempt outcomes = %s, %s", attempts[0].Outcome, attempts[1].Outcome)
	}

	stored, err := store.ListCertificates(ctx, rows[0].LookupID)
	if err != nil {
		t.Fatalf("ListCertificates: %v", err)
	}
	if len(stored) != 1 || stored[0].Serial != "00001000000504465028" {
		t.Errorf("certificate rows = %+v", stored)
	}

	if notifier.started != 1 || notifier.completed != 1 || notifier.aborted != 0 {
		t.Errorf("notifications: started %d, completed %d, aborted %d",
			notifier.started, notifier.completed, notifier.aborted)
	}
	if notifier.completedFound != 2 || notifier.completedMissing != 1 || notifier.completedFailed != 0 {
		t.Errorf("completion payload = %d found, %d not found, %d failed",
			notifier.completedFound, notifier.completedMissing, notifier.completedFailed)
	}

	if browser.Alive() {
		t.Error("browser still alive after run")
	}

	lock := flock.New(filepath.Join(cfg.Paths.OutputDir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		t.Fatalf("relock output dir: %v", err)
	}
	if !locked {
		t.Error("run lock still held after Run returned")
	}
	_ = lock.Unlock()
}

func TestRunRecordsExhaustedRetries(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithIdentifiers("DDD010101DD4"),
		testsupport.WithMaxAttempts(2))

	sessions := &scriptedSessions{script: map[string][]portal.Verdict{
		"DDD010101DD4": {portal.VerdictWrongCaptcha},
	}}
	notifier := &recordingNotifier{}

	summary, err := NewWithEnvironment(cfg, testEnvironment(&fakeBrowser{}, sessions, notifier)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Aborted {
		t.Fatalf("run aborted: %s", summary.AbortReason)
	}
	if summary.Exhausted != 1 || summary.Succeeded != 0 {
		t.Errorf("unexpected tallies: %+v", summary)
	}

	ctx := context.Background()
	store := testsupport.MustOpenStore(t, filepath.Join(summary.RunDir, "run.db"))
	run, err := store.GetRun(ctx)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != "completed" || run.Exhausted != 1 {
		t.Errorf("run row = %+v", run)
	}
	rows, err := store.ListLookups(ctx)
	if err != nil {
		t.Fatalf("ListLookups: %v", err)
	}
	if len(rows) != 1 || rows[0].Status != "exhausted_retries" || rows[0].AttemptCount != 2 {
		t.Errorf("lookup row = %+v", rows[0])
	}

	if notifier.completed != 1 || notifier.completedFailed != 1 {
		t.Errorf("completion payload: completed %d, failed %d", notifier.completed, notifier.completedFailed)
	}
}

func TestRunAbortsWhenBrowserLost(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithIdentifiers("AAA010101AAA", "BBB010101BB2", "CCC010101CC3"))

	inner := &scriptedSessions{script: map[string][]portal.Verdict{
		"AAA010101AAA": {portal.VerdictAccepted},
		"BBB010101BB2": {portal.VerdictAccepted},
		"CCC010101CC3": {portal.VerdictAccepted},
	}}
	notifier := &recordingNotifier{}
	env := testEnvironment(&fakeBrowser{}, &dyingSessions{inner: inner, allow: 1}, notifier)

	summary, err := NewWithEnvironment(cfg, env).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !summary.Aborted || summary.AbortReason != "browser terminated" {
		t.Fatalf("summary = %+v, want browser abort", summary)
	}
	if summary.Succeeded != 1 || summary.Fatal != 1 {
		t.Errorf("tallies = %d succeeded, %d fatal", summary.Succeeded, summary.Fatal)
	}

	// The two processed identifiers still reach the export.
	results, err := os.ReadFile(summary.ResultsCSV)
	if err != nil {
		t.Fatalf("read resultados.csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(results)), "\n")
	if len(lines) != 3 {
		t.Fatalf("resultados.csv has %d lines, want header plus 2 rows", len(lines))
	}

	ctx := context.Background()
	store := testsupport.MustOpenStore(t, filepath.Join(summary.RunDir, "run.db"))
	run, err := store.GetRun(ctx)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != "aborted" || run.Detail != "browser terminated" {
		t.Errorf("run row = %+v", run)
	}

	if notifier.aborted != 1 || notifier.abortedCompleted != 2 || notifier.abortedTotal != 3 {
		t.Errorf("abort payload: aborted %d, completed %d of %d",
			notifier.aborted, notifier.abortedCompleted, notifier.abortedTotal)
	}
	if notifier.reason != "browser terminated" {
		t.Errorf("abort reason = %q", notifier.reason)
	}
}

func TestRunStopsWhenBrowserDiesBetweenLookups(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithIdentifiers("AAA010101AAA", "BBB010101BB2", "CCC010101CC3"))

	browser := &fakeBrowser{}
	sessions := &scriptedSessions{
		script: map[string][]portal.Verdict{
			"AAA010101AAA": {portal.VerdictAccepted},
		},
		onSubmit: func(string) { browser.kill() },
	}
	notifier := &recordingNotifier{}

	summary, err := NewWithEnvironment(cfg, testEnvironment(browser, sessions, notifier)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !summary.Aborted || summary.AbortReason != "browser terminated" {
		t.Fatalf("summary = %+v, want browser abort", summary)
	}
	if summary.Succeeded != 1 || summary.Completed() != 1 {
		t.Errorf("tallies = %+v, want exactly the first lookup", summary)
	}
	if sessions.opened != 1 {
		t.Errorf("opened %d sessions, want 1", sessions.opened)
	}
}

func TestRunAbortsOnCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithIdentifiers("AAA010101AAA", "BBB010101BB2", "CCC010101CC3"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sessions := &scriptedSessions{
		script: map[string][]portal.Verdict{
			"AAA010101AAA": {portal.VerdictAccepted},
		},
		onSubmit: func(string) { cancel() },
	}
	notifier := &recordingNotifier{}

	summary, err := NewWithEnvironment(cfg, testEnvironment(&fakeBrowser{}, sessions, notifier)).Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !summary.Aborted || summary.AbortReason != "run cancelled" {
		t.Fatalf("summary = %+v, want cancellation abort", summary)
	}
	if summary.Succeeded != 1 {
		t.Errorf("succeeded = %d, want the lookup finished before cancel", summary.Succeeded)
	}

	// Persistence outlives the cancelled context.
	store := testsupport.MustOpenStore(t, filepath.Join(summary.RunDir, "run.db"))
	run, err := store.GetRun(context.Background())
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != "aborted" || run.FinishedAt == nil {
		t.Errorf("run row = %+v", run)
	}
	if notifier.aborted != 1 || notifier.reason != "run cancelled" {
		t.Errorf("abort notification: count %d, reason %q", notifier.aborted, notifier.reason)
	}
}

func TestRunRequiresExclusiveLock(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithIdentifiers("AAA010101AAA"))
	if err := os.MkdirAll(cfg.Paths.OutputDir, 0o755); err != nil {
		t.Fatalf("mkdir output dir: %v", err)
	}

	held := flock.New(filepath.Join(cfg.Paths.OutputDir, lockFileName))
	locked, err := held.TryLock()
	if err != nil {
		t.Fatalf("take lock: %v", err)
	}
	if !locked {
		t.Fatal("could not take lock in empty output dir")
	}
	defer func() { _ = held.Unlock() }()

	notifier := &recordingNotifier{}
	sessions := &scriptedSessions{}
	summary, err := NewWithEnvironment(cfg, testEnvironment(&fakeBrowser{}, sessions, notifier)).Run(context.Background())
	if err == nil {
		t.Fatal("Run succeeded with the lock held")
	}
	if !strings.Contains(err.Error(), "another run is already active") {
		t.Errorf("error = %v", err)
	}
	if summary != nil {
		t.Errorf("summary = %+v, want nil", summary)
	}
	if notifier.started != 0 {
		t.Errorf("start notification sent for a refused run")
	}
}

func TestRunReportsStartupErrors(t *testing.T) {
	t.Run("missing input file", func(t *testing.T) {
		cfg := testsupport.NewConfig(t)
		notifier := &recordingNotifier{}
		summary, err := NewWithEnvironment(cfg, testEnvironment(&fakeBrowser{}, &scriptedSessions{}, notifier)).Run(context.Background())
		if err == nil {
			t.Fatal("Run succeeded without an input file")
		}
		if summary != nil {
			t.Errorf("summary = %+v, want nil", summary)
		}
		if notifier.started != 0 {
			t.Error("start notification sent for a failed startup")
		}
	})

	t.Run("unknown prompt strategy", func(t *testing.T) {
		cfg := testsupport.NewConfig(t, testsupport.WithIdentifiers("AAA010101AAA"))
		cfg.Solver.PromptStrategy = "no-such-strategy"
		summary, err := NewWithEnvironment(cfg, testEnvironment(&fakeBrowser{}, &scriptedSessions{}, &recordingNotifier{})).Run(context.Background())
		if err == nil {
			t.Fatal("Run accepted an unknown prompt strategy")
		}
		if summary != nil {
			t.Errorf("summary = %+v, want nil", summary)
		}
		if _, statErr := os.Stat(cfg.Paths.OutputDir); !os.IsNotExist(statErr) {
			t.Errorf("output dir created before validation finished: %v", statErr)
		}
	})

	t.Run("missing solver credentials", func(t *testing.T) {
		cfg := testsupport.NewConfig(t, testsupport.WithIdentifiers("AAA010101AAA"))
		cfg.Solver.OpenAIKey = ""
		env := testEnvironment(&fakeBrowser{}, &scriptedSessions{}, &recordingNotifier{})
		env.NewSolver = nil
		summary, err := NewWithEnvironment(cfg, env).Run(context.Background())
		if err == nil {
			t.Fatal("Run accepted a solver without credentials")
		}
		if summary != nil {
			t.Errorf("summary = %+v, want nil", summary)
		}
	})
}

func TestRunAbortsWhenBrowserFailsToStart(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithIdentifiers("AAA010101AAA"))
	notifier := &recordingNotifier{}
	env := testEnvironment(nil, &scriptedSessions{}, notifier)
	env.StartBrowser = func(context.Context, *slog.Logger) (BrowserHandle, error) {
		return nil, errors.New("chrome crashed on launch")
	}

	summary, err := NewWithEnvironment(cfg, env).Run(context.Background())
	if err == nil {
		t.Fatal("Run succeeded without a browser")
	}
	if summary == nil || !summary.Aborted {
		t.Fatalf("summary = %+v, want aborted", summary)
	}

	store := testsupport.MustOpenStore(t, filepath.Join(summary.RunDir, "run.db"))
	run, dbErr := store.GetRun(context.Background())
	if dbErr != nil {
		t.Fatalf("GetRun: %v", dbErr)
	}
	if run.Status != "aborted" || !strings.Contains(run.Detail, "chrome crashed") {
		t.Errorf("run row = %+v", run)
	}
	if notifier.started != 1 || notifier.aborted != 1 || notifier.abortedCompleted != 0 {
		t.Errorf("notifications: started %d, aborted %d after %d lookups",
			notifier.started, notifier.aborted, notifier.abortedCompleted)
	}
}

func TestRunSkipsRowsWithoutRFC(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	input := "id,rfc\nA1,AAA010101AAA\nA2,\nA3,BBB010101BB2\n"
	if err := os.WriteFile(cfg.Paths.InputCSV, []byte(input), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	sessions := &scriptedSessions{script: map[string][]portal.Verdict{
		"AAA010101AAA": {portal.VerdictAccepted},
		"BBB010101BB2": {portal.VerdictAccepted},
	}}
	summary, err := NewWithEnvironment(cfg, testEnvironment(&fakeBrowser{}, sessions, &recordingNotifier{})).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Total != 2 || summary.Skipped != 1 || summary.Succeeded != 2 {
		t.Fatalf("summary = %+v, want 2 processed and 1 skipped", summary)
	}

	captchas, err := os.ReadDir(filepath.Join(summary.RunDir, "captchas"))
	if err != nil {
		t.Fatalf("read captchas dir: %v", err)
	}
	if len(captchas) != 2 {
		t.Fatalf("captchas dir has %d files, want 2", len(captchas))
	}
	if captchas[0].Name() != "a0001_idA1_try1.png" || captchas[1].Name() != "a0002_idA3_try1.png" {
		t.Errorf("captcha names = %s, %s", captchas[0].Name(), captchas[1].Name())
	}
}

func TestRunWritesRunLog(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithIdentifiers("AAA010101AAA"))
	cfg.Logging.Level = "error"
	cfg.Logging.Format = "json"

	sessions := &scriptedSessions{script: map[string][]portal.Verdict{
		"AAA010101AAA": {portal.VerdictAccepted},
	}}
	env := testEnvironment(&fakeBrowser{}, sessions, &recordingNotifier{})
	env.Logger = nil

	summary, err := NewWithEnvironment(cfg, env).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(summary.RunDir, "run.log")); err != nil {
		t.Errorf("run.log missing: %v", err)
	}
}
