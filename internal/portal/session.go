package portal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"satcerts/internal/config"
	"satcerts/internal/logging"
	"satcerts/internal/services"
)

const (
	selectorPollInterval = 250 * time.Millisecond
	responsePollInterval = 300 * time.Millisecond

	defaultNavigationTimeout = 30
	defaultElementTimeout    = 10
	defaultResponseTimeout   = 10
)

// SubmitResult is the portal's answer to one (rfc, solution) submission.
// Page always carries the response markup; Report is set only when the
// verdict is VerdictAccepted.
type SubmitResult struct {
	Verdict Verdict
	Page    string
	Report  *CertificateReport
}

// Session drives one identifier through the recovery form on a dedicated
// tab. It is not safe for concurrent use; the lookup state machine calls it
// strictly in sequence.
type Session struct {
	driver  Driver
	portal  config.Portal
	logger  *slog.Logger
	fetches int
	closed  bool
}

// NewSession wraps driver for one identifier's lookup.
func NewSession(driver Driver, portalCfg config.Portal, logger *slog.Logger) *Session {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Session{
		driver: driver,
		portal: portalCfg,
		logger: logging.NewComponentLogger(logger, "portal"),
	}
}

// Open navigates to the recovery form and waits for the RFC field.
func (s *Session) Open(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout(s.portal.NavigationTimeout, defaultNavigationTimeout))
	defer cancel()

	if err := s.driver.Navigate(ctx, s.portal.URL); err != nil {
		return services.Wrap(services.ErrNavigation, "portal", "open", "failed to load recovery form", err)
	}
	if _, err := s.waitAny(ctx, s.portal.RFCInputSelectors); err != nil {
		return services.Wrap(services.ErrNavigation, "portal", "open", "recovery form did not render", err)
	}
	return nil
}

// FetchCaptcha captures the current CAPTCHA challenge as PNG bytes. After
// the first fetch the form is restored first, with the portal's back
// control when present and a reload otherwise, because a submitted
// challenge cannot be answered twice.
func (s *Session) FetchCaptcha(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout(s.portal.NavigationTimeout, defaultNavigationTimeout))
	defer cancel()

	if s.fetches > 0 {
		if err := s.restoreForm(ctx); err != nil {
			return nil, services.Wrap(services.ErrTransport, "portal", "fetch_captcha", "failed to restore form", err)
		}
	}

	selector, err := s.waitAny(ctx, s.portal.CaptchaImageSelectors)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "portal", "fetch_captcha", "captcha image not found", err)
	}
	image, err := s.driver.ElementScreenshot(ctx, selector)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "portal", "fetch_captcha", "failed to capture captcha image", err)
	}
	if len(image) == 0 {
		return nil, services.Wrap(services.ErrTransport, "portal", "fetch_captcha", "captcha image is empty", nil)
	}

	s.fetches++
	return image, nil
}

// Submit types the identifier and solution into the form, sends it, and
// classifies the portal's response.
func (s *Session) Submit(ctx context.Context, rfc, solution string) (*SubmitResult, error) {
	if err := s.fillAndSend(ctx, rfc, solution); err != nil {
		return nil, err
	}

	pollCtx, cancel := context.WithTimeout(ctx, s.timeout(s.portal.ResponseTimeout, defaultResponseTimeout))
	defer cancel()

	ticker := time.NewTicker(responsePollInterval)
	defer ticker.Stop()
	for {
		page, err := s.driver.HTML(pollCtx)
		if err == nil {
			if verdict := Classify(page, s.portal.Markers); verdict != VerdictNoSignal {
				return s.buildResult(verdict, page, rfc), nil
			}
		}
		select {
		case <-pollCtx.Done():
			return nil, services.Wrap(services.ErrTransport, "portal", "submit", "no recognizable response from portal", pollCtx.Err())
		case <-ticker.C:
		}
	}
}

// Close releases the tab. Subsequent calls are no-ops.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.driver.Close()
}

func (s *Session) fillAndSend(ctx context.Context, rfc, solution string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout(s.portal.ElementTimeout, defaultElementTimeout))
	defer cancel()

	rfcSelector, err := s.waitAny(ctx, s.portal.RFCInputSelectors)
	if err != nil {
		return services.Wrap(services.ErrTransport, "portal", "submit", "rfc field not found", err)
	}
	captchaSelector, err := s.waitAny(ctx, s.portal.CaptchaInputSelectors)
	if err != nil {
		return services.Wrap(services.ErrTransport, "portal", "submit", "captcha field not found", err)
	}
	buttonSelector, err := s.waitAny(ctx, s.portal.SubmitButtonSelectors)
	if err != nil {
		return services.Wrap(services.ErrTransport, "portal", "submit", "submit button not found", err)
	}

	if err := s.fill(ctx, rfcSelector, rfc); err != nil {
		return services.Wrap(services.ErrTransport, "portal", "submit", "failed to enter rfc", err)
	}
	if err := s.fill(ctx, captchaSelector, solution); err != nil {
		return services.Wrap(services.ErrTransport, "portal", "submit", "failed to enter captcha solution", err)
	}
	if err := s.driver.Click(ctx, buttonSelector); err != nil {
		return services.Wrap(services.ErrTransport, "portal", "submit", "failed to send form", err)
	}
	return nil
}

func (s *Session) fill(ctx context.Context, selector, text string) error {
	if err := s.driver.Clear(ctx, selector); err != nil {
		return err
	}
	return s.driver.SendKeys(ctx, selector, text)
}

func (s *Session) buildResult(verdict Verdict, page, rfc string) *SubmitResult {
	result := &SubmitResult{Verdict: verdict, Page: page}
	if verdict != VerdictAccepted {
		return result
	}
	report, err := ParseCertificates(page, rfc)
	if err != nil {
		s.logger.Warn("results page accepted but unparseable", logging.Error(err))
		report = &CertificateReport{}
	}
	result.Report = report
	return result
}

// restoreForm brings the form back after a submission, preferring the
// portal's own back control over a reload.
func (s *Session) restoreForm(ctx context.Context) error {
	if selector, ok := s.firstExisting(ctx, s.portal.BackControlSelectors); ok {
		if err := s.driver.Click(ctx, selector); err != nil {
			return fmt.Errorf("click back control: %w", err)
		}
	} else if err := s.driver.Reload(ctx); err != nil {
		return fmt.Errorf("reload form: %w", err)
	}
	if _, err := s.waitAny(ctx, s.portal.RFCInputSelectors); err != nil {
		return fmt.Errorf("form did not come back: %w", err)
	}
	return nil
}

// waitAny polls the selector fallback list until one matches or ctx
// expires. Driver errors during page transitions count as not-found; the
// last one is attached to the timeout error.
func (s *Session) waitAny(ctx context.Context, selectors []string) (string, error) {
	ticker := time.NewTicker(selectorPollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		for _, selector := range selectors {
			ok, err := s.driver.Exists(ctx, selector)
			if err != nil {
				lastErr = err
				continue
			}
			if ok {
				return selector, nil
			}
		}
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return "", fmt.Errorf("no selector matched (last error: %v): %w", lastErr, ctx.Err())
			}
			return "", fmt.Errorf("no selector matched: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// firstExisting checks the list once without waiting.
func (s *Session) firstExisting(ctx context.Context, selectors []string) (string, bool) {
	for _, selector := range selectors {
		if ok, err := s.driver.Exists(ctx, selector); err == nil && ok {
			return selector, true
		}
	}
	return "", false
}

func (s *Session) timeout(seconds, fallback int) time.Duration {
	if seconds <= 0 {
		seconds = fallback
	}
	return time.Duration(seconds) * time.Second
}
