package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePortal(); err != nil {
		return err
	}
	if err := c.validateBrowser(); err != nil {
		return err
	}
	if err := c.validateSolver(); err != nil {
		return err
	}
	if err := c.validateLookup(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.InputCSV) == "" {
		return errors.New("paths.input_csv must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	return nil
}

func (c *Config) validatePortal() error {
	parsed, err := url.Parse(c.Portal.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("portal.url must be an absolute http(s) URL, got %q", c.Portal.URL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("portal.url must use http or https, got %q", parsed.Scheme)
	}
	if err := ensurePositiveMap(map[string]int{
		"portal.navigation_timeout_seconds": c.Portal.NavigationTimeout,
		"portal.element_timeout_seconds":    c.Portal.ElementTimeout,
		"portal.response_timeout_seconds":   c.Portal.ResponseTimeout,
	}); err != nil {
		return err
	}
	for name, list := range map[string][]string{
		"portal.rfc_input_selectors":     c.Portal.RFCInputSelectors,
		"portal.captcha_image_selectors": c.Portal.CaptchaImageSelectors,
		"portal.captcha_input_selectors": c.Portal.CaptchaInputSelectors,
		"portal.submit_button_selectors": c.Portal.SubmitButtonSelectors,
	} {
		if len(list) == 0 {
			return fmt.Errorf("%s must list at least one selector", name)
		}
	}
	if c.Portal.Markers.SuccessSelector == "" {
		return errors.New("portal.markers.success_selector must be set")
	}
	if len(c.Portal.Markers.WrongCaptcha) == 0 {
		return errors.New("portal.markers.wrong_captcha must list at least one phrase")
	}
	if len(c.Portal.Markers.UnknownIdentifier) == 0 {
		return errors.New("portal.markers.unknown_identifier must list at least one phrase")
	}
	return nil
}

func (c *Config) validateBrowser() error {
	if c.Browser.WindowWidth <= 0 || c.Browser.WindowHeight <= 0 {
		return errors.New("browser.window_width and browser.window_height must be positive")
	}
	return nil
}

func (c *Config) validateSolver() error {
	switch c.Solver.Provider {
	case ProviderOpenAI:
		if c.Solver.OpenAIKey == "" {
			return errors.New("solver.provider is openai but OPENAI_API_KEY is not set")
		}
	case ProviderAnthropic:
		if c.Solver.AnthropicKey == "" {
			return errors.New("solver.provider is anthropic but ANTHROPIC_API_KEY is not set")
		}
	case "":
		if c.Solver.OpenAIKey == "" && c.Solver.AnthropicKey == "" {
			return errors.New("no solver credential found. Set exactly one of OPENAI_API_KEY or ANTHROPIC_API_KEY")
		}
		// Both keys present and no explicit choice.
		return errors.New("both OPENAI_API_KEY and ANTHROPIC_API_KEY are set. Pick one with solver.provider")
	default:
		return fmt.Errorf("solver.provider must be %q or %q, got %q", ProviderOpenAI, ProviderAnthropic, c.Solver.Provider)
	}
	if err := ensurePositiveMap(map[string]int{
		"solver.timeout_seconds":     c.Solver.TimeoutSeconds,
		"solver.max_solution_length": c.Solver.MaxSolutionLength,
	}); err != nil {
		return err
	}
	if strings.TrimSpace(c.Solver.OpenAIModel) == "" && c.Solver.Provider == ProviderOpenAI {
		return errors.New("solver.openai_model must be set")
	}
	if strings.TrimSpace(c.Solver.AnthropicModel) == "" && c.Solver.Provider == ProviderAnthropic {
		return errors.New("solver.anthropic_model must be set")
	}
	return nil
}

func (c *Config) validateLookup() error {
	if c.Lookup.MaxAttempts <= 0 {
		return errors.New("lookup.max_attempts must be positive")
	}
	if c.Lookup.IdentifierDelaySeconds < 0 {
		return errors.New("lookup.identifier_delay_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if strings.TrimSpace(c.Notifications.NtfyTopic) != "" && c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format must be auto, console, or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for name, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
