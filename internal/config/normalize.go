package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePortal()
	if err := c.normalizeBrowser(); err != nil {
		return err
	}
	if err := c.normalizeSolver(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.InputCSV, err = expandPath(c.Paths.InputCSV); err != nil {
		return fmt.Errorf("paths.input_csv: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePortal() {
	c.Portal.URL = strings.TrimSpace(c.Portal.URL)
	if c.Portal.URL == "" {
		c.Portal.URL = defaultPortalURL
	}
	c.Portal.RFCInputSelectors = trimList(c.Portal.RFCInputSelectors)
	c.Portal.CaptchaImageSelectors = trimList(c.Portal.CaptchaImageSelectors)
	c.Portal.CaptchaInputSelectors = trimList(c.Portal.CaptchaInputSelectors)
	c.Portal.SubmitButtonSelectors = trimList(c.Portal.SubmitButtonSelectors)
	c.Portal.BackControlSelectors = trimList(c.Portal.BackControlSelectors)
	c.Portal.Markers.SuccessSelector = strings.TrimSpace(c.Portal.Markers.SuccessSelector)
	c.Portal.Markers.WrongCaptcha = trimList(c.Portal.Markers.WrongCaptcha)
	c.Portal.Markers.UnknownIdentifier = trimList(c.Portal.Markers.UnknownIdentifier)
}

func (c *Config) normalizeBrowser() error {
	c.Browser.Binary = strings.TrimSpace(c.Browser.Binary)
	if c.Browser.Binary != "" && strings.ContainsAny(c.Browser.Binary, "/~") {
		expanded, err := expandPath(c.Browser.Binary)
		if err != nil {
			return fmt.Errorf("browser.binary: %w", err)
		}
		c.Browser.Binary = expanded
	}
	c.Browser.UserAgent = strings.TrimSpace(c.Browser.UserAgent)
	return nil
}

func (c *Config) normalizeSolver() error {
	c.Solver.Provider = strings.ToLower(strings.TrimSpace(c.Solver.Provider))
	c.Solver.OpenAIBaseURL = strings.TrimRight(strings.TrimSpace(c.Solver.OpenAIBaseURL), "/")
	c.Solver.AnthropicBaseURL = strings.TrimRight(strings.TrimSpace(c.Solver.AnthropicBaseURL), "/")

	if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
		c.Solver.OpenAIKey = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("ANTHROPIC_API_KEY"); ok {
		c.Solver.AnthropicKey = strings.TrimSpace(value)
	}

	// The provider is settled here so every later consumer sees one answer.
	if c.Solver.Provider == "" {
		switch {
		case c.Solver.OpenAIKey != "" && c.Solver.AnthropicKey == "":
			c.Solver.Provider = ProviderOpenAI
		case c.Solver.AnthropicKey != "" && c.Solver.OpenAIKey == "":
			c.Solver.Provider = ProviderAnthropic
		}
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func trimList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
