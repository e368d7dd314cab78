package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Providers accepted for the CAPTCHA solver.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Paths contains file and directory configuration.
type Paths struct {
	InputCSV  string `toml:"input_csv"`
	OutputDir string `toml:"output_dir"`
}

// Portal contains the form location, element selectors, and response markers.
// Selector lists are tried in order; the first match wins. The portal's markup
// is not stable, so none of these are hardcoded elsewhere.
type Portal struct {
	URL                   string   `toml:"url"`
	NavigationTimeout     int      `toml:"navigation_timeout_seconds"`
	ElementTimeout        int      `toml:"element_timeout_seconds"`
	ResponseTimeout       int      `toml:"response_timeout_seconds"`
	RFCInputSelectors     []string `toml:"rfc_input_selectors"`
	CaptchaImageSelectors []string `toml:"captcha_image_selectors"`
	CaptchaInputSelectors []string `toml:"captcha_input_selectors"`
	SubmitButtonSelectors []string `toml:"submit_button_selectors"`
	BackControlSelectors  []string `toml:"back_control_selectors"`
	Markers               Markers  `toml:"markers"`
}

// Markers classify the portal's response page. The success marker is a CSS
// selector; the phrase lists are matched case- and accent-insensitively
// against the page text.
type Markers struct {
	SuccessSelector   string   `toml:"success_selector"`
	WrongCaptcha      []string `toml:"wrong_captcha"`
	UnknownIdentifier []string `toml:"unknown_identifier"`
}

// Browser contains Chrome/Chromium launch settings.
type Browser struct {
	Binary       string `toml:"binary"`
	Headless     bool   `toml:"headless"`
	WindowWidth  int    `toml:"window_width"`
	WindowHeight int    `toml:"window_height"`
	UserAgent    string `toml:"user_agent"`
}

// Solver contains vision-model settings. Credentials come exclusively from
// the environment and are filled in during normalization.
type Solver struct {
	Provider          string `toml:"provider"`
	OpenAIBaseURL     string `toml:"openai_base_url"`
	OpenAIModel       string `toml:"openai_model"`
	AnthropicBaseURL  string `toml:"anthropic_base_url"`
	AnthropicModel    string `toml:"anthropic_model"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	MaxSolutionLength int    `toml:"max_solution_length"`
	PromptStrategy    string `toml:"prompt_strategy"`

	OpenAIKey    string `toml:"-"`
	AnthropicKey string `toml:"-"`
}

// Lookup contains the retry policy and batch pacing.
type Lookup struct {
	MaxAttempts            int `toml:"max_attempts"`
	IdentifierDelaySeconds int `toml:"identifier_delay_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for satcerts.
//
// Configuration sections by subsystem:
//   - Paths: input CSV and output run directory
//   - Portal: form URL, selectors, and response markers
//   - Browser: Chrome/Chromium launch settings
//   - Solver: vision-model provider, models, and limits
//   - Lookup: CAPTCHA retry policy and pacing
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Portal        Portal        `toml:"portal"`
	Browser       Browser       `toml:"browser"`
	Solver        Solver        `toml:"solver"`
	Lookup        Lookup        `toml:"lookup"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/satcerts/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded, credentials resolved from the
// environment, and the solver provider settled.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = os.Getenv("SATCERTS_CONFIG")
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("satcerts.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output root so a run can open its folder.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.OutputDir, err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// SolverSettings contains the resolved connection settings for the active
// provider.
type SolverSettings struct {
	Provider          string
	APIKey            string
	BaseURL           string
	Model             string
	TimeoutSeconds    int
	MaxSolutionLength int
	PromptStrategy    string
}

// SolverSettings returns connection settings for the provider selected during
// normalization. Call only after a successful Load.
func (c *Config) SolverSettings() SolverSettings {
	settings := SolverSettings{
		Provider:          c.Solver.Provider,
		TimeoutSeconds:    c.Solver.TimeoutSeconds,
		MaxSolutionLength: c.Solver.MaxSolutionLength,
		PromptStrategy:    strings.TrimSpace(c.Solver.PromptStrategy),
	}
	switch c.Solver.Provider {
	case ProviderAnthropic:
		settings.APIKey = c.Solver.AnthropicKey
		settings.BaseURL = c.Solver.AnthropicBaseURL
		settings.Model = c.Solver.AnthropicModel
	default:
		settings.APIKey = c.Solver.OpenAIKey
		settings.BaseURL = c.Solver.OpenAIBaseURL
		settings.Model = c.Solver.OpenAIModel
	}
	return settings
}
