package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"satcerts/internal/textutil"
)

// Provider names accepted by New.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

const (
	defaultTimeoutSeconds    = 60
	defaultMaxSolutionLength = 15
	maxCompletionTokens      = 50
	responseSnippetLimit     = 160
)

// FailureReason classifies why a solve attempt produced no usable candidate.
type FailureReason string

const (
	// ReasonRateLimited marks provider throttling (HTTP 429).
	ReasonRateLimited FailureReason = "rate_limited"
	// ReasonMalformedResponse marks responses that arrived but carried no
	// plausible CAPTCHA text: refusals, empty content, or overlong answers.
	ReasonMalformedResponse FailureReason = "malformed_response"
	// ReasonUpstreamError marks transport failures and non-429 error statuses.
	ReasonUpstreamError FailureReason = "upstream_error"
)

// Failure reports a classified solve failure.
type Failure struct {
	Reason FailureReason
	Err    error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return string(f.Reason)
	}
	return fmt.Sprintf("%s: %v", f.Reason, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// ReasonOf extracts the typed reason when err is (or wraps) a Failure.
func ReasonOf(err error) (FailureReason, bool) {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure.Reason, true
	}
	return "", false
}

// Solver produces a candidate solution for one CAPTCHA image.
type Solver interface {
	Solve(ctx context.Context, image []byte, prompt Prompt) (string, error)
}

// Config captures the provider settings a Solver needs.
type Config struct {
	Provider          string
	APIKey            string
	BaseURL           string
	Model             string
	TimeoutSeconds    int
	MaxSolutionLength int
}

// Option customizes solver construction.
type Option func(*options)

type options struct {
	httpClient *http.Client
}

// WithHTTPClient overrides the HTTP client used for provider calls.
func WithHTTPClient(client *http.Client) Option {
	return func(opts *options) {
		if client != nil {
			opts.httpClient = client
		}
	}
}

// New builds the Solver for the configured provider.
func New(cfg Config, opts ...Option) (Solver, error) {
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.APIKey == "" {
		return nil, errors.New("solver: api key required")
	}
	if cfg.Model == "" {
		return nil, errors.New("solver: model required")
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = defaultTimeoutSeconds
	}
	if cfg.MaxSolutionLength <= 0 {
		cfg.MaxSolutionLength = defaultMaxSolutionLength
	}

	settings := options{
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&settings)
		}
	}

	switch cfg.Provider {
	case ProviderOpenAI:
		return newOpenAIClient(cfg, settings.httpClient), nil
	case ProviderAnthropic:
		return newAnthropicClient(cfg, settings.httpClient), nil
	default:
		return nil, fmt.Errorf("solver: unknown provider %q", cfg.Provider)
	}
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter string
}

func (e *httpStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("solver request: http %d", e.StatusCode)
	}
	return fmt.Sprintf("solver request: http %d: %s", e.StatusCode, e.Body)
}

// postJSON sends payload to endpoint and returns the response body. Non-2xx
// statuses come back as *httpStatusError with a trimmed body snippet.
func postJSON(ctx context.Context, client *http.Client, endpoint string, header http.Header, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	for key, values := range header {
		for _, value := range values {
			request.Header.Set(key, value)
		}
	}

	response, err := client.Do(request)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = response.Body.Close()
	}()

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, &httpStatusError{
			StatusCode: response.StatusCode,
			Body:       snippet(raw),
			RetryAfter: response.Header.Get("Retry-After"),
		}
	}
	return raw, nil
}

func joinEndpoint(base string, segments ...string) (string, error) {
	endpoint, err := url.JoinPath(base, segments...)
	if err != nil {
		return "", fmt.Errorf("build endpoint: %w", err)
	}
	return endpoint, nil
}

// classifyCallError maps transport and status errors onto failure reasons.
func classifyCallError(provider string, err error) error {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		reason := ReasonUpstreamError
		detail := err
		if statusErr.StatusCode == http.StatusTooManyRequests {
			reason = ReasonRateLimited
			if statusErr.RetryAfter != "" {
				detail = fmt.Errorf("%w (retry-after %s)", err, statusErr.RetryAfter)
			}
		}
		return &Failure{Reason: reason, Err: fmt.Errorf("%s: %w", provider, detail)}
	}
	return &Failure{Reason: ReasonUpstreamError, Err: fmt.Errorf("%s: %w", provider, err)}
}

func malformed(provider, detail string) error {
	return &Failure{Reason: ReasonMalformedResponse, Err: fmt.Errorf("%s: %s", provider, detail)}
}

// refusalPhrases flag answers where the model declined instead of reading
// the image. Matching is case and accent insensitive.
var refusalPhrases = []string{
	"i cannot",
	"i can't",
	"unable to",
	"sorry",
	"cannot assist",
	"no puedo",
}

// acceptCandidate cleans the raw model answer and rejects anything that
// cannot be a CAPTCHA solution. Letter case is preserved; the portal
// distinguishes upper from lower.
func acceptCandidate(provider, raw string, maxLength int) (string, error) {
	candidate := firstLine(raw)
	candidate = strings.TrimSpace(candidate)
	candidate = strings.Trim(candidate, "\"'`")
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return "", malformed(provider, "empty candidate")
	}
	for _, phrase := range refusalPhrases {
		if textutil.ContainsFolded(candidate, phrase) {
			return "", malformed(provider, fmt.Sprintf("model refused: %s", snippet([]byte(candidate))))
		}
	}
	if len([]rune(candidate)) > maxLength {
		return "", malformed(provider, fmt.Sprintf("candidate too long (%d chars)", len([]rune(candidate))))
	}
	stripped := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '-', '_':
			return -1
		}
		return r
	}, candidate)
	if stripped == "" {
		return "", malformed(provider, "candidate has no characters")
	}
	return candidate, nil
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}

func snippet(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if len(trimmed) <= responseSnippetLimit {
		return trimmed
	}
	return trimmed[:responseSnippetLimit] + "..."
}
