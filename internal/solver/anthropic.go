package solver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicAPIVersion     = "2023-06-01"
)

type anthropicClient struct {
	cfg        Config
	httpClient *http.Client
}

func newAnthropicClient(cfg Config, httpClient *http.Client) *anthropicClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultAnthropicBaseURL
	}
	return &anthropicClient{cfg: cfg, httpClient: httpClient}
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string          `json:"role"`
	Content []anthropicPart `json:"content"`
}

type anthropicPart struct {
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Source *anthropicSource `json:"source,omitempty"`
}

type anthropicSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *anthropicClient) Solve(ctx context.Context, image []byte, prompt Prompt) (string, error) {
	if len(image) == 0 {
		return "", errors.New("solver: empty image")
	}
	endpoint, err := joinEndpoint(c.cfg.BaseURL, "v1", "messages")
	if err != nil {
		return "", err
	}

	payload := anthropicRequest{
		Model:     c.cfg.Model,
		MaxTokens: maxCompletionTokens,
		Messages: []anthropicMessage{
			{
				Role: "user",
				Content: []anthropicPart{
					{
						Type: "image",
						Source: &anthropicSource{
							Type:      "base64",
							MediaType: "image/png",
							Data:      base64.StdEncoding.EncodeToString(image),
						},
					},
					{Type: "text", Text: prompt.Text},
				},
			},
		},
	}

	header := http.Header{}
	header.Set("x-api-key", c.cfg.APIKey)
	header.Set("anthropic-version", anthropicAPIVersion)

	raw, err := postJSON(ctx, c.httpClient, endpoint, header, payload)
	if err != nil {
		return "", classifyCallError(ProviderAnthropic, err)
	}

	var message anthropicResponse
	if err := json.Unmarshal(raw, &message); err != nil {
		return "", malformed(ProviderAnthropic, "undecodable response: "+snippet(raw))
	}
	if message.Error != nil && message.Error.Message != "" {
		return "", &Failure{Reason: ReasonUpstreamError, Err: errors.New("anthropic: " + message.Error.Message)}
	}
	text := firstTextBlock(message)
	if text == "" {
		return "", malformed(ProviderAnthropic, "response has no text block")
	}
	return acceptCandidate(ProviderAnthropic, text, c.cfg.MaxSolutionLength)
}

func firstTextBlock(message anthropicResponse) string {
	for _, block := range message.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			return strings.TrimSpace(block.Text)
		}
	}
	return ""
}
