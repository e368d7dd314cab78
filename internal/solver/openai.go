package solver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

type openAIClient struct {
	cfg        Config
	httpClient *http.Client
}

func newOpenAIClient(cfg Config, httpClient *http.Client) *openAIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIBaseURL
	}
	return &openAIClient{cfg: cfg, httpClient: httpClient}
}

type chatCompletionRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string            `json:"role"`
	Content []chatContentPart `json:"content"`
}

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *openAIClient) Solve(ctx context.Context, image []byte, prompt Prompt) (string, error) {
	if len(image) == 0 {
		return "", errors.New("solver: empty image")
	}
	endpoint, err := joinEndpoint(c.cfg.BaseURL, "chat", "completions")
	if err != nil {
		return "", err
	}

	payload := chatCompletionRequest{
		Model:     c.cfg.Model,
		MaxTokens: maxCompletionTokens,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []chatContentPart{
					{Type: "text", Text: prompt.Text},
					{Type: "image_url", ImageURL: &chatImageURL{URL: pngDataURL(image)}},
				},
			},
		},
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	raw, err := postJSON(ctx, c.httpClient, endpoint, header, payload)
	if err != nil {
		return "", classifyCallError(ProviderOpenAI, err)
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(raw, &completion); err != nil {
		return "", malformed(ProviderOpenAI, "undecodable response: "+snippet(raw))
	}
	if completion.Error != nil && completion.Error.Message != "" {
		return "", &Failure{Reason: ReasonUpstreamError, Err: errors.New("openai: " + completion.Error.Message)}
	}
	if len(completion.Choices) == 0 {
		return "", malformed(ProviderOpenAI, "response has no choices")
	}
	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return "", malformed(ProviderOpenAI, "response has empty content")
	}
	return acceptCandidate(ProviderOpenAI, content, c.cfg.MaxSolutionLength)
}

func pngDataURL(image []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(image)
}
