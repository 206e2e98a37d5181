package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"MinifluxAI/internal/config"
	"MinifluxAI/internal/ports"
)

// ProviderName identifies this client in the enrichment registry.
const ProviderName = "openai"

// ChatGPTClient implements ports.Summarizer backed by OpenAI-compatible chat completions.
type ChatGPTClient struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	maxTokens    int
	httpClient   *http.Client
}

var _ ports.Summarizer = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration. cfg.URL is the full
// chat completions endpoint.
func NewChatGPTClient(cfg config.EnrichmentConfig) *ChatGPTClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxTokens := cfg.MaxLength
	if maxTokens <= 0 {
		maxTokens = config.DefaultSummaryMaxLength
	}
	return &ChatGPTClient{
		endpoint:     cfg.URL,
		model:        cfg.Model,
		apiKey:       cfg.Token,
		systemPrompt: cfg.SystemPrompt,
		maxTokens:    maxTokens,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// Name identifies the provider inside the registry.
func (c *ChatGPTClient) Name() string {
	return ProviderName
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Summarize sends input as the user message and returns the first choice.
func (c *ChatGPTClient) Summarize(ctx context.Context, input string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("chatgpt client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("chatgpt client misconfigured")
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: safePrompt(c.systemPrompt)},
			{Role: "user", Content: input},
		},
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chatgpt payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryExternal, "chatgpt request failed").
			WithCode(http.StatusBadGateway).
			WithMetadata(map[string]any{"model": c.model})
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", goerrors.New(
			fmt.Sprintf("chatgpt error %s: %s", resp.Status, strings.TrimSpace(string(payload))),
			goerrors.CategoryExternal,
		).
			WithCode(resp.StatusCode).
			WithMetadata(map[string]any{"model": c.model})
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode chatgpt response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", nil
	}
	return decoded.Choices[0].Message.Content, nil
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You summarize articles in a few short paragraphs of Markdown."
	}
	return prompt
}
