package ml

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
const ProviderName = "workers-ai"

// Client calls a Workers-AI style summarization endpoint: POST {url}/run/{model}.
type Client struct {
	endpoint  string
	model     string
	token     string
	maxLength int
	http      *http.Client
}

var _ ports.Summarizer = (*Client)(nil)

// NewClient creates a reusable HTTP client from configuration.
func NewClient(cfg config.EnrichmentConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxLength := cfg.MaxLength
	if maxLength <= 0 {
		maxLength = config.DefaultSummaryMaxLength
	}
	return &Client{
		endpoint:  strings.TrimSuffix(cfg.URL, "/"),
		model:     cfg.Model,
		token:     cfg.Token,
		maxLength: maxLength,
		http:      &http.Client{Timeout: timeout},
	}
}

// Name identifies the provider inside the registry.
func (c *Client) Name() string {
	return ProviderName
}

type summarizeRequest struct {
	InputText string `json:"input_text"`
	MaxLength int    `json:"max_length"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
	Result  *struct {
		Summary string `json:"summary"`
	} `json:"result"`
}

// Summarize requests a summary for input. It never retries.
func (c *Client) Summarize(ctx context.Context, input string) (string, error) {
	var resp summarizeResponse
	if err := c.post(ctx, "/run/"+c.model, summarizeRequest{InputText: input, MaxLength: c.maxLength}, &resp); err != nil {
		return "", err
	}

	if resp.Summary == "" && resp.Result != nil {
		return resp.Result.Summary, nil
	}
	return resp.Summary, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "summarization request failed").
			WithCode(http.StatusBadGateway).
			WithMetadata(map[string]any{"model": c.model})
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		diagnostic, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return goerrors.New(
			fmt.Sprintf("summarization error %s: %s", resp.Status, strings.TrimSpace(string(diagnostic))),
			goerrors.CategoryExternal,
		).
			WithCode(resp.StatusCode).
			WithMetadata(map[string]any{"model": c.model})
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
