package miniflux

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"MinifluxAI/internal/config"
	"MinifluxAI/internal/ports"
)

// Client overwrites entry content through the Miniflux REST API.
type Client struct {
	baseURL  string
	username string
	password string
	client   *http.Client
}

var _ ports.EntryUpdater = (*Client)(nil)

// NewClient registers the Miniflux base URL and credentials.
func NewClient(cfg config.MinifluxConfig) *Client {
	return &Client{
		baseURL:  strings.TrimSuffix(cfg.URL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

type updateEntryRequest struct {
	Content string `json:"content"`
}

// UpdateContent issues PUT /v1/entries/{id} with the new content. Any non-2xx
// response is a failure.
func (c *Client) UpdateContent(ctx context.Context, id int64, content string) error {
	if c.baseURL == "" || c.client == nil {
		return fmt.Errorf("miniflux client misconfigured")
	}

	body, err := json.Marshal(updateEntryRequest{Content: content})
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}

	endpoint := c.baseURL + "/v1/entries/" + strconv.FormatInt(id, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "miniflux update failed").
			WithCode(http.StatusBadGateway).
			WithMetadata(map[string]any{"entry_id": id})
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return goerrors.New(
			fmt.Sprintf("miniflux error %s: %s", resp.Status, strings.TrimSpace(string(payload))),
			goerrors.CategoryExternal,
		).
			WithCode(resp.StatusCode).
			WithMetadata(map[string]any{"entry_id": id})
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
