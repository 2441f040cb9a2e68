// ABOUTME: Generic JSON completion client for OpenAI-style, Ollama and OpenRouter endpoints
// ABOUTME: Accepts choices[0].message.content, result, or completion response shapes
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/harper/chat2db/internal/errs"
	"github.com/harper/chat2db/internal/models"
)

// Request headers sent with every completion
const (
	Referer = "http://localhost"
	Title   = "Chat2DB SQL Assistant"
)

// HTTPConfig configures HTTPClient
type HTTPConfig struct {
	URL         string
	APIKey      string
	Model       string
	Temperature float64
	TopP        float64
	Timeout     time.Duration
	Client      *http.Client
}

// HTTPClient posts the message list to a completion endpoint
type HTTPClient struct {
	cfg    HTTPConfig
	client *http.Client
}

// NewHTTPClient validates cfg and returns a client
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if cfg.URL == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "completion URL is required (LLM_API_URL)")
	}
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPClient{cfg: cfg, client: client}, nil
}

type completionRequest struct {
	Model       string           `json:"model"`
	Messages    []models.Message `json:"messages"`
	Temperature float64          `json:"temperature"`
	TopP        float64          `json:"top_p"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Result     *string `json:"result"`
	Completion *string `json:"completion"`
}

// Complete sends one request; non-2xx responses and unknown shapes are upstream errors
func (c *HTTPClient) Complete(ctx context.Context, msgs []models.Message) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model:       c.cfg.Model,
		Messages:    msgs,
		Temperature: c.cfg.Temperature,
		TopP:        c.cfg.TopP,
	})
	if err != nil {
		return "", errs.Wrap(errs.ErrKindInvalidInput, "failed to encode completion request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", errs.Wrap(errs.ErrKindInvalidInput, "failed to build completion request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", Referer)
	req.Header.Set("X-Title", Title)

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.Canceled) {
			return "", errs.Wrap(errs.ErrKindTimeout, "completion request timed out", err)
		}
		return "", errs.Wrap(errs.ErrKindUpstream, "completion request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errs.Wrap(errs.ErrKindUpstream, "failed to read completion response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errs.Newf(errs.ErrKindUpstream, "LLM Error %d: %s", resp.StatusCode, string(raw))
	}

	var parsed completionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", errs.Wrap(errs.ErrKindUpstream, "unexpected API response structure", err)
	}
	switch {
	case len(parsed.Choices) > 0:
		return parsed.Choices[0].Message.Content, nil
	case parsed.Result != nil:
		return *parsed.Result, nil
	case parsed.Completion != nil:
		return *parsed.Completion, nil
	}
	return "", errs.New(errs.ErrKindUpstream, fmt.Sprintf("unexpected API response structure: %s", truncate(string(raw), 200)))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
