// Package webhook forwards scan payloads to a workflow automation webhook.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds a webhook call
const DefaultTimeout = 60 * time.Second

// Config is the immutable configuration of a Client
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Client posts payloads to one webhook. Build a new Client to change its
// configuration.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a webhook client
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook URL required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{},
		logger: logger,
	}, nil
}

// Config returns the client's configuration
func (c *Client) Config() Config { return c.cfg }

// Envelope is the workflow's answer. Raw holds the full decoded body.
type Envelope struct {
	Success    bool           `json:"success"`
	WorkflowID string         `json:"workflow_id,omitempty"`
	Message    string         `json:"message,omitempty"`
	Raw        map[string]any `json:"-"`
}

// StatusError is a non-2xx webhook answer
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook error: HTTP %d: %s", e.StatusCode, e.Body)
}

// Send posts payload as JSON and decodes the envelope
func (c *Client) Send(ctx context.Context, payload any) (*Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	c.logger.Info("webhook_send", "url", c.cfg.URL, "bytes", len(body))
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("webhook_send_failed", "error", err)
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		c.logger.Error("webhook_http_error", "status", resp.StatusCode)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	env := &Envelope{Success: true}
	if len(bytes.TrimSpace(data)) == 0 {
		return env, nil
	}
	if err := json.Unmarshal(data, &env.Raw); err != nil {
		return nil, fmt.Errorf("webhook response is not a JSON object: %w", err)
	}
	if v, ok := env.Raw["success"].(bool); ok {
		env.Success = v
	}
	if v, ok := env.Raw["workflow_id"].(string); ok {
		env.WorkflowID = v
	}
	if v, ok := env.Raw["message"].(string); ok {
		env.Message = v
	}
	c.logger.Info("webhook_response", "success", env.Success, "workflow_id", env.WorkflowID)
	return env, nil
}
