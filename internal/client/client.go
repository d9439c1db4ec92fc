// Package client talks to the workflow service over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	executeStreamPath = "/api/v1/workflow/execute-stream"
	validatePath      = "/api/v1/workflow/validate"
	healthPath        = "/api/v1/workflow/health"

	userAgent = "apiflow/1.0"

	// DefaultRequestTimeout bounds the non-streaming calls.
	DefaultRequestTimeout = 30 * time.Second

	// maxErrorBody caps how much of an error response is read.
	maxErrorBody = 64 * 1024
)

// ErrUnexpectedStatus is returned for any non-2xx response.
var ErrUnexpectedStatus = errors.New("unexpected response status")

// StatusError describes a non-2xx response.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: HTTP %d", ErrUnexpectedStatus, e.StatusCode)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", ErrUnexpectedStatus, e.StatusCode, e.Detail)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// Validation is the service's verdict on a prompt.
type Validation struct {
	Valid   bool   `json:"valid"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Health is the service health report.
type Health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Message string `json:"message"`
}

// Client is a workflow service client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds validate and health calls. Streams are bounded only by their context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    DefaultRequestTimeout,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

// ExecuteStream submits prompt and returns the open event stream. The caller
// must close it; cancelling ctx also closes it.
func (c *Client) ExecuteStream(ctx context.Context, prompt string) (io.ReadCloser, error) {
	req, err := c.newPromptRequest(ctx, executeStreamPath, prompt)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() { _ = resp.Body.Close() }()
		return nil, c.statusError(resp)
	}

	c.logger.Debug("stream opened",
		slog.Int("status_code", resp.StatusCode),
		slog.String("content_type", resp.Header.Get("Content-Type")),
		slog.Duration("duration", time.Since(start)))
	return resp.Body, nil
}

// Validate asks the service whether prompt is acceptable. A prompt rejected
// with 400 and a validation body is reported through Validation, not as an error.
func (c *Client) Validate(ctx context.Context, prompt string) (*Validation, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := c.newPromptRequest(ctx, validatePath, prompt)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	body, status, err := c.do(req)
	if err != nil {
		return nil, err
	}

	if status == http.StatusBadRequest && gjson.GetBytes(body, "valid").Exists() {
		return decodeJSON[Validation](body)
	}
	if status < 200 || status > 299 {
		return nil, &StatusError{StatusCode: status, Detail: errorDetail(body)}
	}
	return decodeJSON[Validation](body)
}

// Health fetches the service health report.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	body, status, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, &StatusError{StatusCode: status, Detail: errorDetail(body)}
	}
	return decodeJSON[Health](body)
}

func (c *Client) newPromptRequest(ctx context.Context, path, prompt string) (*http.Request, error) {
	payload, err := json.Marshal(promptRequest{Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s failed: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response body: %w", err)
	}
	c.logger.Debug("request completed",
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Int("status_code", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))
	return body, resp.StatusCode, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	err := &StatusError{StatusCode: resp.StatusCode, Detail: errorDetail(body)}
	c.logger.Error("HTTP error",
		slog.Int("status_code", resp.StatusCode),
		slog.String("detail", err.Detail))
	return err
}

// errorDetail extracts a readable message from an error body. FastAPI sends
// {"detail": "..."} or, for validation failures, {"detail": [{"msg": "..."}]}.
func errorDetail(body []byte) string {
	if !gjson.ValidBytes(body) {
		return strings.TrimSpace(string(body))
	}
	detail := gjson.GetBytes(body, "detail")
	switch {
	case detail.Type == gjson.String:
		return detail.String()
	case detail.IsArray():
		var msgs []string
		for _, item := range detail.Array() {
			if msg := item.Get("msg").String(); msg != "" {
				msgs = append(msgs, msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	for _, key := range []string{"error", "message"} {
		if v := gjson.GetBytes(body, key); v.Type == gjson.String {
			return v.String()
		}
	}
	return ""
}

func decodeJSON[T any](body []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &v, nil
}
