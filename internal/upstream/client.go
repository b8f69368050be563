// Package upstream implements the client for the OpenAI-compatible completion
// service.
//
// The client exposes two call shapes: Complete for small auxiliary calls (the
// module classifier) and Stream for the token-by-token generation the
// orchestrator relays. Streamed frames are decoded strictly one line at a
// time; a malformed line is skipped, never allowed to abort a healthy stream.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/asterhq/aster/internal/log"
)

var (
	// ErrNoAPIKey indicates the client was constructed without credentials.
	ErrNoAPIKey = errors.New("upstream: missing API key")

	// ErrStatus indicates the upstream rejected a request with a non-success
	// status. Check with errors.Is; the wrapped message carries the code.
	ErrStatus = errors.New("upstream: non-success status")

	// ErrEmptyResponse indicates a non-streaming call returned no choices.
	ErrEmptyResponse = errors.New("upstream: empty response")
)

// Config contains required parameters for the upstream client.
type Config struct {
	BaseURL string
	APIKey  string
	Logger  log.Logger

	// HTTPClient overrides the default client. Tests inject an
	// httptest-backed client here.
	HTTPClient *http.Client

	// Limiter throttles outbound requests. Nil installs the default
	// (10 req/s sustained, burst 30).
	Limiter *rate.Limiter
}

// Client talks to one OpenAI-compatible endpoint. Safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     log.Logger
}

// New creates a Client. The API key is required: every completion call needs
// it, so a missing key is a configuration error surfaced at construction.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("upstream: base URL is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("upstream: logger is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// No global timeout: legitimate generations may stream for minutes.
		// Cancellation comes from the caller's context.
		httpClient = &http.Client{}
	}

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		limiter:    limiter,
		logger:     cfg.Logger,
	}, nil
}

// Complete issues a non-streaming completion call and returns the first
// choice's content. Used by the module classifier.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (string, error) {
	req.Stream = false

	resp, err := c.post(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", c.statusError(resp)
	}

	var body completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("upstream: decoding response: %w", err)
	}
	if len(body.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return body.Choices[0].Message.Content, nil
}

// Stream opens a streaming completion request. The returned Stream must be
// closed by the caller; closing it releases the connection promptly, which is
// also the best-effort signal to the provider to stop generating.
func (c *Client) Stream(ctx context.Context, req ChatRequest) (*Stream, error) {
	req.Stream = true

	resp, err := c.post(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		err := c.statusError(resp)
		_ = resp.Body.Close()
		return nil, err
	}

	return NewStream(resp.Body, c.logger), nil
}

// post sends one JSON request to the chat completions endpoint, honoring the
// rate limiter.
func (c *Client) post(ctx context.Context, req ChatRequest) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("upstream: rate limiter: %w", err)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("upstream: encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("upstream: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("upstream: request failed: %w", err)
	}

	c.logger.Debug("upstream request sent",
		"model", req.Model,
		"stream", req.Stream,
		"messages", len(req.Messages),
		"elapsed", time.Since(start))

	return resp, nil
}

// statusError drains a bounded prefix of the error body for diagnostics and
// wraps ErrStatus.
func (c *Client) statusError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	c.logger.Warn("upstream returned non-success status",
		"status", resp.StatusCode,
		"body", string(snippet))
	return fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
}
