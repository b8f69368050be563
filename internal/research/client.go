// Package research implements the search_adhd_research tool: a client for the
// external retrieval service plus the adapter that turns a model-issued tool
// call into model-consumable result text.
package research

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/asterhq/aster/internal/log"
)

// ErrServiceStatus indicates the retrieval service rejected a request.
var ErrServiceStatus = errors.New("research: non-success status")

// Record is one ranked result from the retrieval service.
type Record struct {
	Title    string   `json:"title"`
	Abstract string   `json:"abstract"`
	Year     int      `json:"year"`
	Venue    string   `json:"venue"`
	Authors  []string `json:"authors,omitempty"`
	Score    float64  `json:"score"`
	Topic    string   `json:"topic,omitempty"`
	URL      string   `json:"url,omitempty"`
}

// searchRequest is the retrieval service request body.
type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// Client calls the external retrieval service. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     log.Logger
}

// ClientConfig contains required parameters for the retrieval client.
type ClientConfig struct {
	BaseURL string
	Logger  log.Logger

	// Timeout bounds one retrieval call. Defaults to 15s.
	Timeout time.Duration

	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// NewClient creates a retrieval client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("research: base URL is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("research: logger is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}, nil
}

// Search runs one retrieval query and returns the ranked records.
func (c *Client) Search(ctx context.Context, query string, topK int) ([]Record, error) {
	payload, err := json.Marshal(searchRequest{Query: query, TopK: topK})
	if err != nil {
		return nil, fmt.Errorf("research: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("research: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("research: request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("retrieval service returned non-success status",
			"status", resp.StatusCode,
			"body", string(snippet))
		return nil, fmt.Errorf("%w: %d", ErrServiceStatus, resp.StatusCode)
	}

	var records []Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("research: decoding response: %w", err)
	}

	c.logger.Debug("retrieval search completed", "query_length", len(query), "results", len(records))
	return records, nil
}
