// Package client is a typed HTTP client for the hub API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/DeBrosOfficial/loghub/pkg/hub"
	"github.com/DeBrosOfficial/loghub/pkg/logstore"
)

// DefaultTimeout bounds each request when the caller sets none.
const DefaultTimeout = 30 * time.Second

// Config holds client settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client talks to one hub.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// APIError is a non-2xx reply from the hub.
type APIError struct {
	Status  int               `json:"-"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	TraceID string            `json:"trace_id,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("hub returned %d: %s", e.Status, e.Message)
	}
	if field := e.Details["field"]; field != "" {
		return fmt.Sprintf("hub returned %d %s: %s (%s)", e.Status, e.Code, e.Message, field)
	}
	return fmt.Sprintf("hub returned %d %s: %s", e.Status, e.Code, e.Message)
}

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: base, apiKey: cfg.APIKey, http: hc}, nil
}

// Upload sends a batch for nodeID and returns the commands and interval.
func (c *Client) Upload(ctx context.Context, nodeID uint32, lines []hub.LogLine) (*hub.IngestResult, error) {
	if lines == nil {
		lines = []hub.LogLine{}
	}
	body, err := json.Marshal(map[string]any{"logs": lines})
	if err != nil {
		return nil, fmt.Errorf("failed to encode logs: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/update", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Node-ID", strconv.FormatUint(uint64(nodeID), 10))

	var res hub.IngestResult
	if err := c.do(req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Download returns the visible records with id greater than lastID.
func (c *Client) Download(ctx context.Context, lastID int64) ([]logstore.Record, error) {
	path := "/download?last_log_message_id=" + strconv.FormatInt(lastID, 10)
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var res struct {
		Logs []logstore.Record `json:"logs"`
	}
	if err := c.do(req, &res); err != nil {
		return nil, err
	}
	return res.Logs, nil
}

// SubmitCommand submits a command. Params may be nil.
func (c *Client) SubmitCommand(ctx context.Context, command string, params map[string]any) error {
	payload := map[string]any{"command": command}
	if len(params) > 0 {
		payload["parameters"] = params
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode command: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/command", body)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// Status returns the operator status document.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/status", nil)
	if err != nil {
		return nil, err
	}
	var res StatusResponse
	if err := c.do(req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// StatusResponse is the body of GET /v1/status.
type StatusResponse struct {
	Server struct {
		Status    string    `json:"status"`
		StartedAt time.Time `json:"started_at"`
		Uptime    string    `json:"uptime"`
	} `json:"server"`
	Hub hub.Status `json:"hub"`
}

// Health calls GET /health. A 503 comes back as an APIError.
func (c *Client) Health(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if jerr := json.Unmarshal(data, apiErr); jerr != nil || apiErr.Message == "" {
			apiErr.Code = ""
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
