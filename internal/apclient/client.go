// Package apclient is a typed HTTP client for the AP REST backend. Every
// response body is decoded and schema-checked before it is returned.
package apclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/NomadCrew/ap-workbench/errors"
	"github.com/NomadCrew/ap-workbench/logger"
	"go.uber.org/zap"
)

// Client talks to the AP backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.SugaredLogger
	metrics    *clientMetrics
}

// ClientOption is a function that configures the client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// NewClient creates a client for the backend rooted at baseURL
// (for example http://127.0.0.1:8000/api).
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log:     logger.GetLogger().Named("apclient"),
		metrics: newClientMetrics(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the backend root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// errorBody is the FastAPI error envelope. Detail is a string for domain
// errors and a list of objects for request validation failures.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

func (e errorBody) message() string {
	if len(e.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Detail, &s); err == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(e.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return string(e.Detail)
}

// doJSON sends a JSON request and decodes the response into out, if out is
// non-nil. fallback is the message used when the backend gives no detail.
func (c *Client) doJSON(ctx context.Context, op, method, path string, body interface{}, out interface{}, fallback string) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ServerError, "failed to marshal request")
		}
		reader = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ServerError, "failed to create request")
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.send(op, httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(op, resp, fallback); err != nil {
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return c.decode(op, resp.Body, out)
}

// send performs the round trip and records metrics. Transport failures are
// returned as NetworkError.
func (c *Client) send(op string, req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.observe(op, "network_error", elapsed)
		c.log.Warnw("Backend request failed", "operation", op, "method", req.Method, "path", req.URL.Path, "error", err)
		return nil, apperrors.Network(err, op)
	}
	c.metrics.observe(op, statusClass(resp.StatusCode), elapsed)
	c.log.Debugw("Backend request", "operation", op, "method", req.Method, "path", req.URL.Path,
		"status", resp.StatusCode, "duration", elapsed)
	return resp, nil
}

func (c *Client) checkStatus(op string, resp *http.Response, fallback string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	var eb errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &eb)
	detail := eb.message()
	if detail == "" {
		detail = fallback
	}
	c.log.Infow("Backend returned error", "operation", op, "status", resp.StatusCode, "detail", detail)
	return apperrors.Backend(resp.StatusCode, detail)
}

func (c *Client) decode(op string, r io.Reader, out interface{}) error {
	if err := json.NewDecoder(r).Decode(out); err != nil {
		c.metrics.schemaFailures.WithLabelValues(op).Inc()
		return apperrors.SchemaMismatch(op, fmt.Errorf("failed to decode response: %w", err))
	}
	if err := validatePayload(out); err != nil {
		c.metrics.schemaFailures.WithLabelValues(op).Inc()
		c.log.Warnw("Backend response failed validation", "operation", op, "error", err)
		return apperrors.SchemaMismatch(op, err)
	}
	return nil
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}

// Ping checks that the backend answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.doJSON(ctx, "health", http.MethodGet, "/health", nil, nil, "Backend health check failed")
}
