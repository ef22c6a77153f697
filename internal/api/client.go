// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Configuration constants for the backend API.
const (
	// DefaultBaseURL is where the backend listens in development.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout bounds a single HTTP exchange. Queries run a full
	// retrieval + generation round trip, so it is generous.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the number of extra attempts for idempotent GETs.
	DefaultMaxRetries = 2

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay is the maximum delay for exponential backoff.
	retryMaxDelay = 5 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 10 * 1024 * 1024

	userAgent = "kefu/1.0"
)

// Error variables for common failures.
var (
	// ErrMalformedResponse indicates a body that is neither an envelope nor
	// a recognizable error.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrResponseTooLarge indicates the body exceeded MaxResponseSize.
	ErrResponseTooLarge = errors.New("response too large")
)

// HTTPError is a non-2xx response that did not carry an envelope.
type HTTPError struct {
	Status int
	Detail string
}

// Error implements error.
func (e *HTTPError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("HTTP %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Detail)
}

// TokenSource supplies the bearer token for each request. An empty token
// sends no Authorization header. *auth.Session implements it.
type TokenSource interface {
	Token() string
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the backend. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

// NewClient creates a client for baseURL with default settings. An empty
// baseURL selects DefaultBaseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
			Timeout: DefaultTimeout,
		},
		limiter:    rate.NewLimiter(rate.Inf, 1),
		maxRetries: DefaultMaxRetries,
		backoff:    retryBaseDelay,
		logger:     zap.NewNop(),
	}
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

// WithTokenSource sets where bearer tokens come from.
func (c *Client) WithTokenSource(ts TokenSource) *Client {
	c.tokens = ts
	return c
}

// WithRateLimit caps outgoing requests at rps with the given burst.
// rps <= 0 disables limiting.
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	if rps <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 1)
		return c
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// WithMaxRetries sets the number of extra attempts for GET requests.
func (c *Client) WithMaxRetries(n int) *Client {
	if n >= 0 {
		c.maxRetries = n
	}
	return c
}

// WithBackoff sets the base retry delay.
func (c *Client) WithBackoff(d time.Duration) *Client {
	if d > 0 {
		c.backoff = d
	}
	return c
}

// WithLogger sets the logger.
func (c *Client) WithLogger(l *zap.Logger) *Client {
	if l != nil {
		c.logger = l
	}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// request describes one call. body is rebuilt for every attempt.
type request struct {
	method      string
	path        string
	query       url.Values
	body        func() (io.Reader, error)
	contentType string
}

func jsonBody(v any) (func() (io.Reader, error), error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return func() (io.Reader, error) { return bytes.NewReader(data), nil }, nil
}

// call performs r and decodes the envelope.
func call[T any](ctx context.Context, c *Client, r request) (*Envelope[T], error) {
	status, body, err := c.doWithRetry(ctx, r)
	if err != nil {
		return nil, err
	}

	env, err := decodeEnvelope[T](body, status)
	if err != nil {
		return nil, err
	}
	if env != nil {
		return env, nil
	}
	if status < 200 || status > 299 {
		return nil, &HTTPError{Status: status, Detail: detail(body)}
	}
	return nil, fmt.Errorf("%w: %s %s returned no envelope", ErrMalformedResponse, r.method, r.path)
}

// doWithRetry sends r, retrying GETs on transport errors, 429 and 5xx.
// Non-idempotent requests are sent exactly once.
func (c *Client) doWithRetry(ctx context.Context, r request) (int, []byte, error) {
	attempts := 1
	if r.method == http.MethodGet {
		attempts += c.maxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, nil, ctx.Err()
			case <-time.After(c.calculateBackoff(attempt)):
			}
		}

		status, body, err := c.doOnce(ctx, r)
		if err == nil && status != http.StatusTooManyRequests && status < 500 {
			return status, body, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return 0, nil, ctx.Err()
			}
			if errors.Is(err, ErrResponseTooLarge) {
				return 0, nil, err
			}
			lastErr = err
		} else if attempt == attempts-1 {
			// Out of attempts: hand the error body to the caller.
			return status, body, nil
		} else {
			lastErr = &HTTPError{Status: status}
		}
		c.logger.Debug("retrying request",
			zap.String("method", r.method),
			zap.String("path", r.path),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr),
		)
	}
	return 0, nil, lastErr
}

func (c *Client) doOnce(ctx context.Context, r request) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, err
	}

	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	var reader io.Reader
	if r.body != nil {
		var err error
		if reader, err = r.body(); err != nil {
			return 0, nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	// Headers and bodies may carry credentials; only the route is logged.
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed",
			zap.String("method", r.method),
			zap.String("path", r.path),
			zap.Error(err),
		)
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	c.logger.Debug("response",
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

// readResponse reads the body with a size cap.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("%w: over %d bytes", ErrResponseTooLarge, MaxResponseSize)
	}
	return body, nil
}

// calculateBackoff returns the delay before retry attempt n (n >= 1).
func (c *Client) calculateBackoff(attempt int) time.Duration {
	delay := c.backoff * time.Duration(1<<uint(attempt-1))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}

// =============================================================================
// ERROR DETAIL
// =============================================================================

// detail extracts FastAPI's {"detail": ...} or falls back to the raw body.
func detail(body []byte) string {
	var d struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &d); err == nil && len(d.Detail) > 0 {
		var s string
		if json.Unmarshal(d.Detail, &s) == nil {
			return s
		}
		// 422 validation errors: [{"loc": [...], "msg": "...", "type": "..."}]
		var items []struct {
			Msg string `json:"msg"`
		}
		if json.Unmarshal(d.Detail, &items) == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
		return string(d.Detail)
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 || strings.HasPrefix(text, "<") {
		return ""
	}
	return text
}

// describe turns a transport error into a short description.
func describe(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "请求超时"
	case errors.Is(err, context.Canceled):
		return "请求已取消"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "请求超时"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return "无法连接到服务器"
	}
	return err.Error()
}
