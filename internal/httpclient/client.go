// Package httpclient provides the rate-limited, retrying HTTP client shared by
// repository connectors and REST search backends.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/helixir/oa-metasearch/internal/domain"
	"github.com/helixir/oa-metasearch/internal/observability"
)

// DefaultMaxBodyBytes caps response bodies read by the helpers.
const DefaultMaxBodyBytes = 10 << 20

// maxErrorBodyBytes caps the response excerpt kept in errors.
const maxErrorBodyBytes = 512

// Config configures a Client.
type Config struct {
	// Name labels metrics and errors (source or backend name).
	Name string

	// Timeout is the request timeout for HTTP operations.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxRetries is the number of retries on 429 and 5xx responses and network errors.
	// Zero disables retries.
	MaxRetries int

	// RetryDelay is the base delay between retries when no Retry-After is given.
	RetryDelay time.Duration

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// Headers are set on every request unless the request already carries them.
	Headers map[string]string

	// MaxBodyBytes caps response bodies read by GetJSON, GetXML and Send.
	MaxBodyBytes int64
}

// Client wraps http.Client with rate limiting, retries and response decoding.
// It is safe for concurrent use.
type Client struct {
	client      *http.Client
	rateLimiter *RateLimiter
	config      Config
	metrics     *observability.Metrics
}

// Option customizes a Client.
type Option func(*Client)

// WithMetrics records request counts and durations on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.client.Transport = rt }
}

// New creates a Client. The client waits on its rate limiter before every attempt
// and retries 429 and 5xx responses up to MaxRetries times.
func New(cfg Config, opts ...Option) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 10
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = 1
		if cfg.RateLimit >= 2 {
			cfg.BurstSize = int(cfg.RateLimit)
		}
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "OA-Metasearch/1.0 (+https://github.com/helixir/oa-metasearch)"
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	c := &Client{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: NewRateLimiter(cfg.RateLimit, cfg.BurstSize),
		config:      cfg,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the configured client name.
func (c *Client) Name() string {
	return c.config.Name
}

// Do executes req with rate limiting and retries. When retries are exhausted on a
// retryable status the last response is returned unread so callers can inspect it.
//
// Request bodies are replayed on retry only when req.GetBody is set, which
// http.NewRequest does for bytes and strings readers.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	for k, v := range c.config.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := c.resetRequestBody(req); err != nil {
				return nil, fmt.Errorf("cannot retry request: %w", err)
			}
		}

		if err := c.rateLimiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt < c.config.MaxRetries {
				if err := waitForRetry(req.Context(), c.config.RetryDelay); err != nil {
					return nil, err
				}
				continue
			}
			return nil, lastErr
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			c.metrics.RecordSourceRateLimited(c.config.Name)
		}

		if !shouldRetry(resp.StatusCode) || attempt == c.config.MaxRetries {
			return resp, nil
		}

		retryDelay := c.getRetryDelay(resp)
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if err := waitForRetry(req.Context(), retryDelay); err != nil {
			return nil, err
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.New("unexpected error: no response received")
}

// GetJSON issues a GET to rawURL and decodes a 2xx JSON body into out.
// endpoint labels the request in metrics.
func (c *Client) GetJSON(ctx context.Context, endpoint, rawURL string, out any) error {
	body, err := c.Send(ctx, http.MethodGet, endpoint, rawURL, "", nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: failed to parse %s response: %w", c.config.Name, endpoint, err)
	}
	return nil
}

// GetXML issues a GET to rawURL and decodes a 2xx XML body into out.
func (c *Client) GetXML(ctx context.Context, endpoint, rawURL string, out any) error {
	body, err := c.Send(ctx, http.MethodGet, endpoint, rawURL, "", nil)
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: failed to parse %s response: %w", c.config.Name, endpoint, err)
	}
	return nil
}

// SendJSON marshals in (when non-nil) as the request body and decodes a 2xx JSON
// response into out (when non-nil).
func (c *Client) SendJSON(ctx context.Context, method, endpoint, rawURL string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: failed to encode %s request: %w", c.config.Name, endpoint, err)
		}
	}
	body, err := c.Send(ctx, method, endpoint, rawURL, "application/json", payload)
	if err != nil {
		return err
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: failed to parse %s response: %w", c.config.Name, endpoint, err)
	}
	return nil
}

// Send performs a request and returns the body of a 2xx response. Non-2xx
// responses become *domain.ExternalAPIError carrying the status and a body excerpt.
func (c *Client) Send(ctx context.Context, method, endpoint, rawURL, contentType string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create %s request: %w", c.config.Name, endpoint, err)
	}
	if contentType != "" && payload != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", acceptFor(contentType))

	start := time.Now()
	resp, err := c.Do(req)
	c.metrics.RecordSourceRequest(c.config.Name, endpoint, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%s: %s request failed: %w", c.config.Name, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read %s response: %w", c.config.Name, endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt := body
		if len(excerpt) > maxErrorBodyBytes {
			excerpt = excerpt[:maxErrorBodyBytes]
		}
		return nil, domain.NewExternalAPIError(c.config.Name, resp.StatusCode, string(excerpt), nil)
	}
	return body, nil
}

// IsStatus reports whether err is an upstream error with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *domain.ExternalAPIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

func acceptFor(contentType string) string {
	if contentType != "" {
		return contentType
	}
	return "*/*"
}

// shouldRetry returns true if the status code indicates we should retry.
func shouldRetry(statusCode int) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}
	return statusCode >= 500 && statusCode < 600
}

// getRetryDelay honours Retry-After given as seconds or an HTTP date and
// otherwise falls back to the configured delay.
func (c *Client) getRetryDelay(resp *http.Response) time.Duration {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return c.config.RetryDelay
	}

	if seconds, err := strconv.ParseInt(retryAfter, 10, 64); err == nil {
		if seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		return c.config.RetryDelay
	}

	if t, err := http.ParseTime(retryAfter); err == nil {
		if delay := time.Until(t); delay > 0 {
			return delay
		}
	}

	return c.config.RetryDelay
}

// waitForRetry waits for the specified duration, respecting context cancellation.
func waitForRetry(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// resetRequestBody rewinds the request body for a retry if possible.
func (c *Client) resetRequestBody(req *http.Request) error {
	if req.Body == nil || req.GetBody == nil {
		return nil
	}

	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("failed to get request body for retry: %w", err)
	}
	req.Body = body
	return nil
}
