// Package provider holds the outbound HTTP plumbing shared by every data-source adapter.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Moutron/home-maintenance-app-sub001/internal/domain"
	"golang.org/x/time/rate"
)

// Response bodies larger than this are rejected.
const maxBodyBytes = 10 << 20

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error: status %d: %s", e.Provider, e.Code, e.Body)
}

// Client is a rate-limited HTTP client for one provider.
type Client struct {
	name       string
	httpClient *http.Client
	limiter    *rate.Limiter
	header     http.Header
}

// Option configures a Client.
type Option func(*Client)

// WithHeader sets a header on every request, e.g. an API key.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.header.Set(key, value) }
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client for the named provider allowing ratePerSec
// requests per second. timeout bounds each HTTP round trip.
func NewClient(name string, timeout time.Duration, ratePerSec float64, opts ...Option) *Client {
	burst := int(ratePerSec)
	if burst < 1 {
		burst = 1
	}
	c := &Client{
		name:       name,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), burst),
		header:     make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the provider name used in errors.
func (c *Client) Name() string { return c.name }

// Do performs a GET and returns the status code and body, whatever the status.
func (c *Client) Do(ctx context.Context, rawURL string, header http.Header) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, fmt.Errorf("%s rate limit: %w", c.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s request: %w", c.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%s read body: %w", c.name, err)
	}
	if len(body) > maxBodyBytes {
		return resp.StatusCode, nil, fmt.Errorf("%s response exceeds %d bytes", c.name, maxBodyBytes)
	}
	return resp.StatusCode, body, nil
}

// Get performs a GET and returns the body of a 2xx response. Other statuses
// yield *StatusError; an empty 2xx body yields domain.ErrNoData.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	status, body, err := c.Do(ctx, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, &StatusError{Provider: c.name, Code: status, Body: truncate(string(body), 200)}
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%s empty body: %w", c.name, domain.ErrNoData)
	}
	return body, nil
}

// GetJSON performs a GET and decodes a 2xx JSON body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) error {
	body, err := c.Get(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s response: %w", c.name, err)
	}
	return nil
}

// IsStatus reports whether err is a *StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
