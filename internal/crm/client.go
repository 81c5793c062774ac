// Package crm looks up relationship strength for a contact from an external
// CRM. Every call is bounded by a timeout, a rate limiter and a circuit
// breaker.
package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Config configures a Client.
type Config struct {
	// BaseURL of the CRM API, e.g. https://crm.example.com/api.
	BaseURL string

	// Token is sent as a bearer token when set.
	Token string

	// Timeout bounds a single lookup (default: 5s).
	Timeout time.Duration

	// RequestsPerSecond is the sustained request rate (default: 5).
	RequestsPerSecond float64

	// Burst is the limiter burst size (default: 5).
	Burst int

	Breaker BreakerConfig
}

// Client implements the relationship strength lookup used by the score
// adjuster.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	http    *http.Client
	limiter *rate.Limiter
	breaker *breaker
}

type strengthResponse struct {
	Strength float64 `json:"strength"`
}

// NewClient returns a client for cfg.BaseURL.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("crm: base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("crm: invalid base URL: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		timeout: cfg.Timeout,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		breaker: newBreaker("crm", cfg.Breaker),
	}, nil
}

// RelationshipStrength returns the strength (0-5) of the relationship with
// the contact at email.
func (c *Client) RelationshipStrength(ctx context.Context, email string) (float64, error) {
	if strings.TrimSpace(email) == "" {
		return 0, fmt.Errorf("crm: email is required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("crm: rate limited: %w", err)
	}
	return c.breaker.execute(ctx, func() (float64, error) {
		return c.fetchStrength(ctx, email)
	})
}

func (c *Client) fetchStrength(ctx context.Context, email string) (float64, error) {
	endpoint := c.baseURL + "/contacts/strength?email=" + url.QueryEscape(email)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("crm: failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("crm: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("crm: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out strengthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("crm: failed to decode response: %w", err)
	}
	return out.Strength, nil
}

// State returns the breaker state: closed, open or half-open.
func (c *Client) State() string {
	return c.breaker.state()
}

// Metrics returns call counters.
func (c *Client) Metrics() BreakerMetrics {
	return c.breaker.snapshot()
}
