// Package source implements the raw source client: HTTP fetches against
// third-party game-economy APIs with rate limiting, circuit breaking and
// retry/backoff. It performs no persistence and no payload interpretation.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"pathofmirrors/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 4
	DefaultRetryDelay  = 500 * time.Millisecond
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
	DefaultRateLimit   = 2.0 // requests per second
	DefaultRateBurst   = 4

	defaultUserAgent = "pathofmirrors/1.0"
)

// Client fetches raw payloads from one upstream API. One Client is shared
// per (source, game) so the token bucket and circuit breaker cover every
// caller hitting that API.
type Client struct {
	name        string // "poeninja/poe1", used for logs, metrics, breaker
	baseURL     string
	client      *http.Client
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker[[]byte]
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	userAgent   string
	logger      zerolog.Logger
	metrics     *observability.Metrics
}

// Option configures Client.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts for transient failures.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets the initial retry delay.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets the backoff cap.
func WithMaxDelay(d time.Duration) Option {
	return func(c *Client) {
		c.maxDelay = d
	}
}

// WithRateLimit sets the token bucket rate and burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a raw source client for one upstream API.
func New(name, baseURL string, opts ...Option) *Client {
	c := &Client{
		name:        name,
		baseURL:     baseURL,
		client:      &http.Client{Timeout: DefaultTimeout},
		limiter:     rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateBurst),
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		userAgent:   defaultUserAgent,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    name,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Permanent failures (bad request shapes) say nothing about upstream
		// health; only transient failures may trip the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || IsPermanent(err)
		},
	})

	return c
}

// Name returns the client identity used for logs and metrics.
func (c *Client) Name() string { return c.name }

// Fetch performs a GET against baseURL+endpoint with retries and jittered
// exponential backoff for transient failures. Permanent failures are
// surfaced immediately. The returned payload is the raw response body.
func (c *Client) Fetch(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	u := c.baseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(jitter(delay)):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
			if c.metrics != nil {
				c.metrics.FetchRetries.WithLabelValues(c.name).Inc()
			}
			c.logger.Debug().
				Str("source", c.name).
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Msg("retrying fetch")
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		if c.metrics != nil {
			c.metrics.FetchRequests.WithLabelValues(c.name).Inc()
		}

		body, err := c.breaker.Execute(func() ([]byte, error) {
			return c.doRequest(ctx, endpoint, u)
		})
		if err == nil {
			return body, nil
		}

		if IsPermanent(err) {
			if c.metrics != nil {
				c.metrics.FetchFailures.WithLabelValues(c.name, "permanent").Inc()
			}
			return nil, err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = &TransientFetchError{Endpoint: endpoint, Err: err}
		}
		lastErr = err
	}

	if c.metrics != nil {
		c.metrics.FetchFailures.WithLabelValues(c.name, "transient").Inc()
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// doRequest performs a single HTTP round trip and classifies the outcome.
func (c *Client) doRequest(ctx context.Context, endpoint, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &PermanentFetchError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &TransientFetchError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransientFetchError{Endpoint: endpoint, Err: fmt.Errorf("read response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &TransientFetchError{Endpoint: endpoint, Status: resp.StatusCode, Err: errors.New("rate limited")}
	case resp.StatusCode >= 500:
		return nil, &TransientFetchError{Endpoint: endpoint, Status: resp.StatusCode, Err: fmt.Errorf("server error: %s", string(body))}
	default:
		return nil, &PermanentFetchError{Endpoint: endpoint, Status: resp.StatusCode, Err: fmt.Errorf("unexpected status: %s", string(body))}
	}
}

// jitter spreads a backoff delay over [d/2, d) to avoid thundering-herd
// retries against the upstream API.
func jitter(d time.Duration) time.Duration {
	half := d / 2
	return half + time.Duration(rand.Int64N(int64(half)+1))
}
