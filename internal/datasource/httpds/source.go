// Package httpds serves the district table from an HTTP(S) URL. Transient
// failures (transport errors, 429 and 5xx) are retried with exponential
// backoff; any other non-2xx status is final.
package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config configures the HTTP source. Zero values get defaults:
//   - Timeout:        30s
//   - InitialBackoff: 200ms
//   - MaxBackoff:     5s
type Config struct {
	URL string

	// Timeout bounds each attempt, body download included.
	Timeout time.Duration

	// MaxRetries is the number of attempts after the first one.
	MaxRetries int

	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Transport replaces http.DefaultTransport when set.
	Transport http.RoundTripper
}

// Source fetches the table with GET on every Open.
type Source struct {
	url            string
	client         *http.Client
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration

	// sleep waits between attempts; tests replace it.
	sleep func(ctx context.Context, d time.Duration) error
}

// New returns a Source for cfg.URL with defaults applied.
func New(cfg Config) *Source {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Source{
		url:            cfg.URL,
		client:         &http.Client{Timeout: cfg.Timeout, Transport: transport},
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		sleep:          sleepContext,
	}
}

// Name returns the URL.
func (s *Source) Name() string { return s.url }

// Open issues the GET and returns the response body. The caller closes it.
//
// Behavior:
//   - Transport errors, 429 and 5xx responses are retried up to MaxRetries
//     times with exponential backoff capped at MaxBackoff.
//   - Any other non-2xx status fails at once without retrying.
//   - The context bounds the whole call, backoff sleeps included.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	if s.url == "" {
		return nil, fmt.Errorf("httpds: url must not be empty")
	}

	attempts := s.maxRetries + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
		if err != nil {
			return nil, fmt.Errorf("httpds: build request: %w", err)
		}
		req.Header.Set("Accept", "text/plain")

		resp, err := s.client.Do(req)
		switch {
		case err != nil:
			lastErr = fmt.Errorf("httpds: get %s: %w", s.url, err)
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp.Body, nil
		case retryable(resp.StatusCode):
			resp.Body.Close()
			lastErr = fmt.Errorf("httpds: get %s: retryable status %d", s.url, resp.StatusCode)
		default:
			resp.Body.Close()
			return nil, fmt.Errorf("httpds: get %s: status %d", s.url, resp.StatusCode)
		}

		if attempt+1 >= attempts {
			break
		}
		if err := s.sleep(ctx, backoff(s.initialBackoff, attempt, s.maxBackoff)); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// retryable reports whether status is worth another attempt.
func retryable(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code <= 599)
}

// backoff returns initial * 2^attempt clamped to max.
func backoff(initial time.Duration, attempt int, max time.Duration) time.Duration {
	if attempt <= 0 {
		return min(initial, max)
	}
	d := initial << attempt
	if d <= 0 || d > max {
		return max
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
