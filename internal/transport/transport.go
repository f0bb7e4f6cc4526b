// Package transport provides HTTP round trippers shared by the API clients.
package transport

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultMaxAttempts = 5
	defaultMaxWait     = 2 * time.Minute
)

// RateLimitedTransport retries requests rejected with 429 Too Many Requests after the delay the server asks for in
// its retry-after header. Responses without a usable retry-after are returned as they are
type RateLimitedTransport struct {
	base        http.RoundTripper
	maxAttempts int
	maxWait     time.Duration
}

// WithRateLimiting wraps base, or http.DefaultTransport if base is nil
func WithRateLimiting(base http.RoundTripper) *RateLimitedTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &RateLimitedTransport{
		base:        base,
		maxAttempts: defaultMaxAttempts,
		maxWait:     defaultMaxWait,
	}
}

// WithMaxAttempts limits the number of times a request is sent, including the first
func (t *RateLimitedTransport) WithMaxAttempts(n int) *RateLimitedTransport {
	if n < 1 {
		n = 1
	}
	t.maxAttempts = n
	return t
}

func (t *RateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Preserve the original request body for retries
	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		err = req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to close request body: %w", err)
		}
	}

	for attempt := 1; ; attempt++ {
		if bodyBytes != nil {
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}

		resp, err := t.base.RoundTrip(req)
		if err != nil {
			return resp, err
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt >= t.maxAttempts {
			return resp, nil
		}

		waitDuration := parseRetryAfter(resp.Header.Get("retry-after"), time.Now())
		if waitDuration <= 0 || waitDuration > t.maxWait {
			return resp, nil
		}

		err = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to close response body: %w", err)
		}

		log.Printf("Rate limited by %s, waiting %s", req.URL.Host, waitDuration)
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(waitDuration):
		}
	}
}

// parseRetryAfter interprets a retry-after header given either in seconds or as an HTTP date
func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if retryTime, err := http.ParseTime(value); err == nil {
		return retryTime.Sub(now)
	}
	return 0
}
