package rest

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// HeaderRetryAfter is the retry-after header (seconds or HTTP date).
	HeaderRetryAfter = "Retry-After"

	// DefaultRetryAfter is the backoff used when a 429 carries no Retry-After.
	DefaultRetryAfter = 60 * time.Second
)

// RateLimiter throttles requests with a token bucket and backs off after
// the provider reports a rate limit.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

// NewRateLimiter creates a limiter allowing rps sustained requests per second
// with the given burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Wait blocks until a request can be made without exceeding the rate limit.
// It also respects any backoff period set by RecordRateLimit.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if time.Now().Before(retryAt) {
		timer := time.NewTimer(time.Until(retryAt))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.limiter.Wait(ctx)
}

// RecordRateLimit sets a backoff period after a 429 response.
// A non-positive wait falls back to DefaultRetryAfter.
func (r *RateLimiter) RecordRateLimit(wait time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if wait <= 0 {
		wait = DefaultRetryAfter
	}
	r.retryAt = time.Now().Add(wait)
}

// RetryAt returns the end of the current backoff period, if any.
func (r *RateLimiter) RetryAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retryAt
}

// Allow checks if a request can be made immediately without blocking.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if time.Now().Before(retryAt) {
		return false
	}
	return r.limiter.Allow()
}

// ParseRetryAfter reads the Retry-After header as seconds or an HTTP date.
// Returns 0 when absent or malformed.
func ParseRetryAfter(h http.Header) time.Duration {
	v := h.Get(HeaderRetryAfter)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		return time.Until(t)
	}
	return 0
}
