package auth

import (
	"context"
	"sync"
	"time"
)

// RateLimiter decides whether a keyed request may proceed.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// SlidingWindowLimiter is an in-memory sliding window limiter. It is
// per-process state, so the API server uses it locally and Lambda
// deployments use the DynamoDB-backed limiter instead.
type SlidingWindowLimiter struct {
	mu         sync.Mutex
	windows    map[string]*window
	limit      int
	windowSize time.Duration
}

type window struct {
	mu       sync.Mutex
	requests []time.Time
}

// NewSlidingWindowLimiter creates a limiter allowing limit requests
// per windowSize per key.
func NewSlidingWindowLimiter(limit int, windowSize time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		windows:    make(map[string]*window),
		limit:      limit,
		windowSize: windowSize,
	}
}

// Allow checks whether a request for the key fits in the current
// window, recording it if so.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	w, exists := l.windows[key]
	if !exists {
		w = &window{}
		l.windows[key] = w
	}
	l.mu.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()

	windowStart := time.Now().Add(-l.windowSize)

	valid := w.requests[:0]
	for _, reqTime := range w.requests {
		if reqTime.After(windowStart) {
			valid = append(valid, reqTime)
		}
	}
	w.requests = valid

	if len(w.requests) >= l.limit {
		return false, nil
	}
	w.requests = append(w.requests, time.Now())
	return true, nil
}

// Reset clears the window for a key.
func (l *SlidingWindowLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
	return nil
}

// IPRateLimiter throttles by client IP. It is a distinct type so
// wiring can tell the two request limiters apart; callers pass
// already-prefixed keys.
type IPRateLimiter struct {
	RateLimiter
}

// NewIPRateLimiter creates an IP limiter allowing requestsPerMinute
// per address.
func NewIPRateLimiter(requestsPerMinute int) *IPRateLimiter {
	return &IPRateLimiter{NewSlidingWindowLimiter(requestsPerMinute, time.Minute)}
}

// UserRateLimiter throttles by authenticated user.
type UserRateLimiter struct {
	RateLimiter
}

// NewUserRateLimiter creates a user limiter allowing requestsPerMinute
// per user.
func NewUserRateLimiter(requestsPerMinute int) *UserRateLimiter {
	return &UserRateLimiter{NewSlidingWindowLimiter(requestsPerMinute, time.Minute)}
}

// NewUserRateLimiterFrom wraps an existing limiter, used to back the
// user limiter with shared state in multi-instance deployments.
func NewUserRateLimiterFrom(limiter RateLimiter) *UserRateLimiter {
	return &UserRateLimiter{limiter}
}
