package main

import (
	"net/http"
	"time"
)

// RateLimiter implements a simple token bucket rate limiter
type RateLimiter struct {
	tokens         float64
	capacity       float64
	refillRate     float64
	lastRefillTime time.Time
	now            func() time.Time
	mu             chan struct{} // Simple mutex using a channel
}

// NewRateLimiter creates a new rate limiter with the given capacity and refill rate
func NewRateLimiter(requestsPerSecond, burst int) *RateLimiter {
	return newRateLimiterWithClock(requestsPerSecond, burst, time.Now)
}

func newRateLimiterWithClock(requestsPerSecond, burst int, now func() time.Time) *RateLimiter {
	return &RateLimiter{
		tokens:         float64(burst),
		capacity:       float64(burst),
		refillRate:     float64(requestsPerSecond),
		lastRefillTime: now(),
		now:            now,
		mu:             make(chan struct{}, 1),
	}
}

// Allow checks if a request should be allowed based on the rate limit
func (l *RateLimiter) Allow() bool {
	l.mu <- struct{}{}        // Acquire lock
	defer func() { <-l.mu }() // Release lock

	now := l.now()
	elapsed := now.Sub(l.lastRefillTime)
	l.lastRefillTime = now

	// Fractional tokens carry over so frequent callers still refill
	if elapsed > 0 {
		l.tokens = min(l.capacity, l.tokens+l.refillRate*elapsed.Seconds())
	}

	if l.tokens >= 1 {
		l.tokens--
		return true
	}

	return false
}

// rateLimit rejects requests with 429 once the limiter runs dry.
// A nil limiter passes every request through.
func rateLimit(limiter *RateLimiter, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// newLimiterFromConfig returns nil when rate limiting is disabled
func newLimiterFromConfig(cfg RateLimitConfig) *RateLimiter {
	if cfg.RequestsPerSecond <= 0 {
		return nil
	}
	return NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst)
}
