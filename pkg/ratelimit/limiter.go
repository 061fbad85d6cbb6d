// Package ratelimit provides the throttling primitives used when
// talking to the upstream API: a shared token bucket for a global
// request ceiling, and a per-worker pacer enforcing a minimum gap
// between successive requests.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow checks if a request is allowed under the current rate limit
	Allow() bool
	// Wait blocks until the rate limit allows another request or the
	// context is canceled
	Wait(ctx context.Context) error
	// Reset resets the rate limiter state
	Reset()
}

// TokenBucket implements a token bucket rate limiter
type TokenBucket struct {
	capacity     int           // Maximum number of tokens
	tokens       int           // Current number of tokens
	refillPeriod time.Duration // Period after which bucket is refilled
	lastRefill   time.Time     // Last time the bucket was refilled
	mu           sync.Mutex
}

// NewTokenBucket creates a new token bucket rate limiter
func NewTokenBucket(capacity int, refillPeriod time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity:     capacity,
		tokens:       capacity,
		refillPeriod: refillPeriod,
		lastRefill:   time.Now(),
	}
}

// Allow checks if a request can proceed
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}

	return false
}

// Wait blocks until a token is available or the context is canceled
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for !tb.Allow() {
		tb.mu.Lock()
		timeUntilRefill := tb.refillPeriod - time.Since(tb.lastRefill)
		tb.mu.Unlock()

		if timeUntilRefill <= 0 {
			// Small sleep to prevent busy waiting
			timeUntilRefill = 100 * time.Millisecond
		}

		if err := sleepCtx(ctx, timeUntilRefill); err != nil {
			return err
		}
	}
	return nil
}

// Reset resets the token bucket to full capacity
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.lastRefill = time.Now()
}

// refill adds tokens based on elapsed time
func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefill)

	if elapsed >= tb.refillPeriod {
		tb.tokens = tb.capacity
		tb.lastRefill = now
	}
}

// Pacer enforces a minimum interval between successive events. Unlike
// TokenBucket it has no burst capacity: each Wait call blocks until
// the interval since the previous call has elapsed. A Pacer belongs to
// a single worker and must not be shared.
type Pacer struct {
	interval time.Duration
	last     time.Time
}

// NewPacer creates a Pacer with the given minimum interval. A zero or
// negative interval disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{interval: interval}
}

// Interval returns the configured minimum interval
func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Allow reports whether an event may proceed without waiting
func (p *Pacer) Allow() bool {
	if p.interval <= 0 || p.last.IsZero() {
		p.last = time.Now()
		return true
	}
	if time.Since(p.last) >= p.interval {
		p.last = time.Now()
		return true
	}
	return false
}

// Wait blocks until the interval since the previous event has elapsed
// or the context is canceled. The first call returns immediately.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.interval > 0 && !p.last.IsZero() {
		remaining := p.interval - time.Since(p.last)
		if remaining > 0 {
			if err := sleepCtx(ctx, remaining); err != nil {
				return err
			}
		}
	}
	p.last = time.Now()
	return nil
}

// Reset forgets the previous event, so the next Wait returns immediately
func (p *Pacer) Reset() {
	p.last = time.Time{}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
