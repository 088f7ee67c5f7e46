// Package ratelimiter provides token bucket rate limiting, globally or per
// caller identity.
package ratelimiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// unlimited stands in for "no limit"; rate.Inf has edge cases with burst 0.
const unlimited = 1_000_000_000

// RateLimiter provides request rate limiting using the token bucket algorithm.
//
// The token bucket algorithm works as follows:
//  1. Tokens are added to the bucket at a constant rate (requests per second)
//  2. Each request consumes one token from the bucket
//  3. If the bucket is empty, the request is either rejected or waits for a token
//  4. Burst capacity allows temporary spikes above the sustained rate
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a new RateLimiter with the specified rate and burst capacity.
//
// Parameters:
//   - requestsPerSecond: Maximum sustained rate (tokens added per second)
//   - burst: Maximum burst size (bucket capacity in tokens)
//
// Special cases:
//   - requestsPerSecond = 0: No rate limiting (unlimited)
//   - burst = 0: burst defaults to requestsPerSecond
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 {
		requestsPerSecond = unlimited
		burst = unlimited
	}
	if burst == 0 {
		burst = requestsPerSecond
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
}

// Allow reports whether a request may proceed now, consuming a token if so.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or the context is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// KeyedLimiter keeps one token bucket per key (the caller identity), so one
// noisy caller cannot starve the others.
//
// Buckets idle for longer than the idle TTL are evicted by Sweep; a caller
// returning after eviction starts with a full bucket again.
//
// Thread safety:
// All methods are safe for concurrent use.
type KeyedLimiter struct {
	mu       sync.Mutex
	rps      uint
	burst    uint
	idleTTL  time.Duration
	limiters map[string]*entry
	now      func() time.Time
}

type entry struct {
	limiter  *RateLimiter
	lastSeen time.Time
}

// NewKeyed creates a per-key limiter. requestsPerSecond = 0 disables limiting.
// idleTTL = 0 defaults to ten minutes.
func NewKeyed(requestsPerSecond, burst uint, idleTTL time.Duration) *KeyedLimiter {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &KeyedLimiter{
		rps:      requestsPerSecond,
		burst:    burst,
		idleTTL:  idleTTL,
		limiters: make(map[string]*entry),
		now:      time.Now,
	}
}

// Enabled reports whether the limiter restricts anything.
func (k *KeyedLimiter) Enabled() bool {
	return k.rps > 0
}

func (k *KeyedLimiter) get(key string) *RateLimiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.limiters[key]
	if !ok {
		e = &entry{limiter: New(k.rps, k.burst)}
		k.limiters[key] = e
	}
	e.lastSeen = k.now()
	return e.limiter
}

// Allow consumes a token from key's bucket if one is available.
func (k *KeyedLimiter) Allow(key string) bool {
	if !k.Enabled() {
		return true
	}
	return k.get(key).Allow()
}

// Wait blocks until key's bucket yields a token or ctx ends.
func (k *KeyedLimiter) Wait(ctx context.Context, key string) error {
	if !k.Enabled() {
		return ctx.Err()
	}
	return k.get(key).Wait(ctx)
}

// Sweep evicts buckets idle for longer than the TTL and returns how many
// were removed.
func (k *KeyedLimiter) Sweep() int {
	k.mu.Lock()
	defer k.mu.Unlock()

	cutoff := k.now().Add(-k.idleTTL)
	removed := 0
	for key, e := range k.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(k.limiters, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (k *KeyedLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.limiters)
}

// Run sweeps idle buckets every interval until ctx is cancelled.
func (k *KeyedLimiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			k.Sweep()
		}
	}
}
