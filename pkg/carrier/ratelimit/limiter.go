// Package ratelimit enforces per-carrier call budgets with token buckets.
package ratelimit

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Policy is the call budget for one bucket.
type Policy struct {
	CallsPerSecond float64
	Burst          int
}

// ErrLimited reports a rejected acquire. RetryAfter is the wait until the
// next token lands; the caller decides whether to retry or drop.
type ErrLimited struct {
	Carrier    string
	Capability string
	RetryAfter time.Duration
}

func (e *ErrLimited) Error() string {
	return fmt.Sprintf("rate limit exhausted for %s/%s, retry in %s",
		e.Carrier, e.Capability, e.RetryAfter)
}

// Limiter holds one token bucket per (carrier, capability). Buckets are
// independent: exhausting one carrier's budget never blocks another.
type Limiter struct {
	mu      sync.RWMutex
	buckets map[string]*rate.Limiter
}

// New creates an empty limiter. Buckets are registered per carrier via
// Configure.
func New() *Limiter {
	return &Limiter{buckets: make(map[string]*rate.Limiter)}
}

// Configure registers one bucket per capability for the carrier.
// Reconfiguring replaces all of the carrier's buckets.
func (l *Limiter) Configure(carrierCode string, policies map[string]Policy) {
	l.mu.Lock()
	defer l.mu.Unlock()
	prefix := carrierCode + "/"
	for k := range l.buckets {
		if strings.HasPrefix(k, prefix) {
			delete(l.buckets, k)
		}
	}
	for capability, policy := range policies {
		l.buckets[key(carrierCode, capability)] = rate.NewLimiter(rate.Limit(policy.CallsPerSecond), policy.Burst)
	}
}

// Acquire takes one token from the carrier's bucket for the capability. It
// never blocks: when the bucket is empty it fails immediately with an
// ErrLimited carrying a retry-after hint.
func (l *Limiter) Acquire(carrierCode, capability string) error {
	l.mu.RLock()
	bucket, ok := l.buckets[key(carrierCode, capability)]
	l.mu.RUnlock()
	if !ok {
		// Unconfigured carriers are not throttled locally.
		return nil
	}

	if bucket.Allow() {
		return nil
	}

	// Reserve to learn when the next token lands, then give it back so the
	// failed acquire does not consume future budget.
	res := bucket.Reserve()
	retryAfter := res.Delay()
	res.Cancel()

	return &ErrLimited{Carrier: carrierCode, Capability: capability, RetryAfter: retryAfter}
}

// RetryAfter returns the wait until the next token for the tuple, zero when
// a token is already available.
func (l *Limiter) RetryAfter(carrierCode, capability string) time.Duration {
	l.mu.RLock()
	bucket, ok := l.buckets[key(carrierCode, capability)]
	l.mu.RUnlock()
	if !ok {
		return 0
	}
	if bucket.Tokens() >= 1 {
		return 0
	}
	res := bucket.Reserve()
	d := res.Delay()
	res.Cancel()
	return d
}

func key(code, capability string) string {
	return code + "/" + capability
}
