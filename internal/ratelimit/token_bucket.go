package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// TokenBucket grants up to Burst immediate requests and refills at
// RequestsPerSec. Suits keyed E-utilities clients, which are granted an
// average rate rather than a fixed spacing.
type TokenBucket struct {
	mu     sync.Mutex
	rate   float64
	burst  float64
	tokens float64
	stamp  time.Time
}

// NewTokenBucket builds a full bucket from the configured rate and burst.
func NewTokenBucket(cfg Config) *TokenBucket {
	cfg = applyDefaults(cfg)
	return &TokenBucket{
		rate:   cfg.RequestsPerSec,
		burst:  float64(cfg.Burst),
		tokens: float64(cfg.Burst),
		stamp:  time.Now(),
	}
}

// credit refills tokens for the time elapsed since the last update.
// Callers hold mu.
func (b *TokenBucket) credit(now time.Time) {
	if elapsed := now.Sub(b.stamp); elapsed > 0 {
		b.tokens = math.Min(b.burst, b.tokens+elapsed.Seconds()*b.rate)
	}
	b.stamp = now
}

// take spends one token when available. Callers hold mu.
func (b *TokenBucket) take(now time.Time) bool {
	b.credit(now)
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// eta reports how long until a full token accrues. Callers hold mu.
func (b *TokenBucket) eta() time.Duration {
	need := 1 - b.tokens
	if need <= 0 {
		return 0
	}
	return time.Duration(need / b.rate * float64(time.Second))
}

// Wait blocks until a token is spent or the context ends.
func (b *TokenBucket) Wait(ctx context.Context) error {
	for {
		b.mu.Lock()
		if b.take(time.Now()) {
			b.mu.Unlock()
			return nil
		}
		wait := b.eta() + time.Millisecond
		b.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Allow spends a token only when one is available right now.
func (b *TokenBucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.take(time.Now())
}

// Reserve reports how long a caller would wait for the next token.
func (b *TokenBucket) Reserve() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.credit(time.Now())
	return b.eta()
}

// Reset refills the bucket.
func (b *TokenBucket) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = b.burst
	b.stamp = time.Now()
}
