package ratelimit

import (
	"context"
	"sync"
	"time"
)

// DelayGate enforces a minimum interval between consecutive requests by
// scheduling each caller into the next free slot. The first request
// passes immediately.
type DelayGate struct {
	mu   sync.Mutex
	gap  time.Duration
	next time.Time
}

// NewDelayGate builds a gate with the configured inter-request interval.
func NewDelayGate(cfg Config) *DelayGate {
	return &DelayGate{gap: applyDefaults(cfg).Delay}
}

// Wait claims the next slot and sleeps until it arrives. A canceled
// context still consumes the slot; callers abandon the run anyway.
func (g *DelayGate) Wait(ctx context.Context) error {
	g.mu.Lock()
	now := time.Now()
	at := g.next
	if at.Before(now) {
		at = now
	}
	g.next = at.Add(g.gap)
	g.mu.Unlock()

	wait := time.Until(at)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Allow claims a slot only when one is free right now.
func (g *DelayGate) Allow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	if g.next.After(now) {
		return false
	}
	g.next = now.Add(g.gap)
	return true
}

// Reserve reports how long a caller would wait for the next slot.
func (g *DelayGate) Reserve() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	if wait := time.Until(g.next); wait > 0 {
		return wait
	}
	return 0
}

// Reset forgets the schedule so the next request passes immediately.
func (g *DelayGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next = time.Time{}
}
