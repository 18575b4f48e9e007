package ratelimit

import (
	"context"
	"sync"
	"time"
)

const windowLength = time.Second

// FixedWindow admits a fixed number of requests per one-second window,
// for providers that document "N requests per second" as a hard count
// rather than a spacing.
type FixedWindow struct {
	mu     sync.Mutex
	limit  int
	used   int
	opened time.Time
}

// NewFixedWindow builds a window sized from the configured rate.
func NewFixedWindow(cfg Config) *FixedWindow {
	return &FixedWindow{
		limit:  int(applyDefaults(cfg).RequestsPerSec),
		opened: time.Now(),
	}
}

// turn rolls the window forward once it has expired. Callers hold mu.
func (w *FixedWindow) turn(now time.Time) {
	if now.Sub(w.opened) >= windowLength {
		w.opened = now
		w.used = 0
	}
}

// Wait blocks until the current or a following window admits the call.
func (w *FixedWindow) Wait(ctx context.Context) error {
	for {
		if w.Allow() {
			return nil
		}

		wait := w.Reserve()
		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Allow admits the call only when the current window has room.
func (w *FixedWindow) Allow() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.turn(time.Now())
	if w.used >= w.limit {
		return false
	}
	w.used++
	return true
}

// Reserve reports the time remaining until the window rolls over, zero
// when the current window still has room.
func (w *FixedWindow) Reserve() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	w.turn(now)
	if w.used < w.limit {
		return 0
	}
	return windowLength - now.Sub(w.opened)
}

// Reset opens a fresh window.
func (w *FixedWindow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.used = 0
	w.opened = time.Now()
}
