// Package ratelimit paces outbound requests to the catalog's metadata
// providers. Each source client owns one Limiter and calls Wait before
// every request; the strategies differ only in how they account for
// elapsed time.
package ratelimit

import (
	"context"
	"time"
)

// Limiter gates calls to one provider. Wait blocks until the next request
// may go out or the context ends. Allow and Reserve are non-blocking
// probes; Reset clears accumulated state between runs.
type Limiter interface {
	Wait(ctx context.Context) error
	Allow() bool
	Reserve() time.Duration
	Reset()
}

// Strategy names a pacing implementation in the YAML pacing file.
type Strategy string

const (
	StrategyFixedDelay  Strategy = "fixed_delay"
	StrategyTokenBucket Strategy = "token_bucket"
	StrategyFixedWindow Strategy = "fixed_window"
)

// NewLimiter builds the limiter a config asks for. The delay gate is the
// default: the catalog providers specify a minimum interval between
// consecutive requests, not an average rate.
func NewLimiter(cfg Config) Limiter {
	switch applyDefaults(cfg).Strategy {
	case StrategyTokenBucket:
		return NewTokenBucket(cfg)
	case StrategyFixedWindow:
		return NewFixedWindow(cfg)
	default:
		return NewDelayGate(cfg)
	}
}
