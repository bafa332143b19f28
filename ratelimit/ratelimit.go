// Package ratelimit bounds per-identity request rates ahead of any
// conversation state mutation. Admission is checked before a turn touches
// the history or vector stores, so a throttled request has no side
// effects downstream.
package ratelimit

import (
	"context"
	"time"
)

// Limiter decides whether a request for the given identity is admitted.
// The identity is an opaque string composed by the caller (typically
// userId-companionId). Implementations must keep admission for one
// identity independent of contention on another.
type Limiter interface {
	Allow(ctx context.Context, identity string) (bool, error)
}

// Config holds the admission budget: MaxRequests admissions per Window
// per identity.
type Config struct {
	// MaxRequests is the number of admissions allowed inside one window.
	MaxRequests int

	// Window is the fixed-window size.
	Window time.Duration

	// CleanupTTL is how long an idle identity's counter is retained
	// before the in-process limiter reclaims it.
	CleanupTTL time.Duration
}

// DefaultConfig allows 10 requests per 10 seconds per identity.
func DefaultConfig() Config {
	return Config{
		MaxRequests: 10,
		Window:      10 * time.Second,
		CleanupTTL:  10 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxRequests <= 0 {
		c.MaxRequests = d.MaxRequests
	}
	if c.Window <= 0 {
		c.Window = d.Window
	}
	if c.CleanupTTL <= 0 {
		c.CleanupTTL = d.CleanupTTL
	}
	return c
}
