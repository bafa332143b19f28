package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Window is an in-process fixed-window limiter. Each identity gets its
// own counter guarded by its own lock, so heavy traffic on one identity
// never blocks admission checks for another. Idle counters are reclaimed
// by a background sweep.
type Window struct {
	cfg Config
	now func() time.Time

	mu      sync.RWMutex
	buckets map[string]*bucket
}

type bucket struct {
	mu          sync.Mutex
	windowStart time.Time
	count       int
	lastAccess  time.Time
}

// NewWindow creates an in-process fixed-window limiter.
func NewWindow(cfg Config) *Window {
	w := &Window{
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}

	go w.cleanupLoop()

	return w
}

// Allow admits the request if the identity has budget left in the current
// window. A throttled request does not consume budget.
func (w *Window) Allow(_ context.Context, identity string) (bool, error) {
	b := w.bucket(identity)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := w.now()
	b.lastAccess = now

	if now.Sub(b.windowStart) >= w.cfg.Window {
		// Window elapsed, reset the counter.
		b.windowStart = now
		b.count = 0
	}

	if b.count >= w.cfg.MaxRequests {
		return false, nil
	}

	b.count++
	return true, nil
}

// bucket returns or creates the counter for an identity.
func (w *Window) bucket(identity string) *bucket {
	w.mu.RLock()
	b, exists := w.buckets[identity]
	w.mu.RUnlock()

	if exists {
		return b
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// Double-check after acquiring write lock
	if b, exists = w.buckets[identity]; exists {
		return b
	}

	b = &bucket{
		// Zero windowStart means the first Allow opens a fresh window.
		lastAccess: w.now(),
	}
	w.buckets[identity] = b
	return b
}

// cleanupLoop periodically removes idle identity counters.
func (w *Window) cleanupLoop() {
	ticker := time.NewTicker(w.cfg.CleanupTTL / 2)
	defer ticker.Stop()

	for range ticker.C {
		w.cleanup()
	}
}

func (w *Window) cleanup() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	for identity, b := range w.buckets {
		b.mu.Lock()
		idle := now.Sub(b.lastAccess) > w.cfg.CleanupTTL
		b.mu.Unlock()
		if idle {
			delete(w.buckets, identity)
		}
	}
}
