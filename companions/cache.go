package companions

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/adorahq/companion-go-sdk/core"
)

// CachedProvider fronts another Provider with a ristretto cache so the
// hot turn path does not hit the metadata backend on every request.
// Profiles are cached for a TTL; misses and lookup errors are never
// cached.
type CachedProvider struct {
	backing Provider
	cache   *ristretto.Cache
	ttl     time.Duration
}

// NewCached wraps backing with a profile cache. ttl bounds how stale a
// served profile can be after the backend changes.
func NewCached(backing Provider, ttl time.Duration) (*CachedProvider, error) {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000, // ~10x expected live profiles
		MaxCost:     1_000,  // profiles, each cost 1
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create profile cache: %w", err)
	}

	return &CachedProvider{
		backing: backing,
		cache:   cache,
		ttl:     ttl,
	}, nil
}

// Get returns a cached profile when present, otherwise reads through.
func (p *CachedProvider) Get(ctx context.Context, companionID string) (core.CompanionProfile, error) {
	if v, ok := p.cache.Get(companionID); ok {
		return v.(core.CompanionProfile), nil
	}

	profile, err := p.backing.Get(ctx, companionID)
	if err != nil {
		return core.CompanionProfile{}, err
	}

	p.cache.SetWithTTL(companionID, profile, 1, p.ttl)
	return profile, nil
}

// Invalidate drops a companion's cached profile, forcing the next Get to
// read through. Call it after the backend mutates a profile.
func (p *CachedProvider) Invalidate(companionID string) {
	p.cache.Del(companionID)
}

// Close releases the cache's internal goroutines.
func (p *CachedProvider) Close() {
	p.cache.Close()
}
