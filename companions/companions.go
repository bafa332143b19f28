// Package companions provides read-only access to companion persona
// metadata. The orchestration layer only ever reads profiles; whatever
// system owns companion CRUD lives behind the Provider interface.
package companions

import (
	"context"
	"sync"

	"github.com/adorahq/companion-go-sdk/core"
)

// Provider resolves a companion ID to its profile. Implementations
// return core.ErrCompanionNotFound for unknown IDs.
type Provider interface {
	Get(ctx context.Context, companionID string) (core.CompanionProfile, error)
}

// StaticProvider serves profiles from a fixed in-memory set. Suitable for
// tests, examples, and single-binary deployments with authored personas.
type StaticProvider struct {
	mu       sync.RWMutex
	profiles map[string]core.CompanionProfile
}

// NewStatic creates a provider holding the given profiles.
func NewStatic(profiles ...core.CompanionProfile) *StaticProvider {
	p := &StaticProvider{profiles: make(map[string]core.CompanionProfile, len(profiles))}
	for _, profile := range profiles {
		p.profiles[profile.ID] = profile
	}
	return p
}

// Get returns the profile for companionID.
func (p *StaticProvider) Get(_ context.Context, companionID string) (core.CompanionProfile, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	profile, ok := p.profiles[companionID]
	if !ok {
		return core.CompanionProfile{}, core.ErrCompanionNotFound
	}
	return profile, nil
}

// Put adds or replaces a profile. Intended for test fixtures and admin
// wiring, not for the hot path.
func (p *StaticProvider) Put(profile core.CompanionProfile) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profiles[profile.ID] = profile
}
