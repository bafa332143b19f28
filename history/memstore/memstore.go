// Package memstore provides an in-process history store for local
// development and tests. State lives for the process lifetime only.
package memstore

import (
	"context"
	"sync"

	"github.com/adorahq/companion-go-sdk/core"
	"github.com/adorahq/companion-go-sdk/history"
)

// Store keeps one transcript per namespace in memory. Each namespace has
// its own lock, so appends for different conversations never contend.
type Store struct {
	mu         sync.RWMutex
	namespaces map[string]*namespace
}

type namespace struct {
	mu      sync.RWMutex
	seeded  bool
	nextSeq int64
	entries []core.HistoryEntry
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		namespaces: make(map[string]*namespace),
	}
}

// Seed writes the seed run, or reports core.ErrAlreadySeeded.
func (s *Store) Seed(_ context.Context, ns, seedText, delimiter string) error {
	n := s.namespace(ns)

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.seeded {
		return core.ErrAlreadySeeded
	}

	for _, turn := range history.SplitSeed(seedText, delimiter) {
		n.nextSeq++
		n.entries = append(n.entries, core.HistoryEntry{
			Speaker:  core.RoleCompanion,
			Text:     turn,
			Sequence: n.nextSeq,
		})
	}
	n.seeded = true
	return nil
}

// Append adds one entry with the next sequence number.
func (s *Store) Append(_ context.Context, ns string, speaker core.Role, text string) (core.HistoryEntry, error) {
	n := s.namespace(ns)

	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextSeq++
	entry := core.HistoryEntry{
		Speaker:  speaker,
		Text:     text,
		Sequence: n.nextSeq,
	}
	n.entries = append(n.entries, entry)
	return entry, nil
}

// ReadRecent returns the most recent limit entries, oldest first.
func (s *Store) ReadRecent(_ context.Context, ns string, limit int) ([]core.HistoryEntry, error) {
	n := s.namespace(ns)

	n.mu.RLock()
	defer n.mu.RUnlock()

	start := 0
	if limit > 0 && len(n.entries) > limit {
		start = len(n.entries) - limit
	}

	out := make([]core.HistoryEntry, len(n.entries)-start)
	copy(out, n.entries[start:])
	return out, nil
}

// Seeded reports whether the namespace's seed run was written.
func (s *Store) Seeded(_ context.Context, ns string) (bool, error) {
	n := s.namespace(ns)

	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.seeded, nil
}

// namespace returns or creates the state for one conversation.
func (s *Store) namespace(ns string) *namespace {
	s.mu.RLock()
	n, exists := s.namespaces[ns]
	s.mu.RUnlock()

	if exists {
		return n
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if n, exists = s.namespaces[ns]; exists {
		return n
	}

	n = &namespace{}
	s.namespaces[ns] = n
	return n
}
