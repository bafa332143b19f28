// Package chromem backs long-term memory with chromem-go, a pure Go
// embedded vector database. Each conversation namespace maps to its own
// collection, so similarity search physically cannot cross namespaces.
package chromem

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
)

// Store implements memory.Store on chromem-go.
type Store struct {
	db          *chromem.DB
	collections map[string]*chromem.Collection // keyed by namespace
	mu          sync.RWMutex
}

// New creates an in-memory store. Contents live for the process lifetime.
func New() (*Store, error) {
	return &Store{
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
	}, nil
}

// NewPersistent creates a store whose collections are persisted under
// path, surviving restarts.
func NewPersistent(path string) (*Store, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("open persistent db: %w", err)
	}
	return &Store{
		db:          db,
		collections: make(map[string]*chromem.Collection),
	}, nil
}

// collection returns the namespace's collection, creating it on first use.
func (s *Store) collection(ns string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, exists := s.collections[ns]
	s.mu.RUnlock()

	if exists {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if col, exists := s.collections[ns]; exists {
		return col, nil
	}

	// Namespace strings carry separator characters chromem collection
	// names can't, so the name is a hash of the namespace.
	h := fnv.New64a()
	h.Write([]byte(ns))
	name := fmt.Sprintf("ns_%016x", h.Sum64())

	col, err := s.db.CreateCollection(
		name,
		nil, // no collection metadata
		nil, // embeddings are always provided by the caller
	)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	s.collections[ns] = col
	return col, nil
}

// Upsert stores one passage under the namespace.
func (s *Store) Upsert(ctx context.Context, ns, text string, embedding []float32) error {
	col, err := s.collection(ns)
	if err != nil {
		return err
	}

	doc := chromem.Document{
		ID:        uuid.New().String(),
		Content:   text,
		Embedding: embedding,
		Metadata: map[string]string{
			"namespace":  ns,
			"created_at": time.Now().Format(time.RFC3339),
		},
	}

	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	return nil
}

// Search returns up to limit passages nearest the embedding, most similar
// first, scoped to the namespace.
func (s *Store) Search(ctx context.Context, ns string, embedding []float32, limit int) ([]string, error) {
	col, err := s.collection(ns)
	if err != nil {
		return nil, err
	}

	// The where clause is belt-and-braces: collections are already
	// per-namespace.
	where := map[string]string{"namespace": ns}

	// chromem-go requires nResults <= collection size, so retry with
	// smaller limits until the query fits.
	var results []chromem.Result
	for current := limit; current >= 1; current-- {
		results, err = col.QueryEmbedding(ctx, embedding, current, where, nil)
		if err == nil {
			break
		}
		if isInsufficientDocsError(err) {
			if current == 1 {
				// Collection is empty.
				return nil, nil
			}
			continue
		}
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	passages := make([]string, 0, len(results))
	for _, result := range results {
		passages = append(passages, result.Content)
	}

	log.Printf("[CHROMEM] returning %d passages for namespace %s", len(passages), ns)
	return passages, nil
}

// Close releases resources. chromem keeps state in memory or flushed to
// disk as it goes; nothing to release.
func (s *Store) Close() error {
	return nil
}

// isInsufficientDocsError checks whether a query failed only because the
// collection holds fewer documents than requested.
func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
