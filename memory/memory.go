package memory

import "context"

// Store is the long-term vector memory backend. Records are immutable
// once stored and strictly scoped to their namespace: a search for one
// conversation never returns another conversation's passages.
//
// Implementations: chromem (embedded, local SDK); production deployments
// swap in a hosted vector index behind the same interface.
type Store interface {
	// Upsert stores one passage with its embedding under the namespace.
	// Repeated upserts of similar text are tolerated; there is no dedup.
	Upsert(ctx context.Context, namespace, text string, embedding []float32) error

	// Search returns up to limit passages nearest to the query embedding,
	// ordered by decreasing similarity, scoped to the namespace.
	Search(ctx context.Context, namespace string, embedding []float32, limit int) ([]string, error)

	// Close releases resources.
	Close() error
}

// Embedder converts text to vector embeddings.
// Implementations: mock (testing), openai (hosted API).
//
// Note: Embedder is an implementation detail of the Orchestrator; callers
// assembling turns never interact with it directly.
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// Config holds Orchestrator tuning.
type Config struct {
	// HistoryWindow is how many recent transcript entries feed the
	// prompt and the retrieval query.
	// Default: 30
	HistoryWindow int

	// RetrievalTopK is how many long-term passages a turn retrieves.
	// Default: 3
	RetrievalTopK int

	// MinReplyLength is the minimum reply size in characters; shorter
	// completions are discarded instead of committed, keeping degenerate
	// output out of both stores.
	// Default: 3
	MinReplyLength int

	// SeedDelimiter separates turns inside a companion's canned seed
	// material.
	// Default: "\n\n"
	SeedDelimiter string
}

// DefaultConfig holds sensible defaults for a chat companion deployment.
var DefaultConfig = &Config{
	HistoryWindow:  30,
	RetrievalTopK:  3,
	MinReplyLength: 3,
	SeedDelimiter:  "\n\n",
}

func (c *Config) withDefaults() *Config {
	if c == nil {
		cp := *DefaultConfig
		return &cp
	}
	cp := *c
	if cp.HistoryWindow <= 0 {
		cp.HistoryWindow = DefaultConfig.HistoryWindow
	}
	if cp.RetrievalTopK <= 0 {
		cp.RetrievalTopK = DefaultConfig.RetrievalTopK
	}
	if cp.MinReplyLength <= 0 {
		cp.MinReplyLength = DefaultConfig.MinReplyLength
	}
	if cp.SeedDelimiter == "" {
		cp.SeedDelimiter = DefaultConfig.SeedDelimiter
	}
	return &cp
}
