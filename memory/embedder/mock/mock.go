// Package mock provides a deterministic embedder for tests. Embeddings
// are derived from a hash of the text, so equal inputs always embed
// identically without any model or network dependency.
package mock

import (
	"context"
	"hash/fnv"
	"math"
)

// Embedder generates hash-based pseudo-embeddings. They carry no real
// semantics; they exist so vector plumbing can be exercised offline.
type Embedder struct {
	dimensions int
}

// New creates a mock embedder with 384 dimensions (matching the small
// sentence-transformer models used in local setups).
func New() *Embedder {
	return &Embedder{dimensions: 384}
}

// Embed creates a deterministic unit vector from the text.
func (m *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	embedding := make([]float32, m.dimensions)
	for i := 0; i < m.dimensions; i++ {
		// LCG stream seeded by the text hash.
		seed = seed*6364136223846793005 + 1442695040888963407
		embedding[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}

	return normalize(embedding), nil
}

// Dimensions returns the embedding size.
func (m *Embedder) Dimensions() int {
	return m.dimensions
}

// normalize converts the vector to unit length.
func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}

	norm = float32(math.Sqrt(float64(norm)))
	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = v / norm
	}
	return normalized
}
