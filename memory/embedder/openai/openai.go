// Package openai provides a hosted embedder backed by the OpenAI
// embeddings API.
package openai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Config configures the OpenAI embedder.
type Config struct {
	// APIKey is required.
	APIKey string

	// Model is the embedding model (default: text-embedding-3-small).
	Model openai.EmbeddingModel

	// Dimensions is the embedding vector size the model produces
	// (default: 1536, matching text-embedding-3-small).
	Dimensions int

	// BaseURL overrides the API endpoint for proxies and compatible
	// backends. Optional.
	BaseURL string
}

// Embedder calls the OpenAI embeddings endpoint.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

// New creates an OpenAI embedder.
func New(cfg Config) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("APIKey is required")
	}
	if cfg.Model == "" {
		cfg.Model = openai.SmallEmbedding3
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 1536
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed converts text to an embedding vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response carried no data")
	}
	return resp.Data[0].Embedding, nil
}

// Dimensions returns the embedding size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}
