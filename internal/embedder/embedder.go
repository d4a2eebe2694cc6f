// Package embedder provides the embedding-provider collaborator: text in,
// vector out.
package embedder

import "context"

// Provider turns text into an embedding vector. Implementations fail
// with *apperr.ProviderError on empty text or upstream failure; the
// ingestion pipeline aborts before any write when that happens.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	// Model identifies the embedding model, recorded alongside each vector.
	Model() string
}
