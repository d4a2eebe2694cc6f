// Package testutil provides shared test helpers for setting up stores,
// embedders, and services.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/embedder"
	"github.com/starford/ansuz/internal/indexes"
	"github.com/starford/ansuz/internal/noteservice"
	"github.com/starford/ansuz/internal/store"
)

// FakeEmbedder is an embedder.Provider returning canned vectors by
// exact text match. Unknown text fails like a provider outage.
type FakeEmbedder struct {
	Vectors map[string][]float64
	Calls   int
}

// Embed returns the canned vector for text.
func (f *FakeEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	f.Calls++
	if v, ok := f.Vectors[text]; ok {
		return append([]float64(nil), v...), nil
	}
	return nil, &apperr.ProviderError{Err: fmt.Errorf("no canned vector for %q", text)}
}

// Model returns a fixed model name.
func (f *FakeEmbedder) Model() string { return "test-embed" }

// GraphConfig returns the thresholds used across service tests.
func GraphConfig() noteservice.Config {
	return noteservice.Config{
		SimilarityThreshold:   0.82,
		OutlierThreshold:      0.7,
		DecayScoreThreshold:   0.3,
		TensionThreshold:      0.35,
		CloseClusterThreshold: 0.85,
		ClusterKMin:           2,
		ClusterKMax:           12,
		ClusterMaxIterations:  50,
	}
}

// NewService builds a Service over a fresh in-memory store with an
// instant-backoff retrier, returning the store for inspection.
func NewService(t *testing.T, emb embedder.Provider) (*noteservice.Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	rt := store.NewRetrier(mem)
	rt.Sleep = func(context.Context, time.Duration) error { return nil }
	repo := indexes.NewRepository(mem, rt)
	svc := noteservice.NewService(mem, repo, emb, GraphConfig(), nil)
	return svc, mem
}
