// Package noteservice coordinates the store, the derived indexes, and
// the embedding provider: note ingestion plus the graph maintenance
// passes layered on top.
package noteservice

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/ansuz/internal/embedder"
	"github.com/starford/ansuz/internal/graph"
	"github.com/starford/ansuz/internal/indexes"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/similarity"
	"github.com/starford/ansuz/internal/store"
)

// Event names published through the Notifier.
const (
	EventNoteCreated         = "note-created"
	EventClustersUpdated     = "clusters-updated"
	EventTensionsUpdated     = "tensions-updated"
	EventDecayUpdated        = "decay-updated"
	EventExplorationsUpdated = "explorations-updated"
	EventBacklinksRebuilt    = "backlinks-rebuilt"
)

// Config carries every graph threshold. Constructed once at startup and
// passed in explicitly; there are no ambient globals.
type Config struct {
	SimilarityThreshold   float64
	OutlierThreshold      float64
	DecayScoreThreshold   float64
	TensionThreshold      float64
	CloseClusterThreshold float64
	ClusterKMin           int
	ClusterKMax           int
	ClusterMaxIterations  int
}

// Notifier observes completed mutations (for SSE fan-out). May be nil.
type Notifier func(event string, data any)

// Service is the consistency and graph-analysis engine.
type Service struct {
	store  store.Store
	repo   *indexes.Repository
	embed  embedder.Provider
	cfg    Config
	notify Notifier

	now  func() time.Time
	rand *rand.Rand // clustering seed source; nil uses the global one
}

// NewService creates a Service. notify may be nil.
func NewService(s store.Store, repo *indexes.Repository, embed embedder.Provider, cfg Config, notify Notifier) *Service {
	if notify == nil {
		notify = func(string, any) {}
	}
	return &Service{
		store:  s,
		repo:   repo,
		embed:  embed,
		cfg:    cfg,
		notify: notify,
		now:    time.Now,
	}
}

// CaptureResult is returned from note ingestion.
type CaptureResult struct {
	NoteID      string             `json:"note_id"`
	Type        string             `json:"type"`
	LinkedNotes []similarity.Match `json:"linked_notes"`
}

// CaptureNote ingests one note end to end: build the note locally, embed
// it, compute its outbound links, then write the note document and the
// backlink additions concurrently, and finally upsert the embedding
// record. The embeddings upsert is deliberately sequenced after the
// joined writes so a version conflict there can never roll back or block
// the already-committed note and links; each index's consistency stands
// alone. A partial failure leaves the note present and linked but
// invisible to similarity scans until Relink repairs the embeddings
// index.
func (s *Service) CaptureNote(ctx context.Context, content, noteType string) (*CaptureResult, error) {
	note, err := models.NewNote(content, noteType, s.now())
	if err != nil {
		return nil, err
	}

	vec, err := s.embed.Embed(ctx, note.Content)
	if err != nil {
		return nil, err
	}

	emb, err := s.repo.Embeddings(ctx)
	if err != nil {
		return nil, err
	}
	matches := similarity.FindMatches(vec, emb, s.cfg.SimilarityThreshold, map[string]struct{}{note.ID: {}})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := json.Marshal(note)
		if err != nil {
			return fmt.Errorf("encode note %s: %w", note.ID, err)
		}
		// The note path is new, so this create never contends.
		_, err = s.store.Put(gctx, models.NotePath(note.ID), data, "")
		return err
	})
	g.Go(func() error {
		return s.repo.MutateBacklinks(gctx, func(idx *indexes.BacklinksIndex) error {
			graph.ApplyMatches(idx, note.ID, matches)
			return nil
		})
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	err = s.repo.MutateEmbeddings(ctx, func(idx *indexes.EmbeddingsIndex) error {
		idx.Records[note.ID] = indexes.EmbeddingRecord{
			NoteID:    note.ID,
			Vector:    vec,
			Model:     s.embed.Model(),
			CreatedAt: note.CreatedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(EventNoteCreated, map[string]any{"note_id": note.ID, "links": len(matches)})
	return &CaptureResult{
		NoteID:      note.ID,
		Type:        note.Type,
		LinkedNotes: nonNilSlice(matches),
	}, nil
}

// FindSimilar embeds query text and returns up to limit notes at or
// above the similarity threshold, most similar first. Nothing is
// written; this is the read-only counterpart of ingestion's link step.
func (s *Service) FindSimilar(ctx context.Context, text string, limit int) ([]similarity.Match, error) {
	vec, err := s.embed.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	emb, err := s.repo.Embeddings(ctx)
	if err != nil {
		return nil, err
	}
	matches := similarity.FindMatches(vec, emb, s.cfg.SimilarityThreshold, nil)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return nonNilSlice(matches), nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
