package noteservice

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/graph"
	"github.com/starford/ansuz/internal/indexes"
	"github.com/starford/ansuz/internal/models"
)

// GetNote reads one note document.
func (s *Service) GetNote(ctx context.Context, id string) (*models.Note, error) {
	doc, err := s.store.Get(ctx, models.NotePath(id))
	if err != nil {
		return nil, err
	}
	var note models.Note
	if err := json.Unmarshal(doc.Data, &note); err != nil {
		return nil, fmt.Errorf("note %s: %w: %v", id, apperr.ErrCorruptDocument, err)
	}
	return &note, nil
}

// Links returns the backlinks of one note sorted by descending
// similarity. An unlinked note yields an empty list.
func (s *Service) Links(ctx context.Context, noteID string) ([]indexes.BacklinkEntry, error) {
	bl, err := s.repo.Backlinks(ctx)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(graph.Links(bl, noteID)), nil
}

// Clusters returns clusters sorted by id, optionally restricted to one
// cluster id. An unknown id is reported as not found.
func (s *Service) Clusters(ctx context.Context, clusterID string) ([]indexes.Cluster, time.Time, error) {
	idx, err := s.repo.Clusters(ctx)
	if err != nil {
		return nil, time.Time{}, err
	}
	if clusterID != "" {
		c, ok := idx.Clusters[clusterID]
		if !ok {
			return nil, time.Time{}, fmt.Errorf("cluster %s: %w", clusterID, apperr.ErrNotFound)
		}
		return []indexes.Cluster{c}, idx.ComputedAt, nil
	}
	ids := make([]string, 0, len(idx.Clusters))
	for id := range idx.Clusters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]indexes.Cluster, 0, len(ids))
	for _, id := range ids {
		out = append(out, idx.Clusters[id])
	}
	return out, idx.ComputedAt, nil
}

// Tensions returns the current tensions index.
func (s *Service) Tensions(ctx context.Context) (indexes.TensionsIndex, error) {
	return s.repo.Tensions(ctx)
}

// Decay returns the current decay index.
func (s *Service) Decay(ctx context.Context) (indexes.DecayIndex, error) {
	return s.repo.Decay(ctx)
}

// Explorations returns the current explorations index.
func (s *Service) Explorations(ctx context.Context) (indexes.ExplorationsIndex, error) {
	return s.repo.Explorations(ctx)
}

// GraphNode is one node in the graph view.
type GraphNode struct {
	ID string `json:"id"`
}

// GraphLink is one undirected edge in the graph view.
type GraphLink struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Similarity float64 `json:"similarity"`
}

// GraphView returns every embedded note and every symmetric link exactly
// once, for rendering by external consumers.
func (s *Service) GraphView(ctx context.Context) ([]GraphNode, []GraphLink, error) {
	emb, err := s.repo.Embeddings(ctx)
	if err != nil {
		return nil, nil, err
	}
	bl, err := s.repo.Backlinks(ctx)
	if err != nil {
		return nil, nil, err
	}

	nodes := make([]GraphNode, 0, len(emb.Records))
	for _, id := range sortedRecordIDs(emb) {
		nodes = append(nodes, GraphNode{ID: id})
	}

	seen := make(map[string]struct{})
	links := []GraphLink{}
	for source, entries := range bl.Links {
		for _, e := range entries {
			key := indexes.PairKey(source, e.TargetID)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			a, b := indexes.OrderPair(source, e.TargetID)
			links = append(links, GraphLink{Source: a, Target: b, Similarity: e.Similarity})
		}
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].Source != links[j].Source {
			return links[i].Source < links[j].Source
		}
		return links[i].Target < links[j].Target
	})
	return nodes, links, nil
}

func sortedRecordIDs(emb indexes.EmbeddingsIndex) []string {
	ids := make([]string, 0, len(emb.Records))
	for id := range emb.Records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
