package noteservice

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/ansuz/internal/indexes"
)

// CaptureSnapshot records the current aggregate graph counts as a new
// entry in the append-only snapshot series.
func (s *Service) CaptureSnapshot(ctx context.Context) (*indexes.GraphSnapshot, error) {
	var emb indexes.EmbeddingsIndex
	var bl indexes.BacklinksIndex
	var cl indexes.ClustersIndex
	var tn indexes.TensionsIndex
	var dc indexes.DecayIndex
	var rel indexes.RelationsIndex
	var ex indexes.ExplorationsIndex

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { emb, err = s.repo.Embeddings(gctx); return })
	g.Go(func() (err error) { bl, err = s.repo.Backlinks(gctx); return })
	g.Go(func() (err error) { cl, err = s.repo.Clusters(gctx); return })
	g.Go(func() (err error) { tn, err = s.repo.Tensions(gctx); return })
	g.Go(func() (err error) { dc, err = s.repo.Decay(gctx); return })
	g.Go(func() (err error) { rel, err = s.repo.Relations(gctx); return })
	g.Go(func() (err error) { ex, err = s.repo.Explorations(gctx); return })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Every symmetric link appears once per side.
	directed := 0
	for _, entries := range bl.Links {
		directed += len(entries)
	}

	snap, err := s.repo.AppendSnapshot(ctx, indexes.GraphSnapshot{
		TakenAt:      s.now(),
		Notes:        len(emb.Records),
		Links:        directed / 2,
		Clusters:     len(cl.Clusters),
		Tensions:     len(tn.Tensions),
		DecayedNotes: len(dc.Records),
		Relations:    len(rel.Relations),
		Suggestions:  len(ex.Suggestions),
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// SnapshotDelta is the change in each aggregate count relative to the
// immediately preceding entry in a filtered snapshot series.
type SnapshotDelta struct {
	Notes        int `json:"notes"`
	Links        int `json:"links"`
	Clusters     int `json:"clusters"`
	Tensions     int `json:"tensions"`
	DecayedNotes int `json:"decayed_notes"`
	Relations    int `json:"relations"`
	Suggestions  int `json:"suggestions"`
}

// SnapshotEntry is one snapshot with its delta. The first entry of any
// filtered series has a nil delta.
type SnapshotEntry struct {
	indexes.GraphSnapshot
	Delta *SnapshotDelta `json:"delta"`
}

// Snapshots returns the snapshot series, optionally restricted to
// entries taken at or after since, with each entry's delta computed
// against the entry immediately preceding it in the filtered series.
func (s *Service) Snapshots(ctx context.Context, since *time.Time) ([]SnapshotEntry, error) {
	idx, err := s.repo.Snapshots(ctx)
	if err != nil {
		return nil, err
	}

	out := []SnapshotEntry{}
	for _, snap := range idx.Snapshots {
		if since != nil && snap.TakenAt.Before(*since) {
			continue
		}
		entry := SnapshotEntry{GraphSnapshot: snap}
		if n := len(out); n > 0 {
			prev := out[n-1].GraphSnapshot
			entry.Delta = &SnapshotDelta{
				Notes:        snap.Notes - prev.Notes,
				Links:        snap.Links - prev.Links,
				Clusters:     snap.Clusters - prev.Clusters,
				Tensions:     snap.Tensions - prev.Tensions,
				DecayedNotes: snap.DecayedNotes - prev.DecayedNotes,
				Relations:    snap.Relations - prev.Relations,
				Suggestions:  snap.Suggestions - prev.Suggestions,
			}
		}
		out = append(out, entry)
	}
	return out, nil
}
