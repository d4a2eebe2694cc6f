package indexes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/store"
)

// Repository provides typed access to the index documents. Reads decode
// or fail; a missing document is a valid empty index. Mutations go
// through the optimistic-concurrency retry loop.
type Repository struct {
	store store.Store
	retry *store.Retrier
}

// NewRepository creates a Repository over s using rt for mutations.
func NewRepository(s store.Store, rt *store.Retrier) *Repository {
	return &Repository{store: s, retry: rt}
}

// load reads and strictly decodes the index document at path. A missing
// document yields the zero value; a document that fails decoding is
// reported as corrupt, since hand-edited or partially-written documents
// are an expected store state.
func load[T any](ctx context.Context, s store.Store, path string) (T, error) {
	var out T
	doc, err := s.Get(ctx, path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return out, nil
		}
		return out, err
	}
	if err := json.Unmarshal(doc.Data, &out); err != nil {
		return out, fmt.Errorf("indexes: decode %s: %w: %v", path, apperr.ErrCorruptDocument, err)
	}
	return out, nil
}

// mutate runs fn against the current value of the document at path under
// the retry loop. fn may run once per attempt against a fresh base.
func mutate[T any](ctx context.Context, rt *store.Retrier, path string, fn func(*T) error) error {
	return rt.Update(ctx, path, func(base []byte) ([]byte, error) {
		var v T
		if base != nil {
			if err := json.Unmarshal(base, &v); err != nil {
				return nil, fmt.Errorf("indexes: decode %s: %w: %v", path, apperr.ErrCorruptDocument, err)
			}
		}
		if err := fn(&v); err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("indexes: encode %s: %w", path, err)
		}
		return data, nil
	})
}

// Embeddings loads the embeddings index.
func (r *Repository) Embeddings(ctx context.Context) (EmbeddingsIndex, error) {
	idx, err := load[EmbeddingsIndex](ctx, r.store, PathEmbeddings)
	if err != nil {
		return idx, err
	}
	if idx.Records == nil {
		idx.Records = make(map[string]EmbeddingRecord)
	}
	return idx, nil
}

// MutateEmbeddings applies fn to the embeddings index under retry.
func (r *Repository) MutateEmbeddings(ctx context.Context, fn func(*EmbeddingsIndex) error) error {
	return mutate(ctx, r.retry, PathEmbeddings, func(idx *EmbeddingsIndex) error {
		if idx.Records == nil {
			idx.Records = make(map[string]EmbeddingRecord)
		}
		return fn(idx)
	})
}

// Backlinks loads the backlinks index.
func (r *Repository) Backlinks(ctx context.Context) (BacklinksIndex, error) {
	idx, err := load[BacklinksIndex](ctx, r.store, PathBacklinks)
	if err != nil {
		return idx, err
	}
	if idx.Links == nil {
		idx.Links = make(map[string][]BacklinkEntry)
	}
	return idx, nil
}

// MutateBacklinks applies fn to the backlinks index under retry.
func (r *Repository) MutateBacklinks(ctx context.Context, fn func(*BacklinksIndex) error) error {
	return mutate(ctx, r.retry, PathBacklinks, func(idx *BacklinksIndex) error {
		if idx.Links == nil {
			idx.Links = make(map[string][]BacklinkEntry)
		}
		return fn(idx)
	})
}

// Clusters loads the clusters index.
func (r *Repository) Clusters(ctx context.Context) (ClustersIndex, error) {
	idx, err := load[ClustersIndex](ctx, r.store, PathClusters)
	if err != nil {
		return idx, err
	}
	if idx.Clusters == nil {
		idx.Clusters = make(map[string]Cluster)
	}
	return idx, nil
}

// ReplaceClusters wholesale replaces the clusters index.
func (r *Repository) ReplaceClusters(ctx context.Context, next ClustersIndex) error {
	return mutate(ctx, r.retry, PathClusters, func(idx *ClustersIndex) error {
		*idx = next
		return nil
	})
}

// Tensions loads the tensions index.
func (r *Repository) Tensions(ctx context.Context) (TensionsIndex, error) {
	return load[TensionsIndex](ctx, r.store, PathTensions)
}

// ReplaceTensions wholesale replaces the tensions index.
func (r *Repository) ReplaceTensions(ctx context.Context, next TensionsIndex) error {
	return mutate(ctx, r.retry, PathTensions, func(idx *TensionsIndex) error {
		*idx = next
		return nil
	})
}

// Decay loads the decay index.
func (r *Repository) Decay(ctx context.Context) (DecayIndex, error) {
	idx, err := load[DecayIndex](ctx, r.store, PathDecay)
	if err != nil {
		return idx, err
	}
	if idx.Records == nil {
		idx.Records = make(map[string]DecayRecord)
	}
	return idx, nil
}

// ReplaceDecay wholesale replaces the decay index.
func (r *Repository) ReplaceDecay(ctx context.Context, next DecayIndex) error {
	return mutate(ctx, r.retry, PathDecay, func(idx *DecayIndex) error {
		*idx = next
		return nil
	})
}

// Relations loads the relations index.
func (r *Repository) Relations(ctx context.Context) (RelationsIndex, error) {
	idx, err := load[RelationsIndex](ctx, r.store, PathRelations)
	if err != nil {
		return idx, err
	}
	if idx.Relations == nil {
		idx.Relations = make(map[string]TypedRelation)
	}
	return idx, nil
}

// MutateRelations applies fn to the relations index under retry.
func (r *Repository) MutateRelations(ctx context.Context, fn func(*RelationsIndex) error) error {
	return mutate(ctx, r.retry, PathRelations, func(idx *RelationsIndex) error {
		if idx.Relations == nil {
			idx.Relations = make(map[string]TypedRelation)
		}
		return fn(idx)
	})
}

// Explorations loads the explorations index.
func (r *Repository) Explorations(ctx context.Context) (ExplorationsIndex, error) {
	return load[ExplorationsIndex](ctx, r.store, PathExplorations)
}

// ReplaceExplorations wholesale replaces the explorations index.
func (r *Repository) ReplaceExplorations(ctx context.Context, next ExplorationsIndex) error {
	return mutate(ctx, r.retry, PathExplorations, func(idx *ExplorationsIndex) error {
		*idx = next
		return nil
	})
}

// Snapshots loads the snapshots index.
func (r *Repository) Snapshots(ctx context.Context) (SnapshotsIndex, error) {
	return load[SnapshotsIndex](ctx, r.store, PathSnapshots)
}

// AppendSnapshot appends snap to the snapshot series, assigning it the
// next sequential id, and returns it as stored.
func (r *Repository) AppendSnapshot(ctx context.Context, snap GraphSnapshot) (GraphSnapshot, error) {
	var stored GraphSnapshot
	err := mutate(ctx, r.retry, PathSnapshots, func(idx *SnapshotsIndex) error {
		stored = snap
		stored.ID = fmt.Sprintf("snapshot-%d", len(idx.Snapshots))
		idx.Snapshots = append(idx.Snapshots, stored)
		return nil
	})
	if err != nil {
		return GraphSnapshot{}, err
	}
	return stored, nil
}
