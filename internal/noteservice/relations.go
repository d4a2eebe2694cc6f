package noteservice

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/indexes"
	"github.com/starford/ansuz/internal/similarity"
)

// ClassifyRelation upserts the typed relation between two notes, keyed
// by canonical pair key. Both notes must be embedded; the recorded
// similarity is looked up from their vectors. Relations never expire.
func (s *Service) ClassifyRelation(ctx context.Context, a, b string, relType indexes.RelationType, reason string) (*indexes.TypedRelation, error) {
	if a == "" || b == "" {
		return nil, apperr.Validation("both note ids are required")
	}
	if a == b {
		return nil, apperr.Validation("cannot relate a note to itself")
	}
	if !relType.Valid() {
		return nil, apperr.Validation("unknown relation type %q", relType)
	}

	emb, err := s.repo.Embeddings(ctx)
	if err != nil {
		return nil, err
	}
	ra, okA := emb.Records[a]
	rb, okB := emb.Records[b]
	if !okA || !okB {
		return nil, fmt.Errorf("relation %s: %w", indexes.PairKey(a, b), apperr.ErrNotFound)
	}

	// A degenerate vector leaves the similarity at zero rather than
	// blocking the classification.
	sim, _ := similarity.Cosine(ra.Vector, rb.Vector)

	na, nb := indexes.OrderPair(a, b)
	rel := indexes.TypedRelation{
		NoteA:        na,
		NoteB:        nb,
		Type:         relType,
		Reason:       reason,
		Similarity:   sim,
		ClassifiedAt: s.now(),
	}
	err = s.repo.MutateRelations(ctx, func(idx *indexes.RelationsIndex) error {
		idx.Relations[indexes.PairKey(na, nb)] = rel
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

// Relations returns every classified relation in canonical key order.
func (s *Service) Relations(ctx context.Context) ([]indexes.TypedRelation, error) {
	idx, err := s.repo.Relations(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(idx.Relations))
	for k := range idx.Relations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]indexes.TypedRelation, 0, len(keys))
	for _, k := range keys {
		out = append(out, idx.Relations[k])
	}
	return out, nil
}

// RelationCandidate is a linked note pair that has no classification yet.
type RelationCandidate struct {
	NoteA      string  `json:"note_a"`
	NoteB      string  `json:"note_b"`
	Similarity float64 `json:"similarity"`
}

// UnclassifiedPairs returns the linked pairs absent from the relations
// index, in canonical key order.
func (s *Service) UnclassifiedPairs(ctx context.Context) ([]RelationCandidate, error) {
	var bl indexes.BacklinksIndex
	var rel indexes.RelationsIndex
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { bl, err = s.repo.Backlinks(gctx); return })
	g.Go(func() (err error) { rel, err = s.repo.Relations(gctx); return })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]RelationCandidate)
	for source, entries := range bl.Links {
		for _, e := range entries {
			key := indexes.PairKey(source, e.TargetID)
			if _, classified := rel.Relations[key]; classified {
				continue
			}
			a, b := indexes.OrderPair(source, e.TargetID)
			seen[key] = RelationCandidate{NoteA: a, NoteB: b, Similarity: e.Similarity}
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]RelationCandidate, 0, len(keys))
	for _, k := range keys {
		out = append(out, seen[k])
	}
	return out, nil
}
