package noteservice

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/starford/ansuz/internal/cluster"
	"github.com/starford/ansuz/internal/decay"
	"github.com/starford/ansuz/internal/gaps"
	"github.com/starford/ansuz/internal/graph"
	"github.com/starford/ansuz/internal/indexes"
	"github.com/starford/ansuz/internal/similarity"
	"github.com/starford/ansuz/internal/tension"
)

// Recluster reruns topic clustering over all embeddings and wholesale
// replaces the clusters index. k forces the cluster count; 0 selects
// automatically.
func (s *Service) Recluster(ctx context.Context, k int) (indexes.ClustersIndex, error) {
	emb, err := s.repo.Embeddings(ctx)
	if err != nil {
		return indexes.ClustersIndex{}, err
	}

	now := s.now()
	found := cluster.ClusterEmbeddings(emb, cluster.Options{
		K:             k,
		KMin:          s.cfg.ClusterKMin,
		KMax:          s.cfg.ClusterKMax,
		MaxIterations: s.cfg.ClusterMaxIterations,
		Now:           now,
		Rand:          s.rand,
	})

	idx := indexes.ClustersIndex{
		Clusters:   make(map[string]indexes.Cluster, len(found)),
		ComputedAt: now,
	}
	for _, c := range found {
		idx.Clusters[c.ID] = c
	}
	if err := s.repo.ReplaceClusters(ctx, idx); err != nil {
		return indexes.ClustersIndex{}, err
	}
	s.notify(EventClustersUpdated, map[string]any{"clusters": len(idx.Clusters)})
	return idx, nil
}

// DetectTensions reevaluates intra-cluster divergence and wholesale
// replaces the tensions index.
func (s *Service) DetectTensions(ctx context.Context) (indexes.TensionsIndex, error) {
	var emb indexes.EmbeddingsIndex
	var cl indexes.ClustersIndex
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { emb, err = s.repo.Embeddings(gctx); return })
	g.Go(func() (err error) { cl, err = s.repo.Clusters(gctx); return })
	if err := g.Wait(); err != nil {
		return indexes.TensionsIndex{}, err
	}

	idx := tension.Detect(emb, cl, tension.Config{Threshold: s.cfg.TensionThreshold}, s.now())
	if err := s.repo.ReplaceTensions(ctx, idx); err != nil {
		return indexes.TensionsIndex{}, err
	}
	s.notify(EventTensionsUpdated, map[string]any{"tensions": len(idx.Tensions)})
	return idx, nil
}

// ScoreDecay recomputes staleness scores and wholesale replaces the
// decay index.
func (s *Service) ScoreDecay(ctx context.Context) (indexes.DecayIndex, error) {
	var emb indexes.EmbeddingsIndex
	var bl indexes.BacklinksIndex
	var cl indexes.ClustersIndex
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { emb, err = s.repo.Embeddings(gctx); return })
	g.Go(func() (err error) { bl, err = s.repo.Backlinks(gctx); return })
	g.Go(func() (err error) { cl, err = s.repo.Clusters(gctx); return })
	if err := g.Wait(); err != nil {
		return indexes.DecayIndex{}, err
	}

	idx := decay.Score(emb, bl, cl, decay.Config{
		OutlierThreshold: s.cfg.OutlierThreshold,
		ScoreThreshold:   s.cfg.DecayScoreThreshold,
	}, s.now())
	if err := s.repo.ReplaceDecay(ctx, idx); err != nil {
		return indexes.DecayIndex{}, err
	}
	s.notify(EventDecayUpdated, map[string]any{"decayed": len(idx.Records)})
	return idx, nil
}

// DetectGaps reruns structural-gap detection and wholesale replaces the
// explorations index. metaIDs is the externally supplied "is meta" note
// set; nil skips the meta-note check entirely, while a non-nil empty
// slice means "supplied, and nothing is meta".
func (s *Service) DetectGaps(ctx context.Context, metaIDs []string) (indexes.ExplorationsIndex, error) {
	var emb indexes.EmbeddingsIndex
	var bl indexes.BacklinksIndex
	var cl indexes.ClustersIndex
	var rel indexes.RelationsIndex
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { emb, err = s.repo.Embeddings(gctx); return })
	g.Go(func() (err error) { bl, err = s.repo.Backlinks(gctx); return })
	g.Go(func() (err error) { cl, err = s.repo.Clusters(gctx); return })
	g.Go(func() (err error) { rel, err = s.repo.Relations(gctx); return })
	if err := g.Wait(); err != nil {
		return indexes.ExplorationsIndex{}, err
	}

	var metaSet map[string]struct{}
	if metaIDs != nil {
		metaSet = make(map[string]struct{}, len(metaIDs))
		for _, id := range metaIDs {
			metaSet[id] = struct{}{}
		}
	}

	idx := gaps.Detect(emb, bl, cl, rel, metaSet, gaps.Config{
		CloseClusterThreshold: s.cfg.CloseClusterThreshold,
	}, s.now())
	if err := s.repo.ReplaceExplorations(ctx, idx); err != nil {
		return indexes.ExplorationsIndex{}, err
	}
	s.notify(EventExplorationsUpdated, map[string]any{"suggestions": len(idx.Suggestions)})
	return idx, nil
}

// Relink rebuilds the backlinks index from scratch by scanning every
// embedding pair. This is the corrective pass that repairs the graph
// after a partial ingestion failure; the rebuilt index replaces rather
// than merges.
func (s *Service) Relink(ctx context.Context) (int, error) {
	emb, err := s.repo.Embeddings(ctx)
	if err != nil {
		return 0, err
	}

	ids := sortedRecordIDs(emb)
	var pairs []graph.Pair
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			sim, err := similarity.Cosine(emb.Records[ids[i]].Vector, emb.Records[ids[j]].Vector)
			if err != nil {
				continue
			}
			if sim >= s.cfg.SimilarityThreshold {
				pairs = append(pairs, graph.Pair{A: ids[i], B: ids[j], Similarity: sim})
			}
		}
	}

	rebuilt := graph.Rebuild(pairs)
	err = s.repo.MutateBacklinks(ctx, func(idx *indexes.BacklinksIndex) error {
		*idx = rebuilt
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.notify(EventBacklinksRebuilt, map[string]any{"links": len(pairs)})
	return len(pairs), nil
}
