// Package tension detects intra-cluster note pairs that diverge
// semantically despite sharing a topic cluster.
package tension

import (
	"fmt"
	"sort"
	"time"

	"github.com/starford/ansuz/internal/indexes"
	"github.com/starford/ansuz/internal/similarity"
)

// Config carries the tension threshold.
type Config struct {
	// Threshold is the cosine similarity below which a member pair
	// becomes a tension.
	Threshold float64
}

// Detect evaluates every unordered member pair of every cluster with at
// least two members. Pairs whose similarity falls below cfg.Threshold
// become tensions with sequential ids and canonically ordered note ids.
// Pairs with a missing embedding are skipped, not errored. The result
// wholesale-replaces the prior index.
func Detect(embeddings indexes.EmbeddingsIndex, clusters indexes.ClustersIndex, cfg Config, now time.Time) indexes.TensionsIndex {
	out := indexes.TensionsIndex{ComputedAt: now}

	clusterIDs := make([]string, 0, len(clusters.Clusters))
	for id := range clusters.Clusters {
		clusterIDs = append(clusterIDs, id)
	}
	sort.Strings(clusterIDs)

	seq := 0
	for _, cid := range clusterIDs {
		members := clusters.Clusters[cid].MemberIDs
		if len(members) < 2 {
			continue
		}
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				ra, okA := embeddings.Records[members[i]]
				rb, okB := embeddings.Records[members[j]]
				if !okA || !okB {
					continue
				}
				sim, err := similarity.Cosine(ra.Vector, rb.Vector)
				if err != nil {
					continue
				}
				if sim < cfg.Threshold {
					a, b := indexes.OrderPair(members[i], members[j])
					out.Tensions = append(out.Tensions, indexes.Tension{
						ID:         fmt.Sprintf("tension-%d", seq),
						NoteA:      a,
						NoteB:      b,
						Similarity: sim,
						ClusterID:  cid,
						DetectedAt: now,
					})
					seq++
				}
			}
		}
	}
	return out
}
