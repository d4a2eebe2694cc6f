// Package decay scores note staleness from link density and cluster
// cohesion.
package decay

import (
	"sort"
	"time"

	"github.com/starford/ansuz/internal/indexes"
	"github.com/starford/ansuz/internal/similarity"
)

// Signal names, in the order they are evaluated and reported.
const (
	ReasonNoLinks        = "no-links"
	ReasonLowLinkDensity = "low-link-density"
	ReasonClusterOutlier = "cluster-outlier"
	ReasonNoCluster      = "no-cluster"
)

// Config carries the decay thresholds.
type Config struct {
	// OutlierThreshold is the cosine similarity to the own cluster
	// centroid below which a note counts as an outlier.
	OutlierThreshold float64
	// ScoreThreshold is the minimum total score for a note to appear in
	// the output at all.
	ScoreThreshold float64
}

// Score evaluates every embedded note against four additive signals and
// returns the records whose total reached cfg.ScoreThreshold. Scores are
// capped at 1.0. cluster-outlier and no-cluster are mutually exclusive
// by construction.
func Score(embeddings indexes.EmbeddingsIndex, backlinks indexes.BacklinksIndex, clusters indexes.ClustersIndex, cfg Config, now time.Time) indexes.DecayIndex {
	out := indexes.DecayIndex{
		Records:    make(map[string]indexes.DecayRecord),
		ComputedAt: now,
	}

	membership := clusterMembership(clusters)

	for id, rec := range embeddings.Records {
		var score float64
		var reasons []string

		links := len(backlinks.Links[id])
		if links == 0 {
			score += 0.4
			reasons = append(reasons, ReasonNoLinks)
		}
		if links < 2 {
			score += 0.2
			reasons = append(reasons, ReasonLowLinkDensity)
		}

		if clusterID, ok := membership[id]; ok {
			sim, err := similarity.Cosine(rec.Vector, clusters.Clusters[clusterID].Centroid)
			// A degenerate centroid or vector gives no measurable
			// cohesion, which adds no signal.
			if err == nil && sim < cfg.OutlierThreshold {
				score += 0.3
				reasons = append(reasons, ReasonClusterOutlier)
			}
		} else {
			score += 0.1
			reasons = append(reasons, ReasonNoCluster)
		}

		if score > 1.0 {
			score = 1.0
		}
		if score >= cfg.ScoreThreshold {
			out.Records[id] = indexes.DecayRecord{
				NoteID:     id,
				Score:      score,
				Reasons:    reasons,
				ComputedAt: now,
			}
		}
	}
	return out
}

// clusterMembership maps each note to its cluster. Should a note appear
// in more than one cluster, the cluster whose id sorts first wins, so the
// resolution is deterministic rather than map-order dependent.
func clusterMembership(clusters indexes.ClustersIndex) map[string]string {
	ids := make([]string, 0, len(clusters.Clusters))
	for id := range clusters.Clusters {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	membership := make(map[string]string)
	for _, cid := range ids {
		for _, noteID := range clusters.Clusters[cid].MemberIDs {
			if _, seen := membership[noteID]; !seen {
				membership[noteID] = cid
			}
		}
	}
	return membership
}
