// Package gaps detects structural holes in the knowledge graph and turns
// them into exploration suggestions.
package gaps

import (
	"fmt"
	"sort"
	"time"

	"github.com/starford/ansuz/internal/indexes"
	"github.com/starford/ansuz/internal/similarity"
)

// Config carries the gap-detection thresholds.
type Config struct {
	// CloseClusterThreshold is the centroid similarity above which two
	// clusters are flagged as close.
	CloseClusterThreshold float64
}

// Detect runs the four independent checks in one pass sharing one
// computedAt stamp and one sequential id counter: orphan notes, close
// cluster pairs, structural holes, and missing meta notes. The meta-note
// check is skipped entirely (not "zero results") when metaIDs is nil.
// The result wholesale-replaces the prior index.
func Detect(
	embeddings indexes.EmbeddingsIndex,
	backlinks indexes.BacklinksIndex,
	clusters indexes.ClustersIndex,
	relations indexes.RelationsIndex,
	metaIDs map[string]struct{},
	cfg Config,
	now time.Time,
) indexes.ExplorationsIndex {
	out := indexes.ExplorationsIndex{ComputedAt: now}
	seq := 0
	next := func() string {
		id := fmt.Sprintf("exploration-%d", seq)
		seq++
		return id
	}

	// Orphan notes: embedded but unlinked.
	noteIDs := sortedKeys(embeddings.Records)
	for _, id := range noteIDs {
		if len(backlinks.Links[id]) == 0 {
			out.Suggestions = append(out.Suggestions, indexes.ExplorationSuggestion{
				ID:     next(),
				Kind:   indexes.SuggestionOrphanNote,
				NoteID: id,
			})
		}
	}

	clusterIDs := sortedKeys(clusters.Clusters)

	// Close clusters: every unordered centroid pair above threshold,
	// canonical cluster-id ordering.
	for i := 0; i < len(clusterIDs); i++ {
		for j := i + 1; j < len(clusterIDs); j++ {
			sim, err := similarity.Cosine(
				clusters.Clusters[clusterIDs[i]].Centroid,
				clusters.Clusters[clusterIDs[j]].Centroid,
			)
			if err != nil {
				continue
			}
			if sim > cfg.CloseClusterThreshold {
				a, b := indexes.OrderPair(clusterIDs[i], clusterIDs[j])
				out.Suggestions = append(out.Suggestions, indexes.ExplorationSuggestion{
					ID:         next(),
					Kind:       indexes.SuggestionCloseClusters,
					ClusterA:   a,
					ClusterB:   b,
					Similarity: sim,
				})
			}
		}
	}

	// Structural holes: a cluster with no classified relation bridging it
	// to the outside. Purely internal relations do not count.
	for _, cid := range clusterIDs {
		members := make(map[string]struct{}, len(clusters.Clusters[cid].MemberIDs))
		for _, m := range clusters.Clusters[cid].MemberIDs {
			members[m] = struct{}{}
		}
		bridged := false
		for _, rel := range relations.Relations {
			_, aIn := members[rel.NoteA]
			_, bIn := members[rel.NoteB]
			if aIn != bIn {
				bridged = true
				break
			}
		}
		if !bridged {
			out.Suggestions = append(out.Suggestions, indexes.ExplorationSuggestion{
				ID:        next(),
				Kind:      indexes.SuggestionStructuralHole,
				ClusterID: cid,
			})
		}
	}

	// Missing meta notes, only when the meta id set was supplied.
	if metaIDs != nil {
		for _, cid := range clusterIDs {
			hasMeta := false
			for _, m := range clusters.Clusters[cid].MemberIDs {
				if _, ok := metaIDs[m]; ok {
					hasMeta = true
					break
				}
			}
			if !hasMeta {
				out.Suggestions = append(out.Suggestions, indexes.ExplorationSuggestion{
					ID:        next(),
					Kind:      indexes.SuggestionMetaNoteMissing,
					ClusterID: cid,
				})
			}
		}
	}

	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
