// Package cluster implements k-means topic clustering over the
// embeddings index, with k-means++ seeding and automatic k selection.
package cluster

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/starford/ansuz/internal/indexes"
)

// Options configures one clustering pass.
type Options struct {
	// K forces the cluster count; 0 selects automatically via ChooseK.
	K int
	// KMin and KMax bound automatic selection. KMin is also the minimum
	// number of notes worth clustering at all.
	KMin, KMax int
	// MaxIterations bounds Lloyd's iteration.
	MaxIterations int
	// Now stamps the produced clusters.
	Now time.Time
	// Rand drives seeding. Nil uses the global source; tests inject a
	// fixed seed.
	Rand *rand.Rand
}

// ChooseK selects a cluster count for n points: 0 when n < min,
// otherwise floor(sqrt(n/2)) clamped to [min, max].
func ChooseK(n, min, max int) int {
	if n < min {
		return 0
	}
	k := int(math.Floor(math.Sqrt(float64(n) / 2)))
	if k < min {
		k = min
	}
	if k > max {
		k = max
	}
	return k
}

// ClusterEmbeddings partitions the embedded notes into topic clusters.
// Fewer notes than opts.KMin yield an empty result. Clusters are named
// cluster-<i> by seeding order, member ids are sorted, and clusters left
// with zero members are dropped.
func ClusterEmbeddings(idx indexes.EmbeddingsIndex, opts Options) []indexes.Cluster {
	ids := make([]string, 0, len(idx.Records))
	for id := range idx.Records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// Drop empty vectors and dimension strays up front; mixed dimensions
	// would poison every distance below.
	dim := 0
	kept := ids[:0]
	for _, id := range ids {
		v := idx.Records[id].Vector
		if len(v) == 0 {
			continue
		}
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim {
			continue
		}
		kept = append(kept, id)
	}
	ids = kept

	k := opts.K
	if k <= 0 {
		k = ChooseK(len(ids), opts.KMin, opts.KMax)
	}
	if k <= 0 || len(ids) < opts.KMin {
		return nil
	}
	if k > len(ids) {
		k = len(ids)
	}

	points := make([][]float64, len(ids))
	for i, id := range ids {
		points[i] = idx.Records[id].Vector
	}

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	centroids := seed(points, k, rng)
	assignment := lloyd(points, centroids, opts.MaxIterations)

	members := make(map[int][]string, k)
	for i, c := range assignment {
		members[c] = append(members[c], ids[i])
	}

	var out []indexes.Cluster
	for i := 0; i < k; i++ {
		ms := members[i]
		if len(ms) == 0 {
			continue
		}
		sort.Strings(ms)
		out = append(out, indexes.Cluster{
			ID:        fmt.Sprintf("cluster-%d", i),
			Centroid:  centroids[i],
			MemberIDs: ms,
			CreatedAt: opts.Now,
			UpdatedAt: opts.Now,
		})
	}
	return out
}

// seed picks k initial centroids with k-means++: the first uniformly at
// random, each subsequent one sampled with probability proportional to
// its squared distance to the nearest already-chosen centroid.
func seed(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	first := points[rng.IntN(len(points))]
	centroids = append(centroids, clone(first))

	dist := make([]float64, len(points))
	for len(centroids) < k {
		var total float64
		for i, p := range points {
			d := sqDist(p, centroids[len(centroids)-1])
			if len(centroids) == 1 || d < dist[i] {
				dist[i] = d
			}
			total += dist[i]
		}
		if total == 0 {
			// All remaining points coincide with a centroid; duplicate one
			// so downstream indexing stays valid. The duplicates end up
			// empty and are dropped.
			centroids = append(centroids, clone(centroids[0]))
			continue
		}
		// Weighted sampling via running cumulative sum.
		target := rng.Float64() * total
		var cum float64
		chosen := len(points) - 1
		for i := range points {
			cum += dist[i]
			if cum >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, clone(points[chosen]))
	}
	return centroids
}

// lloyd iterates assignment and centroid recomputation until a full pass
// produces no assignment change or maxIter is reached. A centroid with no
// assigned points keeps its prior value; it is never reseeded mid-run.
func lloyd(points, centroids [][]float64, maxIter int) []int {
	if maxIter <= 0 {
		maxIter = 50
	}
	assignment := make([]int, len(points))
	for i := range assignment {
		assignment[i] = -1
	}

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, p := range points {
			best, bestD := 0, math.Inf(1)
			for c, cent := range centroids {
				if d := sqDist(p, cent); d < bestD {
					best, bestD = c, d
				}
			}
			if assignment[i] != best {
				assignment[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		counts := make([]int, len(centroids))
		sums := make([][]float64, len(centroids))
		for i, p := range points {
			c := assignment[i]
			if sums[c] == nil {
				sums[c] = make([]float64, len(p))
			}
			for j, v := range p {
				sums[c][j] += v
			}
			counts[c]++
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			mean := make([]float64, len(sums[c]))
			for j, v := range sums[c] {
				mean[j] = v / float64(counts[c])
			}
			centroids[c] = mean
		}
	}
	return assignment
}

func sqDist(a, b []float64) float64 {
	var d float64
	for i := range a {
		diff := a[i] - b[i]
		d += diff * diff
	}
	return d
}

func clone(v []float64) []float64 {
	return append([]float64(nil), v...)
}
