// Package similarity implements cosine similarity and the threshold
// nearest-neighbor scan over the embeddings index. Pure functions, no I/O.
package similarity

import (
	"errors"
	"math"
	"sort"

	"github.com/starford/ansuz/internal/indexes"
)

var (
	// ErrDimensionMismatch reports vectors of different lengths.
	ErrDimensionMismatch = errors.New("similarity: dimension mismatch")
	// ErrZeroVector reports a vector with zero magnitude.
	ErrZeroVector = errors.New("similarity: zero-magnitude vector")
)

// Cosine returns dot(u,v) / (|u||v|), in [-1,1].
func Cosine(u, v []float64) (float64, error) {
	if len(u) != len(v) {
		return 0, ErrDimensionMismatch
	}
	var dot, nu, nv float64
	for i := range u {
		dot += u[i] * v[i]
		nu += u[i] * u[i]
		nv += v[i] * v[i]
	}
	if nu == 0 || nv == 0 {
		return 0, ErrZeroVector
	}
	sim := dot / (math.Sqrt(nu) * math.Sqrt(nv))
	// Clamp float drift so callers can rely on the [-1,1] range.
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}
	return sim, nil
}

// Match is one nearest-neighbor hit.
type Match struct {
	NoteID     string  `json:"note_id"`
	Similarity float64 `json:"similarity"`
}

// FindMatches linearly scans every embedding, skipping ids in exclude and
// records whose similarity to target cannot be computed, and returns the
// entries at or above threshold sorted by descending similarity (ties
// break on note id for deterministic output).
func FindMatches(target []float64, idx indexes.EmbeddingsIndex, threshold float64, exclude map[string]struct{}) []Match {
	var out []Match
	for id, rec := range idx.Records {
		if _, skip := exclude[id]; skip {
			continue
		}
		sim, err := Cosine(target, rec.Vector)
		if err != nil {
			continue
		}
		if sim >= threshold {
			out = append(out, Match{NoteID: id, Similarity: sim})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].NoteID < out[j].NoteID
	})
	return out
}
