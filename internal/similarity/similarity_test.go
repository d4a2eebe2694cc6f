package similarity

import (
	"errors"
	"math"
	"testing"

	"github.com/starford/ansuz/internal/indexes"
)

func TestCosineIdentical(t *testing.T) {
	v := []float64{0.3, -0.7, 1.2}
	sim, err := Cosine(v, v)
	if err != nil {
		t.Fatalf("Cosine: %v", err)
	}
	if math.Abs(sim-1) > 1e-12 {
		t.Errorf("sim = %v, want 1", sim)
	}
}

func TestCosineOrthogonalAndOpposed(t *testing.T) {
	sim, err := Cosine([]float64{1, 0}, []float64{0, 1})
	if err != nil || math.Abs(sim) > 1e-12 {
		t.Errorf("orthogonal: sim=%v err=%v", sim, err)
	}
	sim, err = Cosine([]float64{1, 0}, []float64{-2, 0})
	if err != nil || math.Abs(sim+1) > 1e-12 {
		t.Errorf("opposed: sim=%v err=%v", sim, err)
	}
}

func TestCosineSymmetric(t *testing.T) {
	u := []float64{1, 2, 3}
	v := []float64{-2, 0.5, 4}
	a, _ := Cosine(u, v)
	b, _ := Cosine(v, u)
	if a != b {
		t.Errorf("Cosine not symmetric: %v vs %v", a, b)
	}
}

func TestCosineErrors(t *testing.T) {
	if _, err := Cosine([]float64{1, 2}, []float64{1}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("mismatch: err = %v", err)
	}
	if _, err := Cosine([]float64{0, 0}, []float64{1, 1}); !errors.Is(err, ErrZeroVector) {
		t.Errorf("zero u: err = %v", err)
	}
	if _, err := Cosine([]float64{1, 1}, []float64{0, 0}); !errors.Is(err, ErrZeroVector) {
		t.Errorf("zero v: err = %v", err)
	}
}

func embIndex(vectors map[string][]float64) indexes.EmbeddingsIndex {
	idx := indexes.EmbeddingsIndex{Records: make(map[string]indexes.EmbeddingRecord)}
	for id, v := range vectors {
		idx.Records[id] = indexes.EmbeddingRecord{NoteID: id, Vector: v}
	}
	return idx
}

func TestFindMatchesThresholdAndOrder(t *testing.T) {
	idx := embIndex(map[string][]float64{
		"close":   {1, 0.1},
		"closer":  {1, 0.01},
		"far":     {0, 1},
		"against": {-1, 0},
	})
	target := []float64{1, 0}

	matches := FindMatches(target, idx, 0.9, nil)
	if len(matches) != 2 {
		t.Fatalf("matches = %+v, want 2", matches)
	}
	if matches[0].NoteID != "closer" || matches[1].NoteID != "close" {
		t.Errorf("order = %s, %s", matches[0].NoteID, matches[1].NoteID)
	}
	if matches[0].Similarity < matches[1].Similarity {
		t.Error("not sorted by descending similarity")
	}
}

func TestFindMatchesTiesBreakOnID(t *testing.T) {
	idx := embIndex(map[string][]float64{
		"b": {2, 0},
		"a": {1, 0},
		"c": {3, 0},
	})
	matches := FindMatches([]float64{1, 0}, idx, 0.5, nil)
	if len(matches) != 3 {
		t.Fatalf("matches = %+v", matches)
	}
	for i, want := range []string{"a", "b", "c"} {
		if matches[i].NoteID != want {
			t.Errorf("matches[%d] = %s, want %s", i, matches[i].NoteID, want)
		}
	}
}

func TestFindMatchesExcludesAndSkipsBadRecords(t *testing.T) {
	idx := embIndex(map[string][]float64{
		"self":  {1, 0},
		"other": {1, 0},
		"zero":  {0, 0},
		"short": {1},
	})
	matches := FindMatches([]float64{1, 0}, idx, 0.5, map[string]struct{}{"self": {}})
	if len(matches) != 1 || matches[0].NoteID != "other" {
		t.Fatalf("matches = %+v, want only other", matches)
	}
}

func TestFindMatchesEmptyIndex(t *testing.T) {
	if got := FindMatches([]float64{1, 0}, embIndex(nil), 0.5, nil); len(got) != 0 {
		t.Errorf("matches = %+v, want none", got)
	}
}
