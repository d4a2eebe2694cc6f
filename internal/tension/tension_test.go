package tension

import (
	"testing"
	"time"

	"github.com/starford/ansuz/internal/indexes"
)

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func embeddings(vectors map[string][]float64) indexes.EmbeddingsIndex {
	idx := indexes.EmbeddingsIndex{Records: make(map[string]indexes.EmbeddingRecord)}
	for id, v := range vectors {
		idx.Records[id] = indexes.EmbeddingRecord{NoteID: id, Vector: v}
	}
	return idx
}

func clustersOf(members map[string][]string) indexes.ClustersIndex {
	idx := indexes.ClustersIndex{Clusters: make(map[string]indexes.Cluster)}
	for id, ms := range members {
		idx.Clusters[id] = indexes.Cluster{ID: id, MemberIDs: ms}
	}
	return idx
}

func TestDetectDivergentPair(t *testing.T) {
	emb := embeddings(map[string][]float64{
		"b-note": {1, 0},
		"a-note": {0, 1}, // orthogonal to b-note
		"c-note": {1, 0.05},
	})
	cl := clustersOf(map[string][]string{"c0": {"a-note", "b-note", "c-note"}})

	out := Detect(emb, cl, Config{Threshold: 0.35}, testNow)
	if len(out.Tensions) != 2 {
		t.Fatalf("tensions = %+v, want a-note vs b-note and a-note vs c-note", out.Tensions)
	}
	for i, tn := range out.Tensions {
		if tn.NoteA >= tn.NoteB {
			t.Errorf("tension %d not canonically ordered: %s / %s", i, tn.NoteA, tn.NoteB)
		}
		if tn.ClusterID != "c0" {
			t.Errorf("cluster = %s", tn.ClusterID)
		}
		if !tn.DetectedAt.Equal(testNow) {
			t.Errorf("detected at = %v", tn.DetectedAt)
		}
	}
	if out.Tensions[0].ID != "tension-0" || out.Tensions[1].ID != "tension-1" {
		t.Errorf("ids = %s, %s", out.Tensions[0].ID, out.Tensions[1].ID)
	}
}

func TestDetectCohesiveClusterEmpty(t *testing.T) {
	emb := embeddings(map[string][]float64{
		"a": {1, 0},
		"b": {0.95, 0.1},
	})
	cl := clustersOf(map[string][]string{"c0": {"a", "b"}})

	out := Detect(emb, cl, Config{Threshold: 0.35}, testNow)
	if len(out.Tensions) != 0 {
		t.Errorf("tensions = %+v, want none", out.Tensions)
	}
	if !out.ComputedAt.Equal(testNow) {
		t.Errorf("computed at = %v", out.ComputedAt)
	}
}

func TestDetectSkipsSingletonClusters(t *testing.T) {
	emb := embeddings(map[string][]float64{"a": {1, 0}})
	cl := clustersOf(map[string][]string{"c0": {"a"}})
	if out := Detect(emb, cl, Config{Threshold: 0.35}, testNow); len(out.Tensions) != 0 {
		t.Errorf("tensions = %+v", out.Tensions)
	}
}

func TestDetectSkipsMissingEmbeddings(t *testing.T) {
	emb := embeddings(map[string][]float64{
		"a": {1, 0},
		"b": {0, 1},
	})
	cl := clustersOf(map[string][]string{"c0": {"a", "b", "ghost"}})

	out := Detect(emb, cl, Config{Threshold: 0.35}, testNow)
	if len(out.Tensions) != 1 {
		t.Fatalf("tensions = %+v, want only the a/b pair", out.Tensions)
	}
	if out.Tensions[0].NoteA != "a" || out.Tensions[0].NoteB != "b" {
		t.Errorf("pair = %s/%s", out.Tensions[0].NoteA, out.Tensions[0].NoteB)
	}
}

func TestDetectPairsOnlyWithinClusters(t *testing.T) {
	// a and b diverge but live in different clusters; no tension.
	emb := embeddings(map[string][]float64{
		"a": {1, 0}, "a2": {0.99, 0.01},
		"b": {0, 1}, "b2": {0.01, 0.99},
	})
	cl := clustersOf(map[string][]string{
		"c0": {"a", "a2"},
		"c1": {"b", "b2"},
	})

	out := Detect(emb, cl, Config{Threshold: 0.35}, testNow)
	if len(out.Tensions) != 0 {
		t.Errorf("tensions crossed cluster boundaries: %+v", out.Tensions)
	}
}

func TestDetectSequentialIDsAcrossClusters(t *testing.T) {
	emb := embeddings(map[string][]float64{
		"a": {1, 0}, "b": {0, 1},
		"c": {1, 0}, "d": {-1, 0.1},
	})
	cl := clustersOf(map[string][]string{
		"c1": {"c", "d"},
		"c0": {"a", "b"},
	})

	out := Detect(emb, cl, Config{Threshold: 0.35}, testNow)
	if len(out.Tensions) != 2 {
		t.Fatalf("tensions = %+v", out.Tensions)
	}
	// Clusters are walked in sorted id order, so c0's pair claims tension-0.
	if out.Tensions[0].ClusterID != "c0" || out.Tensions[0].ID != "tension-0" {
		t.Errorf("first = %+v", out.Tensions[0])
	}
	if out.Tensions[1].ClusterID != "c1" || out.Tensions[1].ID != "tension-1" {
		t.Errorf("second = %+v", out.Tensions[1])
	}
}
