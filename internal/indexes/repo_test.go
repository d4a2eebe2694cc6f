package indexes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/store"
)

func testRepo(t *testing.T) (*Repository, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	rt := store.NewRetrier(mem)
	rt.Sleep = func(context.Context, time.Duration) error { return nil }
	return NewRepository(mem, rt), mem
}

func TestLoadMissingYieldsEmptyIndex(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	emb, err := repo.Embeddings(ctx)
	if err != nil {
		t.Fatalf("Embeddings: %v", err)
	}
	if emb.Records == nil || len(emb.Records) != 0 {
		t.Errorf("missing index should load as empty non-nil map: %#v", emb.Records)
	}

	bl, err := repo.Backlinks(ctx)
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if bl.Links == nil {
		t.Error("Links map not initialized")
	}
}

func TestLoadCorruptDocument(t *testing.T) {
	repo, mem := testRepo(t)
	ctx := context.Background()
	if _, err := mem.Put(ctx, PathEmbeddings, []byte(`{"records": [1,2]}`), ""); err != nil {
		t.Fatal(err)
	}

	_, err := repo.Embeddings(ctx)
	if !errors.Is(err, apperr.ErrCorruptDocument) {
		t.Fatalf("err = %v, want ErrCorruptDocument", err)
	}
}

func TestMutateRoundTrip(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	err := repo.MutateEmbeddings(ctx, func(idx *EmbeddingsIndex) error {
		idx.Records["n1"] = EmbeddingRecord{NoteID: "n1", Vector: []float64{1, 0}, Model: "m", CreatedAt: now}
		return nil
	})
	if err != nil {
		t.Fatalf("MutateEmbeddings: %v", err)
	}

	idx, err := repo.Embeddings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	rec, ok := idx.Records["n1"]
	if !ok {
		t.Fatal("record n1 missing after mutate")
	}
	if rec.Model != "m" || !rec.CreatedAt.Equal(now) || len(rec.Vector) != 2 {
		t.Errorf("record = %+v", rec)
	}
}

func TestMutateErrorAbortsWrite(t *testing.T) {
	repo, mem := testRepo(t)
	boom := errors.New("boom")

	err := repo.MutateBacklinks(context.Background(), func(*BacklinksIndex) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if mem.Len() != 0 {
		t.Errorf("mutation error still wrote %d documents", mem.Len())
	}
}

func TestReplaceClustersIsWholesale(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first := ClustersIndex{
		Clusters:   map[string]Cluster{"c0": {ID: "c0", MemberIDs: []string{"a", "b"}}},
		ComputedAt: now,
	}
	if err := repo.ReplaceClusters(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := ClustersIndex{
		Clusters:   map[string]Cluster{"c1": {ID: "c1", MemberIDs: []string{"c"}}},
		ComputedAt: now.Add(time.Hour),
	}
	if err := repo.ReplaceClusters(ctx, second); err != nil {
		t.Fatal(err)
	}

	idx, err := repo.Clusters(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, stale := idx.Clusters["c0"]; stale {
		t.Error("replace kept a cluster from the previous pass")
	}
	if _, ok := idx.Clusters["c1"]; !ok {
		t.Error("replacement cluster missing")
	}
}

func TestAppendSnapshotAssignsSequentialIDs(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		snap, err := repo.AppendSnapshot(ctx, GraphSnapshot{Notes: i})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		want := []string{"snapshot-0", "snapshot-1", "snapshot-2"}[i]
		if snap.ID != want {
			t.Errorf("id = %q, want %q", snap.ID, want)
		}
	}

	idx, err := repo.Snapshots(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(idx.Snapshots) != 3 {
		t.Fatalf("snapshots = %d, want 3", len(idx.Snapshots))
	}
	if idx.Snapshots[2].Notes != 2 {
		t.Errorf("last snapshot = %+v", idx.Snapshots[2])
	}
}

func TestPairKeyCanonicalOrder(t *testing.T) {
	if got := PairKey("b", "a"); got != "a|b" {
		t.Errorf("PairKey(b,a) = %q", got)
	}
	if got := PairKey("a", "b"); got != "a|b" {
		t.Errorf("PairKey(a,b) = %q", got)
	}
	a, b := OrderPair("z", "m")
	if a != "m" || b != "z" {
		t.Errorf("OrderPair = %q, %q", a, b)
	}
}
