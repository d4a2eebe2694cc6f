package noteservice_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/indexes"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/noteservice"
	"github.com/starford/ansuz/internal/store"
	"github.com/starford/ansuz/internal/testutil"
)

func indexRepo(mem *store.Memory) *indexes.Repository {
	rt := store.NewRetrier(mem)
	rt.Sleep = func(context.Context, time.Duration) error { return nil }
	return indexes.NewRepository(mem, rt)
}

func TestCaptureNoteFirstNote(t *testing.T) {
	emb := &testutil.FakeEmbedder{Vectors: map[string][]float64{
		"the first thought": {1, 0},
	}}
	svc, mem := testutil.NewService(t, emb)
	ctx := context.Background()

	res, err := svc.CaptureNote(ctx, "the first thought", "")
	if err != nil {
		t.Fatalf("CaptureNote: %v", err)
	}
	if res.NoteID == "" || res.Type != models.TypeNote {
		t.Errorf("result = %+v", res)
	}
	if res.LinkedNotes == nil || len(res.LinkedNotes) != 0 {
		t.Errorf("linked notes = %#v, want empty non-nil", res.LinkedNotes)
	}

	// Note document, backlinks index, embeddings index.
	if mem.Len() != 3 {
		t.Errorf("documents = %d, want 3", mem.Len())
	}

	doc, err := mem.Get(ctx, models.NotePath(res.NoteID))
	if err != nil {
		t.Fatalf("note doc: %v", err)
	}
	var note models.Note
	if err := json.Unmarshal(doc.Data, &note); err != nil {
		t.Fatal(err)
	}
	if note.Content != "the first thought" || note.ID != res.NoteID {
		t.Errorf("stored note = %+v", note)
	}

	embIdx, err := indexRepo(mem).Embeddings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	rec, ok := embIdx.Records[res.NoteID]
	if !ok {
		t.Fatal("embedding record missing")
	}
	if rec.Model != "test-embed" || len(rec.Vector) != 2 {
		t.Errorf("record = %+v", rec)
	}
}

func TestCaptureNoteLinksSimilarNotes(t *testing.T) {
	emb := &testutil.FakeEmbedder{Vectors: map[string][]float64{
		"notes about runes":      {1, 0},
		"more notes about runes": {1, 0},
		"unrelated cooking tips": {0, 1},
	}}
	svc, mem := testutil.NewService(t, emb)
	ctx := context.Background()

	first, err := svc.CaptureNote(ctx, "notes about runes", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CaptureNote(ctx, "unrelated cooking tips", ""); err != nil {
		t.Fatal(err)
	}

	res, err := svc.CaptureNote(ctx, "more notes about runes", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.LinkedNotes) != 1 {
		t.Fatalf("linked = %+v, want only the identical-direction note", res.LinkedNotes)
	}
	if res.LinkedNotes[0].NoteID != first.NoteID {
		t.Errorf("linked to %s, want %s", res.LinkedNotes[0].NoteID, first.NoteID)
	}
	if res.LinkedNotes[0].Similarity != 1.0 {
		t.Errorf("similarity = %v, want 1.0", res.LinkedNotes[0].Similarity)
	}

	// The stored backlinks must hold both directions.
	bl, err := indexRepo(mem).Backlinks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(bl.Links[first.NoteID]) != 1 || len(bl.Links[res.NoteID]) != 1 {
		t.Errorf("backlinks = %+v, want symmetric pair", bl.Links)
	}
}

func TestCaptureNoteProviderFailureWritesNothing(t *testing.T) {
	emb := &testutil.FakeEmbedder{} // no canned vectors: every Embed fails
	svc, mem := testutil.NewService(t, emb)

	_, err := svc.CaptureNote(context.Background(), "doomed note", "")
	var pe *apperr.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want ProviderError", err)
	}
	if mem.Len() != 0 {
		t.Errorf("documents = %d, want 0 after embed failure", mem.Len())
	}
}

func TestCaptureNoteValidation(t *testing.T) {
	emb := &testutil.FakeEmbedder{}
	svc, mem := testutil.NewService(t, emb)

	cases := []struct{ content, noteType string }{
		{"", ""},
		{"   \r\n ", ""},
		{"fine content", "journal"},
	}
	for _, tc := range cases {
		_, err := svc.CaptureNote(context.Background(), tc.content, tc.noteType)
		var ve *apperr.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("(%q, %q): err = %v, want ValidationError", tc.content, tc.noteType, err)
		}
	}
	if emb.Calls != 0 {
		t.Errorf("embedder called %d times on invalid input", emb.Calls)
	}
	if mem.Len() != 0 {
		t.Errorf("documents = %d, want 0", mem.Len())
	}
}

func TestCaptureNoteEmbeddingsFailureLeavesNoteIntact(t *testing.T) {
	// A persistent version race on the embeddings index fails the capture
	// after the note and links are already committed; Relink repairs it.
	emb := &testutil.FakeEmbedder{Vectors: map[string][]float64{"stranded": {1, 0}}}
	svc, mem := testutil.NewService(t, emb)
	ctx := context.Background()

	mem.PutHook = func(path string, attempt int) error {
		if path == indexes.PathEmbeddings {
			return &apperr.StoreError{Path: path, Status: 503, Err: errors.New("unavailable")}
		}
		return nil
	}

	_, err := svc.CaptureNote(ctx, "stranded", "")
	var se *apperr.StoreError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want StoreError", err)
	}

	// Note document and backlinks landed; only the embeddings doc is absent.
	if mem.Len() != 2 {
		t.Errorf("documents = %d, want 2", mem.Len())
	}
	if _, err := mem.Get(ctx, indexes.PathBacklinks); err != nil {
		t.Errorf("backlinks doc missing: %v", err)
	}
}

func TestFindSimilar(t *testing.T) {
	emb := &testutil.FakeEmbedder{Vectors: map[string][]float64{
		"alpha": {1, 0},
		"beta":  {0.99, 0.01},
		"gamma": {0, 1},
		"query": {1, 0},
	}}
	svc, _ := testutil.NewService(t, emb)
	ctx := context.Background()

	for _, text := range []string{"alpha", "beta", "gamma"} {
		if _, err := svc.CaptureNote(ctx, text, ""); err != nil {
			t.Fatal(err)
		}
	}

	matches, err := svc.FindSimilar(ctx, "query", 10)
	if err != nil {
		t.Fatalf("FindSimilar: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches = %+v, want alpha and beta", matches)
	}
	if matches[0].Similarity < matches[1].Similarity {
		t.Error("matches not sorted by descending similarity")
	}

	limited, err := svc.FindSimilar(ctx, "query", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("limited = %+v", limited)
	}

	none, err := svc.FindSimilar(ctx, "gamma", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 1 {
		// gamma matches itself only.
		t.Errorf("matches = %+v", none)
	}
}

func TestCaptureNotePublishesEvent(t *testing.T) {
	emb := &testutil.FakeEmbedder{Vectors: map[string][]float64{"observed": {1, 0}}}
	mem := store.NewMemory()
	repo := indexRepo(mem)

	var events []string
	notify := func(event string, _ any) { events = append(events, event) }
	svc := noteservice.NewService(mem, repo, emb, testutil.GraphConfig(), notify)

	if _, err := svc.CaptureNote(context.Background(), "observed", ""); err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0] != noteservice.EventNoteCreated {
		t.Errorf("events = %v", events)
	}
}
