package rag

import (
	"context"
	"errors"
	"testing"
)

// seedCollection creates a collection holding one chunk with the given vector.
func seedCollection(t *testing.T, store *MemoryStore, name string, vec []float32) {
	t.Helper()
	ctx := context.Background()
	if err := store.CreateCollection(ctx, name, uint64(len(vec))); err != nil {
		t.Fatalf("create collection %s: %v", name, err)
	}
	chunk := Chunk{ID: name + "-0", Content: "content of " + name}
	if err := store.Upsert(ctx, name, []Chunk{chunk}, [][]float32{vec}); err != nil {
		t.Fatalf("upsert into %s: %v", name, err)
	}
}

// recordingRefiner captures the shortlist it was handed and delegates to the
// default top-score behaviour.
type recordingRefiner struct {
	shortlist []Candidate
}

func (r *recordingRefiner) Refine(shortlist []Candidate) Candidate {
	r.shortlist = append([]Candidate(nil), shortlist...)
	return shortlist[0]
}

func Test_Selector_EmptyCatalog(t *testing.T) {
	t.Parallel()

	sel, err := NewSelector(NewMemoryStore(), nil)
	if err != nil {
		t.Fatalf("new selector: %v", err)
	}

	_, err = sel.Select(context.Background(), []float32{1, 0}, nil)
	if !errors.Is(err, ErrNoCollections) {
		t.Fatalf("want ErrNoCollections, got %v", err)
	}
}

func Test_Selector_SingleCollection(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	seedCollection(t, store, "kb_only", []float32{0, 1})

	sel, err := NewSelector(store, nil)
	if err != nil {
		t.Fatalf("new selector: %v", err)
	}

	// Even an orthogonal query must route to the single collection.
	got, err := sel.Select(context.Background(), []float32{1, 0}, []CollectionRef{{ID: "c1", Name: "kb_only"}})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got.CollectionID != "c1" || got.CollectionName != "kb_only" {
		t.Errorf("want c1/kb_only, got %s/%s", got.CollectionID, got.CollectionName)
	}
}

func Test_Selector_PicksMostSimilar(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	seedCollection(t, store, "kb_a", []float32{1, 0, 0})
	seedCollection(t, store, "kb_b", []float32{0, 1, 0})
	seedCollection(t, store, "kb_c", []float32{0, 0, 1})

	sel, err := NewSelector(store, nil)
	if err != nil {
		t.Fatalf("new selector: %v", err)
	}

	refs := []CollectionRef{
		{ID: "a", Name: "kb_a"},
		{ID: "b", Name: "kb_b"},
		{ID: "c", Name: "kb_c"},
	}
	got, err := sel.Select(context.Background(), []float32{0, 0.9, 0.1}, refs)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got.CollectionID != "b" {
		t.Errorf("want collection b, got %s", got.CollectionID)
	}
}

func Test_Selector_ShortlistNeverExceedsThree(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	refs := make([]CollectionRef, 0, 5)
	vecs := [][]float32{{1, 0}, {0.9, 0.1}, {0.8, 0.2}, {0.5, 0.5}, {0, 1}}
	for i, v := range vecs {
		name := string(rune('a'+i)) + "_col"
		seedCollection(t, store, name, v)
		refs = append(refs, CollectionRef{ID: name, Name: name})
	}

	rec := &recordingRefiner{}
	sel, err := NewSelector(store, rec)
	if err != nil {
		t.Fatalf("new selector: %v", err)
	}

	if _, err := sel.Select(context.Background(), []float32{1, 0}, refs); err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rec.shortlist) != ShortlistSize {
		t.Errorf("want shortlist of %d, got %d", ShortlistSize, len(rec.shortlist))
	}

	// With fewer collections than the shortlist size, the shortlist shrinks.
	rec2 := &recordingRefiner{}
	sel2, _ := NewSelector(store, rec2)
	if _, err := sel2.Select(context.Background(), []float32{1, 0}, refs[:2]); err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rec2.shortlist) != 2 {
		t.Errorf("want shortlist of 2, got %d", len(rec2.shortlist))
	}
}

func Test_Selector_ChoiceBelongsToCatalog(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	seedCollection(t, store, "kb_x", []float32{1, 0})
	seedCollection(t, store, "kb_y", []float32{0, 1})

	sel, _ := NewSelector(store, nil)
	refs := []CollectionRef{{ID: "x", Name: "kb_x"}, {ID: "y", Name: "kb_y"}}

	got, err := sel.Select(context.Background(), []float32{0.3, 0.7}, refs)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got.CollectionID != "x" && got.CollectionID != "y" {
		t.Errorf("chosen id %q not in catalog", got.CollectionID)
	}
}

func Test_Selector_TiesBreakByInsertionOrder(t *testing.T) {
	t.Parallel()

	// Identical vectors in both collections produce identical scores; the
	// stable sort must keep the first-inserted collection in front.
	store := NewMemoryStore()
	seedCollection(t, store, "kb_first", []float32{1, 1})
	seedCollection(t, store, "kb_second", []float32{1, 1})

	sel, _ := NewSelector(store, nil)
	refs := []CollectionRef{{ID: "first", Name: "kb_first"}, {ID: "second", Name: "kb_second"}}

	for i := 0; i < 5; i++ {
		got, err := sel.Select(context.Background(), []float32{1, 1}, refs)
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if got.CollectionID != "first" {
			t.Fatalf("iteration %d: tie broken to %q, want first", i, got.CollectionID)
		}
	}
}

func Test_Selector_EmptyCollectionRanksLast(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	seedCollection(t, store, "kb_full", []float32{1, 0})
	if err := store.CreateCollection(context.Background(), "kb_empty", 2); err != nil {
		t.Fatalf("create empty collection: %v", err)
	}

	sel, _ := NewSelector(store, nil)
	refs := []CollectionRef{{ID: "empty", Name: "kb_empty"}, {ID: "full", Name: "kb_full"}}

	got, err := sel.Select(context.Background(), []float32{-1, 0}, refs)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	// Even a negative-similarity hit outranks a collection with no points.
	if got.CollectionID != "full" {
		t.Errorf("want full, got %s", got.CollectionID)
	}
}
