package catalog

import (
	"context"
	"errors"
	"testing"
)

func openTest(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCatalog_CreateAndList(t *testing.T) {
	t.Parallel()

	c := openTest(t)
	ctx := context.Background()

	first, err := c.CreateCollection(ctx, "kb_first")
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := c.CreateCollection(ctx, "kb_second")
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("collection ids must be unique, both %q", first.ID)
	}

	cols, err := c.Collections(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(cols) != 2 {
		t.Fatalf("want 2 collections, got %d", len(cols))
	}
	// Insertion order is part of the contract.
	if cols[0].Name != "kb_first" || cols[1].Name != "kb_second" {
		t.Errorf("wrong order: %q, %q", cols[0].Name, cols[1].Name)
	}

	n, err := c.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Errorf("want count 2, got %d", n)
	}
}

func TestCatalog_KnowledgeRoundTrip(t *testing.T) {
	t.Parallel()

	c := openTest(t)
	ctx := context.Background()

	col, err := c.CreateCollection(ctx, "kb_doc")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	const url = "https://blobs.example.com/knowledges/abc_report.txt"
	if err := c.AddKnowledge(ctx, url, col.ID); err != nil {
		t.Fatalf("add knowledge: %v", err)
	}

	k, err := c.KnowledgeByURL(ctx, url)
	if err != nil {
		t.Fatalf("knowledge by url: %v", err)
	}
	if k.CollectionID != col.ID {
		t.Errorf("want collection %q, got %q", col.ID, k.CollectionID)
	}

	got, err := c.CollectionByID(ctx, k.CollectionID)
	if err != nil {
		t.Fatalf("collection by id: %v", err)
	}
	if got.Name != "kb_doc" {
		t.Errorf("want kb_doc, got %q", got.Name)
	}
}

func TestCatalog_NotFound(t *testing.T) {
	t.Parallel()

	c := openTest(t)
	ctx := context.Background()

	if _, err := c.KnowledgeByURL(ctx, "https://nope.example.com/x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("knowledge lookup: want ErrNotFound, got %v", err)
	}
	if _, err := c.CollectionByID(ctx, "missing-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("collection lookup: want ErrNotFound, got %v", err)
	}
	if err := c.DeleteCollection(ctx, "missing-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete: want ErrNotFound, got %v", err)
	}
}

func TestCatalog_DeleteCollection(t *testing.T) {
	t.Parallel()

	c := openTest(t)
	ctx := context.Background()

	col, err := c.CreateCollection(ctx, "kb_gone")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	const url = "https://blobs.example.com/knowledges/xyz_gone.txt"
	if err := c.AddKnowledge(ctx, url, col.ID); err != nil {
		t.Fatalf("add knowledge: %v", err)
	}

	if err := c.DeleteCollection(ctx, col.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := c.CollectionByID(ctx, col.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("collection survived delete: %v", err)
	}
	if _, err := c.KnowledgeByURL(ctx, url); !errors.Is(err, ErrNotFound) {
		t.Errorf("knowledge row survived delete: %v", err)
	}
	n, err := c.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("want empty catalog, got %d", n)
	}
}

func TestCatalog_DuplicateURLRejected(t *testing.T) {
	t.Parallel()

	c := openTest(t)
	ctx := context.Background()

	col, err := c.CreateCollection(ctx, "kb_dup")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	const url = "https://blobs.example.com/knowledges/dup.txt"
	if err := c.AddKnowledge(ctx, url, col.ID); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := c.AddKnowledge(ctx, url, col.ID); err == nil {
		t.Error("duplicate url accepted")
	}
}
