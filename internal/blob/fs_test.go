package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFSStore_UploadDeleteRoundTrip(t *testing.T) {
	t.Parallel()

	store, err := NewFSStore(filepath.Join(t.TempDir(), "blobs"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(src, []byte("hello blob"), 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}

	url, err := store.Upload(ctx, src, "knowledges/tok_doc.txt")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(url, "file://") {
		t.Errorf("want file:// url, got %q", url)
	}

	name, err := store.ObjectName(url)
	if err != nil {
		t.Fatalf("object name: %v", err)
	}
	if name != "knowledges/tok_doc.txt" {
		t.Errorf("want knowledges/tok_doc.txt, got %q", name)
	}

	if err := store.Delete(ctx, name); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, name); err == nil {
		t.Error("deleting a missing object must fail")
	}
}

func TestFSStore_ObjectNameRejectsForeignURL(t *testing.T) {
	t.Parallel()

	store, err := NewFSStore(filepath.Join(t.TempDir(), "blobs"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	if _, err := store.ObjectName("https://example.com/bucket/obj"); err == nil {
		t.Error("non-file url accepted")
	}
	if _, err := store.ObjectName("file:///somewhere/else/obj"); err == nil {
		t.Error("url outside blob root accepted")
	}
}
