// Package ingestion turns uploaded documents into searchable collections.
// Each document becomes its own vector store collection plus a blob copy of
// the original file and two catalog rows tying them together. The blob URL
// returned by Ingest is the public handle used to delete the document later.
package ingestion

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/lorehq/lore/internal/blob"
	"github.com/lorehq/lore/internal/catalog"
	"github.com/lorehq/lore/internal/embedder"
	"github.com/lorehq/lore/internal/loader"
	"github.com/lorehq/lore/internal/logging"
	"github.com/lorehq/lore/internal/rag"
)

// Collection names carry this prefix in the vector store so they are easy to
// tell apart from collections owned by other applications.
const collectionPrefix = "kb_"

// Default chunking parameters. Overlap keeps sentences that straddle a chunk
// boundary retrievable from both sides.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Config tunes the ingestion pipeline.
type Config struct {
	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int
	// ChunkOverlap is how many characters consecutive chunks share.
	ChunkOverlap int
}

// Request describes one document to ingest.
type Request struct {
	// Path is the local path of the staged upload.
	Path string
	// Filename is the original name of the uploaded file. Its extension
	// selects the loader and it is kept in the blob object name.
	Filename string
	// Credential optionally overrides the configured embedding API key for
	// this request only.
	Credential string
}

// Result reports what Ingest created.
type Result struct {
	// URL is the blob locator of the stored document.
	URL string
	// CollectionID is the catalog identifier of the new collection.
	CollectionID string
	// CollectionName is the vector store collection name.
	CollectionName string
	// Chunks is how many chunks were indexed.
	Chunks int
}

// Pipeline ingests and deletes documents.
type Pipeline struct {
	embedderFor embedder.Factory
	store       rag.VectorStore
	cat         *catalog.Catalog
	blobs       blob.Store
	cfg         Config
}

// New constructs a Pipeline. Zero config fields fall back to the defaults.
func New(embedderFor embedder.Factory, store rag.VectorStore, cat *catalog.Catalog, blobs blob.Store, cfg Config) (*Pipeline, error) {
	if embedderFor == nil {
		return nil, fmt.Errorf("ingestion: embedder factory must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("ingestion: vector store must not be nil")
	}
	if cat == nil {
		return nil, fmt.Errorf("ingestion: catalog must not be nil")
	}
	if blobs == nil {
		return nil, fmt.Errorf("ingestion: blob store must not be nil")
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = DefaultChunkOverlap
	}
	return &Pipeline{
		embedderFor: embedderFor,
		store:       store,
		cat:         cat,
		blobs:       blobs,
		cfg:         cfg,
	}, nil
}

// Ingest loads, chunks, embeds, and indexes one document, storing the
// original in the blob store and registering everything in the catalog.
// On failure it rolls back whatever it already created, best effort.
func (p *Pipeline) Ingest(ctx context.Context, req Request) (Result, error) {
	log := logging.FromContext(ctx)

	l, err := loader.ForExtension(req.Filename)
	if err != nil {
		return Result{}, err
	}
	text, err := l.Load(req.Path)
	if err != nil {
		return Result{}, fmt.Errorf("ingestion: load %s: %w", req.Filename, err)
	}

	chunks := splitText(text, p.cfg.ChunkSize, p.cfg.ChunkOverlap)
	if len(chunks) == 0 {
		return Result{}, fmt.Errorf("ingestion: document %s has no text content", req.Filename)
	}

	token, err := newToken()
	if err != nil {
		return Result{}, err
	}
	objectName := "knowledges/" + token + "_" + req.Filename
	name := collectionPrefix + token

	url, err := p.blobs.Upload(ctx, req.Path, objectName)
	if err != nil {
		return Result{}, fmt.Errorf("ingestion: store document: %w", err)
	}

	vectors, err := p.embedderFor(req.Credential).Embed(ctx, chunks)
	if err != nil {
		p.rollback(ctx, objectName, "")
		return Result{}, fmt.Errorf("ingestion: embed %d chunks: %w", len(chunks), err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		p.rollback(ctx, objectName, "")
		return Result{}, fmt.Errorf("ingestion: embedder returned no vectors for %s", req.Filename)
	}

	if err := p.store.CreateCollection(ctx, name, uint64(len(vectors[0]))); err != nil {
		p.rollback(ctx, objectName, "")
		return Result{}, fmt.Errorf("ingestion: create collection %s: %w", name, err)
	}

	points := make([]rag.Chunk, len(chunks))
	for i, content := range chunks {
		points[i] = rag.Chunk{
			// Deterministic per collection+index so a retried upsert
			// overwrites instead of duplicating.
			ID:      uuid.NewSHA1(uuid.NameSpaceURL, []byte(name+"#"+strconv.Itoa(i))).String(),
			Content: content,
			Source:  req.Filename,
		}
	}
	if err := p.store.Upsert(ctx, name, points, vectors); err != nil {
		p.rollback(ctx, objectName, name)
		return Result{}, fmt.Errorf("ingestion: index chunks: %w", err)
	}

	col, err := p.cat.CreateCollection(ctx, name)
	if err != nil {
		p.rollback(ctx, objectName, name)
		return Result{}, fmt.Errorf("ingestion: register collection: %w", err)
	}
	if err := p.cat.AddKnowledge(ctx, url, col.ID); err != nil {
		if derr := p.cat.DeleteCollection(ctx, col.ID); derr != nil {
			log.Warn("rollback: catalog row left behind", slog.String("collection_id", col.ID), slog.Any("error", derr))
		}
		p.rollback(ctx, objectName, name)
		return Result{}, fmt.Errorf("ingestion: register knowledge: %w", err)
	}

	log.Info("document ingested",
		slog.String("filename", req.Filename),
		slog.String("collection", name),
		slog.Int("chunks", len(chunks)),
	)
	return Result{
		URL:            url,
		CollectionID:   col.ID,
		CollectionName: name,
		Chunks:         len(chunks),
	}, nil
}

// rollback undoes a partial ingest. Failures here only get logged — the
// original error is what the caller needs to see.
func (p *Pipeline) rollback(ctx context.Context, objectName, collectionName string) {
	log := logging.FromContext(ctx)
	if collectionName != "" {
		if err := p.store.DropCollection(ctx, collectionName); err != nil {
			log.Warn("rollback: collection left behind", slog.String("collection", collectionName), slog.Any("error", err))
		}
	}
	if err := p.blobs.Delete(ctx, objectName); err != nil {
		log.Warn("rollback: blob left behind", slog.String("object", objectName), slog.Any("error", err))
	}
}

// Delete removes the document identified by its blob URL: the vector store
// collection, the catalog rows, and the blob itself. Steps after the catalog
// lookup are best effort — a partial failure is logged and deletion continues
// so repeated calls converge on full removal.
func (p *Pipeline) Delete(ctx context.Context, url string) error {
	log := logging.FromContext(ctx)

	k, err := p.cat.KnowledgeByURL(ctx, url)
	if err != nil {
		return err
	}
	col, err := p.cat.CollectionByID(ctx, k.CollectionID)
	if err != nil {
		return err
	}

	if err := p.store.DropCollection(ctx, col.Name); err != nil {
		log.Warn("delete: dropping collection failed", slog.String("collection", col.Name), slog.Any("error", err))
	}
	if err := p.cat.DeleteCollection(ctx, col.ID); err != nil {
		return fmt.Errorf("ingestion: remove catalog rows: %w", err)
	}

	objectName, err := p.blobs.ObjectName(url)
	if err != nil {
		log.Warn("delete: unresolvable blob url", slog.String("url", url), slog.Any("error", err))
		return nil
	}
	if err := p.blobs.Delete(ctx, objectName); err != nil {
		log.Warn("delete: blob left behind", slog.String("object", objectName), slog.Any("error", err))
	}

	log.Info("document deleted", slog.String("collection", col.Name), slog.String("url", url))
	return nil
}

// newToken returns a random URL-safe identifier for one document.
func newToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("ingestion: generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// splitText cuts text into chunks of at most size characters with the given
// overlap between consecutive chunks. Chunks that are pure whitespace are
// dropped.
func splitText(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var chunks []string
	step := size - overlap
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunk := string(runes[start:end])
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}
