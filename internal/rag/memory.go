package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore implements VectorStore with brute-force cosine similarity over
// in-process slices. It backs unit tests and small single-node deployments
// where running Qdrant is not worth the overhead.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

// memoryCollection holds the chunks and vectors of one collection.
type memoryCollection struct {
	vectorSize uint64
	chunks     []Chunk
	vectors    [][]float32
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

// CreateCollection creates a new empty collection.
func (s *MemoryStore) CreateCollection(_ context.Context, name string, vectorSize uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[name]; ok {
		return fmt.Errorf("memory store: collection %q already exists", name)
	}
	s.collections[name] = &memoryCollection{vectorSize: vectorSize}
	return nil
}

// Upsert appends chunks and their vectors to the named collection.
func (s *MemoryStore) Upsert(_ context.Context, collection string, chunks []Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("memory store: %d chunks but %d embeddings", len(chunks), len(embeddings))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("memory store: upsert into %q: %w", collection, ErrCollectionNotFound)
	}
	for _, v := range embeddings {
		if uint64(len(v)) != col.vectorSize {
			return fmt.Errorf("memory store: vector dimension %d does not match collection size %d", len(v), col.vectorSize)
		}
	}
	col.chunks = append(col.chunks, chunks...)
	col.vectors = append(col.vectors, embeddings...)
	return nil
}

// Search scores every vector in the named collection against the query by
// cosine similarity and returns the top-k chunks, most relevant first.
func (s *MemoryStore) Search(_ context.Context, collection string, queryEmbedding []float32, topK int) ([]Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("memory store: search in %q: %w", collection, ErrCollectionNotFound)
	}
	if topK <= 0 {
		topK = 5
	}

	scored := make([]Chunk, len(col.chunks))
	for i, ch := range col.chunks {
		ch.Score = cosine(col.vectors[i], queryEmbedding)
		scored[i] = ch
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if topK > len(scored) {
		topK = len(scored)
	}
	out := make([]Chunk, topK)
	copy(out, scored[:topK])
	return out, nil
}

// DropCollection removes the named collection.
func (s *MemoryStore) DropCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[name]; !ok {
		return fmt.Errorf("memory store: drop %q: %w", name, ErrCollectionNotFound)
	}
	delete(s.collections, name)
	return nil
}

// HasCollection reports whether the named collection exists. Test helper.
func (s *MemoryStore) HasCollection(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[name]
	return ok
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

// cosine returns the cosine similarity of a and b. Mismatched lengths are
// compared over the shorter prefix.
func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
