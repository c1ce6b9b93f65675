// Package rag defines the interfaces for the retrieval side of the
// conversational pipeline: vector storage, chunk retrieval, embedding, and
// collection selection. Concrete implementations (Qdrant, in-memory) satisfy
// these interfaces so the orchestration layer never depends on a specific
// backend.
package rag

import (
	"context"
)

// Chunk is a bounded slice of a document's text together with retrieval
// metadata. Chunks are produced in bulk at ingestion and never mutated.
type Chunk struct {
	// ID is the unique identifier for this chunk within its collection.
	ID string

	// Content is the raw text content of the chunk.
	Content string

	// Source is the blob URL of the document this chunk was cut from.
	Source string

	// Metadata holds arbitrary key-value pairs (chunk index, file name, etc.).
	Metadata map[string]string

	// Score is the similarity score assigned during retrieval.
	// Zero value means the score was not computed.
	Score float32
}

// VectorStore is the interface for persisting and searching chunk embeddings.
// Every operation is scoped to a named collection — one collection holds the
// chunks of exactly one ingested document.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// CreateCollection creates a new empty collection with the given vector
	// dimensionality. Collection names are minted by the ingestion pipeline
	// and must be globally unique.
	CreateCollection(ctx context.Context, name string, vectorSize uint64) error

	// Upsert stores a batch of chunks with their pre-computed embeddings into
	// the named collection. embeddings[i] is the vector for chunks[i].
	Upsert(ctx context.Context, collection string, chunks []Chunk, embeddings [][]float32) error

	// Search performs a similarity search inside the named collection and
	// returns the top-k most relevant chunks. An empty result is valid.
	Search(ctx context.Context, collection string, queryEmbedding []float32, topK int) ([]Chunk, error)

	// DropCollection removes the named collection and all of its chunks.
	DropCollection(ctx context.Context, name string) error

	// Close releases any resources held by the store.
	Close() error
}

// Embedder is the interface for converting text into dense vector embeddings.
// The vector dimensionality is fixed across all calls within a deployment.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever fetches the most relevant chunks for a query from one named
// collection. Results never cross collection boundaries.
// Implementations must be safe to call from multiple goroutines.
type Retriever interface {
	// Retrieve returns the top-k most relevant chunks for the query,
	// scoped strictly to the named collection.
	Retrieve(ctx context.Context, collection, query string, topK int) ([]Chunk, error)
}
