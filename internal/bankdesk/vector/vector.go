// Package vector provides the vector index used for knowledge base search.
package vector

import (
	"context"
)

// EmbeddedChunk is a document chunk together with its embedding, ready for
// insertion into the index.
type EmbeddedChunk struct {
	// ChunkID is the stable chunk identifier, document name plus index.
	ChunkID string
	// DocumentName is the source document file name.
	DocumentName string
	// ChunkIndex is the zero-based position within the document.
	ChunkIndex int
	// Content is the chunk text.
	Content string
	// Embedding is the embedding vector.
	Embedding []float32
}

// Hit is a similarity search result.
type Hit struct {
	ChunkID      string
	DocumentName string
	ChunkIndex   int
	Content      string
	// Distance is the cosine distance to the query, lower is closer.
	Distance float64
}

// Store defines the vector index interface.
type Store interface {
	// EnsureCollection creates the collection if it does not exist.
	EnsureCollection(ctx context.Context, collection string, dimension int) error

	// Insert adds embedded chunks to the index.
	Insert(ctx context.Context, collection string, chunks []*EmbeddedChunk) ([]int64, error)

	// Search returns the topK nearest chunks for the query embedding.
	Search(ctx context.Context, collection string, embedding []float32, topK int) ([]*Hit, error)

	// DocumentNames lists the distinct document names in the index.
	DocumentNames(ctx context.Context, collection string) ([]string, error)

	// Count returns the number of indexed chunks.
	Count(ctx context.Context, collection string) (int64, error)

	// Drop removes the collection and all indexed chunks.
	Drop(ctx context.Context, collection string) error

	// Close releases the underlying connection.
	Close(ctx context.Context) error
}
