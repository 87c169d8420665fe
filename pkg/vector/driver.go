// Package vector provides interfaces and implementations for vector storage and similarity search.
package vector

import "context"

// Document represents a stored item with its embedding.
// Documents are immutable once added to a Driver.
type Document struct {
	// ID is a unique identifier for the document.
	ID string

	// Text is the content that was embedded.
	Text string

	// Embedding is the vector representation of Text.
	Embedding []float32
}

// QueryResult represents a search result with similarity score.
type QueryResult struct {
	Document

	// Score is the cosine similarity to the query, in [-1, 1] (higher = more similar).
	Score float32
}

// Driver handles storage and retrieval of vector embeddings.
//
// The corpus is append-only: there is no update or single-document delete.
// Clear empties the whole index.
type Driver interface {
	// Add stores documents with their embeddings. Every embedding must have the
	// index dimension, otherwise a *DimensionMismatchError is returned and none
	// of the documents are stored. Adding an ID that already exists fails with
	// ErrDuplicateDocument.
	Add(ctx context.Context, docs []Document) error

	// Query finds the topK most similar documents to the given embedding,
	// ordered by descending score. Equal scores keep insertion order.
	// An empty index yields an empty result, not an error.
	Query(ctx context.Context, embedding []float32, topK int) ([]QueryResult, error)

	// Get retrieves documents by their IDs. Unknown IDs are skipped.
	Get(ctx context.Context, ids []string) ([]Document, error)

	// Size returns the number of stored documents.
	Size(ctx context.Context) (int, error)

	// Clear removes every document.
	Clear(ctx context.Context) error

	// Close releases any resources held by the driver.
	Close() error
}
