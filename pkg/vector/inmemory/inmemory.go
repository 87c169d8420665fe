// Package inmemory provides a brute-force cosine similarity vector index held
// entirely in process memory.
package inmemory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/papercomputeco/ragloop/pkg/logger"
	"github.com/papercomputeco/ragloop/pkg/vector"
)

// Index implements vector.Driver over a slice of documents kept in insertion
// order. It is safe for concurrent use.
type Index struct {
	mu         sync.RWMutex
	docs       []vector.Document
	byID       map[string]int
	dimensions int
	fixed      bool
	logger     *slog.Logger
}

// Config holds configuration for the in-memory index.
type Config struct {
	// Dimensions pins the embedding length. When zero, the first Add fixes it.
	Dimensions uint
}

// NewIndex creates an empty in-memory index. A nil log discards output.
func NewIndex(c Config, log *slog.Logger) *Index {
	if log == nil {
		log = logger.Nop()
	}
	return &Index{
		byID:       make(map[string]int),
		dimensions: int(c.Dimensions),
		fixed:      c.Dimensions > 0,
		logger:     log,
	}
}

// Add validates the whole batch first so a rejected batch leaves the index
// unchanged.
func (ix *Index) Add(_ context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	dims, err := vector.ValidateBatch(docs, ix.dimensions)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if _, ok := ix.byID[doc.ID]; ok {
			return fmt.Errorf("%w: %q", vector.ErrDuplicateDocument, doc.ID)
		}
	}

	for _, doc := range docs {
		emb := make([]float32, len(doc.Embedding))
		copy(emb, doc.Embedding)
		ix.byID[doc.ID] = len(ix.docs)
		ix.docs = append(ix.docs, vector.Document{ID: doc.ID, Text: doc.Text, Embedding: emb})
	}
	ix.dimensions = dims

	ix.logger.Debug("added documents to in-memory index",
		"count", len(docs),
		"size", len(ix.docs),
	)
	return nil
}

// Query scores every stored document against embedding.
func (ix *Index) Query(_ context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.docs) == 0 {
		if topK < 1 {
			return nil, vector.ErrInvalidTopK
		}
		return []vector.QueryResult{}, nil
	}

	if err := vector.ValidateQuery(embedding, topK, ix.dimensions); err != nil {
		return nil, err
	}

	results := make([]vector.QueryResult, 0, len(ix.docs))
	for _, doc := range ix.docs {
		score, err := vector.Cosine(embedding, doc.Embedding)
		if err != nil {
			return nil, fmt.Errorf("scoring document %q: %w", doc.ID, err)
		}
		results = append(results, vector.QueryResult{Document: doc, Score: float32(score)})
	}

	results = vector.RankStable(results, topK)

	ix.logger.Debug("queried in-memory index",
		"top_k", topK,
		"results", len(results),
	)
	return results, nil
}

// Get retrieves documents by their IDs, skipping unknown IDs.
func (ix *Index) Get(_ context.Context, ids []string) ([]vector.Document, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	docs := make([]vector.Document, 0, len(ids))
	for _, id := range ids {
		if i, ok := ix.byID[id]; ok {
			docs = append(docs, ix.docs[i])
		}
	}
	return docs, nil
}

// Size returns the number of stored documents.
func (ix *Index) Size(context.Context) (int, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs), nil
}

// Clear empties the index. A dimension learned from the first Add is forgotten;
// a configured dimension is kept.
func (ix *Index) Clear(context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.docs = nil
	ix.byID = make(map[string]int)
	if !ix.fixed {
		ix.dimensions = 0
	}

	ix.logger.Debug("cleared in-memory index")
	return nil
}

// Dimensions returns the current index dimension, zero when not yet fixed.
func (ix *Index) Dimensions() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dimensions
}

// Close is a no-op.
func (ix *Index) Close() error {
	return nil
}
