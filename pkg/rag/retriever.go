package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/papercomputeco/ragloop/pkg/embeddings"
	"github.com/papercomputeco/ragloop/pkg/vector"
)

// Retriever is the retrieval half of a Loop. It needs no completion provider,
// so search can be served by a stack built without one.
type Retriever struct {
	embedder embeddings.Embedder
	index    vector.Driver
}

func NewRetriever(embedder embeddings.Embedder, index vector.Driver) (*Retriever, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if index == nil {
		return nil, errors.New("vector index is required")
	}
	return &Retriever{embedder: embedder, index: index}, nil
}

// Retrieve embeds text and returns the k most similar documents.
func (r *Retriever) Retrieve(ctx context.Context, text string, k int) ([]vector.QueryResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	emb, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	matches, err := r.index.Query(ctx, emb, k)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	return matches, nil
}
