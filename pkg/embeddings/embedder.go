// Package embeddings defines the text embedding interface and shared helpers.
package embeddings

import (
	"context"
	"errors"
	"fmt"

	"github.com/papercomputeco/ragloop/pkg/llm"
	"github.com/papercomputeco/ragloop/pkg/vector"
)

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding. Provider failures are
	// returned as *llm.ProviderError and also match vector.ErrEmbedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}

// Named is implemented by embedders that can report their provider and model.
type Named interface {
	Name() string
	Model() string
}

// WrapError tags err so that errors.Is(err, vector.ErrEmbedding) holds while
// keeping a *llm.ProviderError reachable with errors.As.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	var pe *llm.ProviderError
	if errors.As(err, &pe) {
		pe.Err = fmt.Errorf("%w: %w", vector.ErrEmbedding, pe.Err)
		return pe
	}
	return fmt.Errorf("%w: %w", vector.ErrEmbedding, err)
}
