// Package fallback chains embedders so that a rate-limited or unavailable
// provider hands the request to the next one.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/ragloop/pkg/embeddings"
	"github.com/papercomputeco/ragloop/pkg/llm"
	"github.com/papercomputeco/ragloop/pkg/logger"
)

// Chain implements embeddings.Embedder over an ordered list of embedders.
type Chain struct {
	embedders []embeddings.Embedder
	logger    *slog.Logger
}

// New creates a chain that tries embedders in order. A nil log discards output.
func New(log *slog.Logger, embedders ...embeddings.Embedder) (*Chain, error) {
	if len(embedders) == 0 {
		return nil, errors.New("fallback chain needs at least one embedder")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Chain{embedders: embedders, logger: log}, nil
}

// Embed returns the first successful embedding. A retryable *llm.ProviderError
// moves on to the next embedder; any other error stops the chain. When every
// embedder fails the last error is returned.
func (c *Chain) Embed(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for i, e := range c.embedders {
		emb, err := e.Embed(ctx, text)
		if err == nil {
			if i > 0 {
				c.logger.Info("embedding served by fallback provider",
					"provider", nameOf(e),
					"position", i,
				)
			}
			return emb, nil
		}

		lastErr = err
		if !llm.IsRetryable(err) || ctx.Err() != nil {
			return nil, err
		}

		if i < len(c.embedders)-1 {
			c.logger.Warn("embedding provider failed, trying next",
				"provider", nameOf(e),
				"next", nameOf(c.embedders[i+1]),
				"error", err,
			)
		}
	}
	return nil, fmt.Errorf("all %d embedding providers failed: %w", len(c.embedders), lastErr)
}

// Name reports the primary embedder's name.
func (c *Chain) Name() string {
	return nameOf(c.embedders[0])
}

// Model reports the primary embedder's model.
func (c *Chain) Model() string {
	if n, ok := c.embedders[0].(embeddings.Named); ok {
		return n.Model()
	}
	return ""
}

// Close closes every embedder and joins their errors.
func (c *Chain) Close() error {
	var errs []error
	for _, e := range c.embedders {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func nameOf(e embeddings.Embedder) string {
	if n, ok := e.(embeddings.Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", e)
}

var _ embeddings.Embedder = (*Chain)(nil)
