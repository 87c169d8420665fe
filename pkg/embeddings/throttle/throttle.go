// Package throttle rate limits calls to an embedder with a token bucket.
package throttle

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/papercomputeco/ragloop/pkg/embeddings"
)

// Config holds rate limiting configuration.
type Config struct {
	// RequestsPerSecond is the sustained rate limit. Zero or less disables limiting.
	RequestsPerSecond float64

	// BurstSize is the maximum burst size. Defaults to 1.
	BurstSize int
}

// Embedder wraps another embedder with a rate limiter.
type Embedder struct {
	next    embeddings.Embedder
	limiter *rate.Limiter
}

// Wrap returns next unchanged when limiting is disabled.
func Wrap(next embeddings.Embedder, c Config) embeddings.Embedder {
	if c.RequestsPerSecond <= 0 {
		return next
	}
	burst := c.BurstSize
	if burst <= 0 {
		burst = 1
	}
	return &Embedder{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(c.RequestsPerSecond), burst),
	}
}

// Embed waits for a token, then delegates.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return e.next.Embed(ctx, text)
}

func (e *Embedder) Name() string {
	if n, ok := e.next.(embeddings.Named); ok {
		return n.Name()
	}
	return ""
}

func (e *Embedder) Model() string {
	if n, ok := e.next.(embeddings.Named); ok {
		return n.Model()
	}
	return ""
}

func (e *Embedder) Close() error {
	return e.next.Close()
}
