// Package embeddingutils is the embeddings utility package
package embeddingutils

import (
	"fmt"
	"log/slog"

	"github.com/papercomputeco/ragloop/pkg/embeddings"
	"github.com/papercomputeco/ragloop/pkg/embeddings/fallback"
	"github.com/papercomputeco/ragloop/pkg/embeddings/ollama"
	"github.com/papercomputeco/ragloop/pkg/embeddings/openai"
	"github.com/papercomputeco/ragloop/pkg/embeddings/throttle"
	"github.com/papercomputeco/ragloop/pkg/llm/provider"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string

	AzureDeployment string
	AzureAPIVersion string
	Dimensions      int

	// RequestsPerSecond throttles calls when positive.
	RequestsPerSecond float64

	// Fallback is tried when this embedder fails with a retryable error.
	Fallback *NewEmbedderOpts

	Logger *slog.Logger
}

func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	primary, err := newSingle(o)
	if err != nil {
		return nil, err
	}
	if o.Fallback == nil || o.Fallback.ProviderType == "" {
		return primary, nil
	}

	secondary, err := newSingle(o.Fallback)
	if err != nil {
		return nil, fmt.Errorf("fallback embedder: %w", err)
	}
	return fallback.New(o.Logger, primary, secondary)
}

func newSingle(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	apiKey := o.APIKey
	if apiKey == "" {
		apiKey = provider.APIKeyFromEnv(o.ProviderType)
	}

	var (
		e   embeddings.Embedder
		err error
	)
	switch o.ProviderType {
	case provider.Ollama:
		e, err = ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	case provider.OpenAI, provider.Mistral, provider.Azure:
		e, err = openai.NewEmbedder(openai.Config{
			Flavor:          openai.Flavor(o.ProviderType),
			APIKey:          apiKey,
			BaseURL:         o.TargetURL,
			Model:           o.Model,
			AzureDeployment: o.AzureDeployment,
			AzureAPIVersion: o.AzureAPIVersion,
			Dimensions:      o.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
	if err != nil {
		return nil, err
	}

	return throttle.Wrap(e, throttle.Config{RequestsPerSecond: o.RequestsPerSecond}), nil
}
