// Package provider selects an llm.Completer implementation by name.
package provider

import (
	"fmt"
	"os"

	"github.com/papercomputeco/ragloop/pkg/llm"
	"github.com/papercomputeco/ragloop/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/ragloop/pkg/llm/provider/ollama"
	"github.com/papercomputeco/ragloop/pkg/llm/provider/openai"
)

// Options configures the completer built by New.
type Options struct {
	// Provider is one of SupportedProviders.
	Provider string

	// APIKey overrides the provider's API key environment variable.
	APIKey  string
	BaseURL string
	Model   string

	// Azure deployment routing, only used by the azure provider.
	AzureDeployment string
	AzureAPIVersion string

	MaxTokens   int
	Temperature *float64
}

// New creates a Completer for the configured provider. The provider is
// chosen once here and never re-evaluated per request.
func New(o Options) (llm.Completer, error) {
	apiKey := o.APIKey
	if apiKey == "" {
		apiKey = APIKeyFromEnv(o.Provider)
	}

	switch o.Provider {
	case OpenAI, Mistral, Azure:
		return openai.New(openai.Config{
			Flavor:          openai.Flavor(o.Provider),
			APIKey:          apiKey,
			BaseURL:         o.BaseURL,
			Model:           o.Model,
			AzureDeployment: o.AzureDeployment,
			AzureAPIVersion: o.AzureAPIVersion,
			MaxTokens:       o.MaxTokens,
			Temperature:     o.Temperature,
		})
	case Anthropic:
		return anthropic.New(anthropic.Config{
			APIKey:      apiKey,
			BaseURL:     o.BaseURL,
			Model:       o.Model,
			MaxTokens:   o.MaxTokens,
			Temperature: o.Temperature,
		}), nil
	case Ollama:
		return ollama.New(ollama.Config{
			BaseURL:     o.BaseURL,
			Model:       o.Model,
			MaxTokens:   o.MaxTokens,
			Temperature: o.Temperature,
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %q (supported: %v)", o.Provider, SupportedProviders())
	}
}

// APIKeyFromEnv returns the conventional API key environment variable for
// a provider, or "" when unset.
func APIKeyFromEnv(provider string) string {
	switch provider {
	case OpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case Mistral:
		return os.Getenv("MISTRAL_API_KEY")
	case Azure:
		return os.Getenv("AZURE_OPENAI_API_KEY")
	case Anthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	}
	return ""
}
