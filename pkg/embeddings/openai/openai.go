// Package openai implements pkg/embeddings' Embedder for the OpenAI embeddings
// API and the compatible Mistral and Azure OpenAI endpoints.
package openai

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/papercomputeco/ragloop/pkg/embeddings"
	"github.com/papercomputeco/ragloop/pkg/llm"
)

// Default configuration values.
const (
	DefaultBaseURL      = "https://api.openai.com"
	DefaultModel        = "text-embedding-3-small"
	MistralBaseURL      = "https://api.mistral.ai"
	DefaultMistralModel = "mistral-embed"
	DefaultAPIVersion   = "2024-06-01"
	DefaultTimeout      = 60 * time.Second
)

// Flavor selects the endpoint layout and auth header.
type Flavor string

const (
	FlavorOpenAI  Flavor = "openai"
	FlavorMistral Flavor = "mistral"
	FlavorAzure   Flavor = "azure"
)

// Model dimensions for known embedding models.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
	"mistral-embed":          1024,
}

// Config holds configuration for the OpenAI-compatible embedder.
type Config struct {
	Flavor  Flavor
	APIKey  string
	BaseURL string
	Model   string

	// AzureDeployment selects the Azure OpenAI deployment.
	AzureDeployment string
	AzureAPIVersion string

	// Dimensions requests shortened embeddings from text-embedding-3-* models.
	Dimensions int

	Timeout time.Duration
}

// Embedder generates embeddings using an OpenAI-compatible API.
type Embedder struct {
	flavor     Flavor
	model      string
	dimensions int
	endpoint   string
	headers    map[string]string
	httpClient *http.Client
}

type embeddingRequest struct {
	Model      string   `json:"model,omitempty"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

// NewEmbedder creates a new OpenAI-compatible embedder.
func NewEmbedder(cfg Config) (*Embedder, error) {
	if cfg.Flavor == "" {
		cfg.Flavor = FlavorOpenAI
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	e := &Embedder{
		flavor:     cfg.Flavor,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}

	switch cfg.Flavor {
	case FlavorOpenAI, FlavorMistral:
		baseURL, model := DefaultBaseURL, DefaultModel
		if cfg.Flavor == FlavorMistral {
			baseURL, model = MistralBaseURL, DefaultMistralModel
		}
		if cfg.BaseURL != "" {
			baseURL = cfg.BaseURL
		}
		if e.model == "" {
			e.model = model
		}
		e.endpoint = strings.TrimRight(baseURL, "/") + "/v1/embeddings"
		e.headers = map[string]string{"Authorization": "Bearer " + cfg.APIKey}

	case FlavorAzure:
		if cfg.BaseURL == "" || cfg.AzureDeployment == "" {
			return nil, errors.New("azure requires a base URL and deployment")
		}
		version := cfg.AzureAPIVersion
		if version == "" {
			version = DefaultAPIVersion
		}
		if e.model == "" {
			e.model = cfg.AzureDeployment
		}
		e.endpoint = strings.TrimRight(cfg.BaseURL, "/") + "/openai/deployments/" +
			url.PathEscape(cfg.AzureDeployment) + "/embeddings?api-version=" + url.QueryEscape(version)
		e.headers = map[string]string{"api-key": cfg.APIKey}

	default:
		return nil, errors.New("unknown openai flavor: " + string(cfg.Flavor))
	}

	return e, nil
}

func (e *Embedder) Name() string  { return string(e.flavor) }
func (e *Embedder) Model() string { return e.model }

// ModelDimensions returns the native dimensions of a known model, or 0.
func ModelDimensions(model string) int {
	return modelDimensions[model]
}

// Embed generates a vector embedding for the given text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	req := embeddingRequest{Input: []string{text}}
	if e.flavor != FlavorAzure {
		req.Model = e.model
	}
	// Only text-embedding-3-* models accept a dimensions override.
	if strings.HasPrefix(e.model, "text-embedding-3-") && e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	var resp embeddingResponse
	if err := llm.PostJSON(ctx, e.httpClient, e.Name(), "embed", e.endpoint, e.headers, req, &resp); err != nil {
		return nil, embeddings.WrapError(err)
	}

	for _, d := range resp.Data {
		if d.Index == 0 && len(d.Embedding) > 0 {
			return d.Embedding, nil
		}
	}
	return nil, embeddings.WrapError(llm.NewResponseError(e.Name(), "embed", errors.New("no embedding returned")))
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
