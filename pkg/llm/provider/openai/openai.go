// Package openai implements llm.Completer for the OpenAI Chat Completions API
// and the compatible Mistral and Azure OpenAI endpoints.
package openai

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/papercomputeco/ragloop/pkg/llm"
)

const (
	// DefaultBaseURL is OpenAI's API root.
	DefaultBaseURL = "https://api.openai.com"

	// MistralBaseURL is Mistral's OpenAI-compatible API root.
	MistralBaseURL = "https://api.mistral.ai"

	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o-mini"

	// DefaultMistralModel is used for the mistral flavor when no model is configured.
	DefaultMistralModel = "mistral-small-latest"

	// DefaultAzureAPIVersion is the Azure OpenAI REST API version.
	DefaultAzureAPIVersion = "2024-06-01"
)

// Flavor selects the endpoint layout and auth header.
type Flavor string

const (
	FlavorOpenAI  Flavor = "openai"
	FlavorMistral Flavor = "mistral"
	FlavorAzure   Flavor = "azure"
)

// Config holds configuration for the OpenAI completer.
type Config struct {
	Flavor  Flavor
	APIKey  string
	BaseURL string
	Model   string

	// AzureDeployment and AzureAPIVersion are used by FlavorAzure, where the
	// deployment rather than the model selects what runs.
	AzureDeployment string
	AzureAPIVersion string

	MaxTokens   int
	Temperature *float64

	// Timeout bounds each request. Defaults to 60s.
	Timeout time.Duration
}

// Completer implements llm.Completer.
type Completer struct {
	cfg        Config
	endpoint   string
	headers    map[string]string
	httpClient *http.Client
}

// New creates an OpenAI-compatible completer.
func New(c Config) (*Completer, error) {
	if c.Flavor == "" {
		c.Flavor = FlavorOpenAI
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}

	comp := &Completer{
		cfg:        c,
		httpClient: &http.Client{Timeout: c.Timeout},
	}

	switch c.Flavor {
	case FlavorOpenAI, FlavorMistral:
		if comp.cfg.BaseURL == "" {
			comp.cfg.BaseURL = DefaultBaseURL
			if c.Flavor == FlavorMistral {
				comp.cfg.BaseURL = MistralBaseURL
			}
		}
		if comp.cfg.Model == "" {
			comp.cfg.Model = DefaultModel
			if c.Flavor == FlavorMistral {
				comp.cfg.Model = DefaultMistralModel
			}
		}
		comp.endpoint = strings.TrimRight(comp.cfg.BaseURL, "/") + "/v1/chat/completions"
		comp.headers = map[string]string{"Authorization": "Bearer " + c.APIKey}

	case FlavorAzure:
		if c.BaseURL == "" || c.AzureDeployment == "" {
			return nil, errors.New("azure requires a base URL and deployment")
		}
		version := c.AzureAPIVersion
		if version == "" {
			version = DefaultAzureAPIVersion
		}
		if comp.cfg.Model == "" {
			comp.cfg.Model = c.AzureDeployment
		}
		comp.endpoint = strings.TrimRight(c.BaseURL, "/") + "/openai/deployments/" +
			url.PathEscape(c.AzureDeployment) + "/chat/completions?api-version=" + url.QueryEscape(version)
		comp.headers = map[string]string{"api-key": c.APIKey}

	default:
		return nil, errors.New("unknown openai flavor: " + string(c.Flavor))
	}

	return comp, nil
}

// Name returns the flavor name, e.g. "openai" or "azure".
func (c *Completer) Name() string {
	return string(c.cfg.Flavor)
}

// Model returns the configured model.
func (c *Completer) Model() string {
	return c.cfg.Model
}

// Complete sends a non-streaming chat completion request.
func (c *Completer) Complete(ctx context.Context, turns []llm.ConversationTurn) (*llm.Completion, error) {
	req := openaiRequest{
		Messages:    make([]openaiMessage, len(turns)),
		Temperature: c.cfg.Temperature,
	}
	// Azure routes by deployment and rejects unknown model names.
	if c.cfg.Flavor != FlavorAzure {
		req.Model = c.cfg.Model
	}
	if c.cfg.MaxTokens > 0 {
		req.MaxTokens = &c.cfg.MaxTokens
	}
	for i, t := range turns {
		req.Messages[i] = openaiMessage{Role: string(t.Role), Content: t.Content}
	}

	var resp openaiResponse
	if err := llm.PostJSON(ctx, c.httpClient, c.Name(), "complete", c.endpoint, c.headers, req, &resp); err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, llm.NewResponseError(c.Name(), "complete", errors.New("no choices returned"))
	}

	completion := &llm.Completion{
		Text:       resp.Choices[0].Message.Content,
		Model:      resp.Model,
		StopReason: resp.Choices[0].FinishReason,
		CreatedAt:  time.Now(),
	}
	if completion.Model == "" {
		completion.Model = c.cfg.Model
	}
	if resp.Usage != nil {
		completion.Usage = &llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return completion, nil
}
