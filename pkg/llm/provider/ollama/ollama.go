// Package ollama implements llm.Completer for Ollama's /api/chat endpoint.
package ollama

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/ragloop/pkg/llm"
)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"
)

// Config holds configuration for the Ollama completer.
type Config struct {
	BaseURL     string
	Model       string
	KeepAlive   string
	Temperature *float64
	MaxTokens   int

	// Timeout bounds each request. Local models can be slow to load, so the
	// default is 2 minutes.
	Timeout time.Duration
}

// Completer implements llm.Completer.
type Completer struct {
	cfg        Config
	httpClient *http.Client
}

// New creates an Ollama completer.
func New(c Config) *Completer {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Timeout == 0 {
		c.Timeout = 2 * time.Minute
	}
	return &Completer{
		cfg:        c,
		httpClient: &http.Client{Timeout: c.Timeout},
	}
}

func (c *Completer) Name() string  { return "ollama" }
func (c *Completer) Model() string { return c.cfg.Model }

// Complete sends a non-streaming chat request.
func (c *Completer) Complete(ctx context.Context, turns []llm.ConversationTurn) (*llm.Completion, error) {
	req := ollamaRequest{
		Model:     c.cfg.Model,
		Stream:    false,
		KeepAlive: c.cfg.KeepAlive,
		Messages:  make([]ollamaMessage, len(turns)),
	}
	for i, t := range turns {
		req.Messages[i] = ollamaMessage{Role: string(t.Role), Content: t.Content}
	}
	if c.cfg.Temperature != nil || c.cfg.MaxTokens > 0 {
		req.Options = &ollamaOptions{Temperature: c.cfg.Temperature}
		if c.cfg.MaxTokens > 0 {
			req.Options.NumPredict = &c.cfg.MaxTokens
		}
	}

	var resp ollamaResponse
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/api/chat"
	if err := llm.PostJSON(ctx, c.httpClient, c.Name(), "complete", endpoint, nil, req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, llm.NewResponseError(c.Name(), "complete", errors.New(resp.Error))
	}

	return &llm.Completion{
		Text:       resp.Message.Content,
		Model:      resp.Model,
		StopReason: resp.DoneReason,
		CreatedAt:  resp.CreatedAt,
		Usage: &llm.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
			TotalDurationNs:  resp.TotalDuration,
			PromptDurationNs: resp.PromptEvalDuration,
		},
	}, nil
}
