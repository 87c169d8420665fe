// Package anthropic implements llm.Completer for Anthropic's Messages API.
package anthropic

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/ragloop/pkg/llm"
)

const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-haiku-4-5-20251001"
	DefaultMaxTokens = 1024

	apiVersion = "2023-06-01"
)

// Config holds configuration for the Anthropic completer.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature *float64
	Timeout     time.Duration
}

// Completer implements llm.Completer.
type Completer struct {
	cfg        Config
	httpClient *http.Client
}

// New creates an Anthropic completer.
func New(c Config) *Completer {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	return &Completer{
		cfg:        c,
		httpClient: &http.Client{Timeout: c.Timeout},
	}
}

func (c *Completer) Name() string  { return "anthropic" }
func (c *Completer) Model() string { return c.cfg.Model }

// Complete sends the conversation with system turns moved to the top-level
// system field.
func (c *Completer) Complete(ctx context.Context, turns []llm.ConversationTurn) (*llm.Completion, error) {
	system, rest := llm.SplitSystem(turns)

	req := anthropicRequest{
		Model:       c.cfg.Model,
		System:      system,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Messages:    make([]anthropicMessage, len(rest)),
	}
	for i, t := range rest {
		req.Messages[i] = anthropicMessage{Role: string(t.Role), Content: t.Content}
	}

	headers := map[string]string{
		"x-api-key":         c.cfg.APIKey,
		"anthropic-version": apiVersion,
	}

	var resp anthropicResponse
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/messages"
	if err := llm.PostJSON(ctx, c.httpClient, c.Name(), "complete", endpoint, headers, req, &resp); err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, llm.NewResponseError(c.Name(), "complete", errors.New("no text content returned"))
	}

	completion := &llm.Completion{
		Text:       text.String(),
		Model:      resp.Model,
		StopReason: resp.StopReason,
		CreatedAt:  time.Now(),
	}
	if resp.Usage != nil {
		completion.Usage = &llm.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		}
	}
	return completion, nil
}
