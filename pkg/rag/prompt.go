package rag

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/papercomputeco/ragloop/pkg/vector"
)

// DefaultSystemPrompt is used when no template is configured. The context
// section is omitted when retrieval found nothing.
const DefaultSystemPrompt = `You are a helpful assistant. Answer questions concisely using the provided context when available.
{{- if .Context}}

Relevant context from knowledge base:
{{.Context}}
{{- end}}`

// PromptData is the value the system prompt template is executed against.
type PromptData struct {
	// Context is the assembled context block.
	Context string

	// Query is the user's message.
	Query string

	Matches []vector.QueryResult
}

// Prompt renders the system prompt.
type Prompt struct {
	tmpl *template.Template
}

// ParsePrompt parses a text/template system prompt. An empty string selects
// DefaultSystemPrompt.
func ParsePrompt(text string) (*Prompt, error) {
	if strings.TrimSpace(text) == "" {
		text = DefaultSystemPrompt
	}
	tmpl, err := template.New("system").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing system prompt template: %w", err)
	}
	return &Prompt{tmpl: tmpl}, nil
}

// Render executes the template.
func (p *Prompt) Render(data PromptData) (string, error) {
	var b strings.Builder
	if err := p.tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering system prompt: %w", err)
	}
	return strings.TrimSpace(b.String()), nil
}
