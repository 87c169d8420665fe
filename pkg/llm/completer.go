package llm

import "context"

// Completer generates the next assistant message for a conversation.
// Failures are returned as *ProviderError.
type Completer interface {
	// Complete sends the turns, system prompt first, to the provider.
	Complete(ctx context.Context, turns []ConversationTurn) (*Completion, error)

	// Name returns the canonical provider name (e.g., "openai").
	Name() string

	// Model returns the configured model.
	Model() string
}
