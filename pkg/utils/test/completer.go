package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/ragloop/pkg/llm"
)

// MockCompleter is a test completer that records requests and returns a
// fixed reply or error.
type MockCompleter struct {
	mu sync.Mutex

	// Reply is the completion text returned on success.
	Reply string

	// Err, when set, is returned instead of a completion.
	Err error

	// Requests records every conversation passed to Complete.
	Requests [][]llm.ConversationTurn
}

func NewMockCompleter(reply string) *MockCompleter {
	return &MockCompleter{Reply: reply}
}

func (m *MockCompleter) Complete(_ context.Context, turns []llm.ConversationTurn) (*llm.Completion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, append([]llm.ConversationTurn(nil), turns...))

	if m.Err != nil {
		return nil, m.Err
	}
	return &llm.Completion{
		Text:  m.Reply,
		Model: m.Model(),
		Usage: &llm.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

// LastRequest returns the most recent conversation, or nil.
func (m *MockCompleter) LastRequest() []llm.ConversationTurn {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return nil
	}
	return m.Requests[len(m.Requests)-1]
}

// CallCount returns how many times Complete was called.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

func (m *MockCompleter) Name() string  { return "mock" }
func (m *MockCompleter) Model() string { return "mock-model" }
