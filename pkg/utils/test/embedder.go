package testutils

import (
	"context"
	"fmt"
	"sync"
)

// MockEmbedder is a test embedder that returns predictable embeddings
type MockEmbedder struct {
	mu sync.Mutex

	Embeddings map[string][]float32

	// FailOn causes Embed to return an error when the input text matches
	FailOn string

	// Err, when set, is returned by every Embed call.
	Err error

	// ProviderName and ModelName are reported by Name and Model.
	ProviderName string
	ModelName    string

	// Calls records the texts passed to Embed.
	Calls []string
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings:   make(map[string][]float32),
		ProviderName: "mock",
		ModelName:    "mock-embed",
	}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, text)

	if m.Err != nil {
		return nil, m.Err
	}
	if m.FailOn != "" && text == m.FailOn {
		return nil, fmt.Errorf("mock embedding failure for: %s", text)
	}

	if emb, ok := m.Embeddings[text]; ok {
		return emb, nil
	}

	// Return a default embedding for any text
	return []float32{0.1, 0.2, 0.3}, nil
}

// CallCount returns how many times Embed was called.
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

func (m *MockEmbedder) Name() string  { return m.ProviderName }
func (m *MockEmbedder) Model() string { return m.ModelName }

func (m *MockEmbedder) Close() error {
	return nil
}
