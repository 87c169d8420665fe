package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/ragloop/pkg/vector"
)

// MockVectorDriver is a test vector driver that returns canned results.
type MockVectorDriver struct {
	mu        sync.Mutex
	documents []vector.Document

	// Results is returned by Query, truncated to topK.
	Results []vector.QueryResult

	// QueryErr and AddErr are returned by Query and Add when set.
	QueryErr error
	AddErr   error

	// LastTopK records the topK of the most recent Query.
	LastTopK int
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{
		documents: make([]vector.Document, 0),
		Results:   make([]vector.QueryResult, 0),
	}
}

func (m *MockVectorDriver) Add(_ context.Context, docs []vector.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AddErr != nil {
		return m.AddErr
	}
	m.documents = append(m.documents, docs...)
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, _ []float32, topK int) ([]vector.QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastTopK = topK
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	if len(m.Results) < topK {
		return m.Results, nil
	}
	return m.Results[:topK], nil
}

func (m *MockVectorDriver) Get(_ context.Context, _ []string) ([]vector.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.documents, nil
}

// Documents returns everything passed to Add.
func (m *MockVectorDriver) Documents() []vector.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]vector.Document(nil), m.documents...)
}

func (m *MockVectorDriver) Size(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.documents), nil
}

func (m *MockVectorDriver) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents = m.documents[:0]
	return nil
}

func (m *MockVectorDriver) Close() error {
	return nil
}
