package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/ragloop/pkg/telemetry"
)

// MockSink is a test telemetry sink that stores records in memory.
type MockSink struct {
	mu      sync.Mutex
	records []*telemetry.Record
	closed  bool

	// Err, when set, is returned by Record after the record is stored.
	Err error
}

func NewMockSink() *MockSink {
	return &MockSink{}
}

func (m *MockSink) Record(_ context.Context, r *telemetry.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return m.Err
}

// Records returns a copy of everything recorded so far.
func (m *MockSink) Records() []*telemetry.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*telemetry.Record(nil), m.records...)
}

// Closed reports whether Close was called.
func (m *MockSink) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
