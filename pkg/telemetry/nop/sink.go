// Package nop provides a telemetry sink that discards records.
package nop

import (
	"context"

	"github.com/papercomputeco/ragloop/pkg/telemetry"
)

// Sink is a no-op telemetry sink used for tests and disabled mode.
type Sink struct{}

// NewSink creates a new no-op sink.
func NewSink() *Sink {
	return &Sink{}
}

// Record validates input and otherwise does nothing.
func (s *Sink) Record(_ context.Context, rec *telemetry.Record) error {
	if rec == nil {
		return telemetry.ErrNilRecord
	}

	return nil
}

// Close is a no-op.
func (s *Sink) Close() error {
	return nil
}

var _ telemetry.Sink = (*Sink)(nil)
