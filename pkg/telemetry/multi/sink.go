// Package multi fans a telemetry record out to several sinks.
package multi

import (
	"context"
	"errors"

	"github.com/papercomputeco/ragloop/pkg/telemetry"
)

// Sink delivers every record to each of its sinks.
type Sink struct {
	sinks []telemetry.Sink
}

// New returns a fan-out sink. Nil sinks are skipped.
func New(sinks ...telemetry.Sink) *Sink {
	s := &Sink{}
	for _, sink := range sinks {
		if sink != nil {
			s.sinks = append(s.sinks, sink)
		}
	}
	return s
}

// Len reports how many sinks receive records.
func (s *Sink) Len() int {
	return len(s.sinks)
}

// Record delivers rec to every sink, joining their errors. A failing sink
// does not prevent delivery to the others.
func (s *Sink) Record(ctx context.Context, rec *telemetry.Record) error {
	if rec == nil {
		return telemetry.ErrNilRecord
	}

	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Record(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink, joining their errors.
func (s *Sink) Close() error {
	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ telemetry.Sink = (*Sink)(nil)
