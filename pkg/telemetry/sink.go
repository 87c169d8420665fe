// Package telemetry defines the exchange record ragloop emits after every
// conversation turn and the Sink interface that delivers it.
package telemetry

import "context"

// Sink delivers exchange records to a telemetry backend.
type Sink interface {
	Record(ctx context.Context, rec *Record) error
	Close() error
}
