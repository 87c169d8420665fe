package telemetry

import (
	"errors"
	"fmt"
)

var (
	// ErrTelemetry matches any *Error via errors.Is.
	ErrTelemetry = errors.New("telemetry error")

	// ErrNilRecord indicates a nil record was handed to a sink.
	ErrNilRecord = errors.New("nil telemetry record")
)

// Error wraps a delivery failure with the sink that produced it.
// Telemetry errors are logged and never surfaced to users.
type Error struct {
	Sink string
	Err  error
}

// NewError wraps err for the named sink.
func NewError(sink string, err error) *Error {
	return &Error{Sink: sink, Err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("telemetry sink %s: %v", e.Sink, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == ErrTelemetry
}
