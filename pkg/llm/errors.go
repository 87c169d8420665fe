package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrProvider is matched by every *ProviderError.
var ErrProvider = errors.New("provider error")

// ProviderError reports a failed call to an embedding or completion provider.
type ProviderError struct {
	// Provider is the provider name, e.g. "openai".
	Provider string

	// Op is the failed operation, e.g. "embed" or "complete".
	Op string

	// StatusCode is the HTTP status, zero for transport failures.
	StatusCode int

	// Retryable is set for rate limits, server errors, and transport
	// failures, where another provider may succeed.
	Retryable bool

	Err error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Provider, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrProvider) hold.
func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

// NewStatusError builds a ProviderError for a non-2xx HTTP response.
func NewStatusError(provider, op string, status int, body string) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Op:         op,
		StatusCode: status,
		Retryable:  status == http.StatusTooManyRequests || status >= http.StatusInternalServerError,
		Err:        errors.New(body),
	}
}

// NewTransportError builds a ProviderError for a request that got no
// response. Cancellation by the caller is not retryable.
func NewTransportError(provider, op string, err error) *ProviderError {
	return &ProviderError{
		Provider:  provider,
		Op:        op,
		Retryable: !errors.Is(err, context.Canceled),
		Err:       err,
	}
}

// NewResponseError builds a non-retryable ProviderError for a response that
// could not be understood.
func NewResponseError(provider, op string, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Op:       op,
		Err:      err,
	}
}

// IsRetryable reports whether err is a retryable *ProviderError.
func IsRetryable(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Retryable
}
