package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderUnavailable covers transport failures, timeouts, throttling
	// and 5xx answers. It is the only retryable error.
	ErrProviderUnavailable = errors.New("llm provider unavailable")
	// ErrInvalidResponseShape means the provider answered without usable text
	ErrInvalidResponseShape = errors.New("llm response has an unexpected shape")
	// ErrAuthenticationMissing means no credentials are configured or they were rejected
	ErrAuthenticationMissing = errors.New("llm authentication missing")
)

// ProviderError ties a classification sentinel to the underlying cause
type ProviderError struct {
	Kind       error
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%v (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func NewProviderError(kind error, statusCode int, err error) *ProviderError {
	return &ProviderError{Kind: kind, StatusCode: statusCode, Err: err}
}
