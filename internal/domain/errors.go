package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrMalformedInput      = errors.New("malformed input")
	ErrGenerationFailed    = errors.New("generation failed")
	ErrPublishFailed       = errors.New("publish failed")
)

// GenerationFailedError carries the provider-side reason of a failed
// generation. It matches ErrGenerationFailed with errors.Is.
type GenerationFailedError struct {
	Reason string
	Err    error
}

// GenerationFailed wraps err as a GenerationFailedError.
func GenerationFailed(err error) *GenerationFailedError {
	if err == nil {
		return &GenerationFailedError{Reason: "unknown error"}
	}
	return &GenerationFailedError{Reason: err.Error(), Err: err}
}

func (e *GenerationFailedError) Error() string {
	return fmt.Sprintf("generation failed: %s", e.Reason)
}

func (e *GenerationFailedError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrGenerationFailed}
	}
	return []error{ErrGenerationFailed, e.Err}
}

// MalformedInput returns an ErrMalformedInput-wrapping error with detail.
func MalformedInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedInput, fmt.Sprintf(format, args...))
}
