// Package apperr defines the error taxonomy shared across Ansuz components.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a missing document. At index-read sites it is a
	// valid "empty" result, not a failure.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a version-token mismatch on a conditional write.
	ErrConflict = errors.New("version conflict")
	// ErrAlreadyExists marks a create against a path that already has a document.
	ErrAlreadyExists = errors.New("already exists")
	// ErrCorruptDocument marks a stored document that failed schema decoding.
	ErrCorruptDocument = errors.New("corrupt document")
)

// ValidationError rejects bad input before any store access.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// Validation builds a ValidationError from a format string.
func Validation(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// StoreError wraps any document-store failure that is not a missing
// document or a version conflict (network, auth, 5xx). It is never
// retried automatically.
type StoreError struct {
	Path   string
	Status int // HTTP status when known, 0 otherwise
	Err    error
}

func (e *StoreError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("store: %s: status %d: %v", e.Path, e.Status, e.Err)
	}
	return fmt.Sprintf("store: %s: %v", e.Path, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// RetryExhaustedError reports an optimistic-concurrency update that lost
// the version race on every permitted attempt.
type RetryExhaustedError struct {
	Path     string
	Attempts int
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("retry exhausted: %s after %d attempts", e.Path, e.Attempts)
}

func (e *RetryExhaustedError) Unwrap() error { return ErrConflict }

// ProviderError wraps an embedding-provider failure. Ingestion aborts
// before any write when it occurs.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("embedding provider: %v", e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
