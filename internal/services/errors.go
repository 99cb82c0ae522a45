package services

import (
	"fmt"

	"example.com/eshop/services/orders/internal/repositories"
)

// ErrNotFound mirrors the repository sentinel so callers don't need to
// import the repositories package to classify failures.
var ErrNotFound = repositories.ErrNotFound

// ValidationError reports missing or mismatched required input. The
// message is what the admin frontend shows, so customer-facing field
// messages stay in Slovak as they always have.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a validation error with the given message.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// ProcessingError reports a failure while building an export element for a
// specific order. The whole export aborts; nothing is skipped.
type ProcessingError struct {
	OrderNumber int64
	Err         error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("failed to process order %d: %v", e.OrderNumber, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a store round-trip failure with the underlying
// cause preserved for diagnostics.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
