package service

import (
	"errors"
	"fmt"

	"invofi/internal/model"
	"invofi/internal/verify"
)

var (
	ErrIDRequired      = errors.New("id is required")
	ErrNotFound        = errors.New("invoice not found")
	ErrSessionNotFound = errors.New("verification session not found")
	ErrReaderNil       = errors.New("reader is nil")
)

// ValidationError reports a rejected draft field. It maps to a 400 at the
// HTTP boundary.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError builds a field-level validation failure.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// LifecycleError reports a forbidden invoice status transition, such as
// funding an invoice that was never tokenized. It maps to a 409 at the HTTP
// boundary.
type LifecycleError struct {
	From model.InvoiceStatus
	To   model.InvoiceStatus
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("invoice cannot move from %s to %s", e.From, e.To)
}

// IsLifecycleError reports whether err is (or wraps) a LifecycleError.
func IsLifecycleError(err error) bool {
	var le *LifecycleError
	return errors.As(err, &le)
}

// VerificationIncompleteError means an operation required a completed
// verification (verified or manual_override) but the session was not there
// yet, or a transition was requested that the state machine forbids. It maps
// to a 409 at the HTTP boundary.
type VerificationIncompleteError struct {
	Status  verify.Status
	Message string
}

func (e *VerificationIncompleteError) Error() string {
	return fmt.Sprintf("verification incomplete (status %s): %s", e.Status, e.Message)
}

// IsVerificationIncomplete reports whether err is (or wraps) a
// VerificationIncompleteError.
func IsVerificationIncomplete(err error) bool {
	var ve *VerificationIncompleteError
	return errors.As(err, &ve)
}
