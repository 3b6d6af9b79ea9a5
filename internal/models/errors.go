package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced id does not exist
	ErrNotFound = errors.New("not found")

	// ErrInternalInconsistency marks states the invariants should rule out
	ErrInternalInconsistency = errors.New("internal inconsistency")
)

// ValidationError reports a rejected input field
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError for field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsValidationError reports whether err wraps a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ErrAlreadyStarted is returned when a background task is started twice
var ErrAlreadyStarted = errors.New("already started")
