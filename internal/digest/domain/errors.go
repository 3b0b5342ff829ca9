package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the digest core. Callers match these with errors.Is.
var (
	// ErrConflict indicates a duplicate identity binding (email or mailbox
	// already bound to another user)
	ErrConflict = errors.New("conflict")

	// ErrNotFound indicates a reference to an unknown user, cluster or action
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition indicates an illegal suggestion state change
	// (the action has already been decided)
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrInconsistentState indicates a broken invariant (e.g. a message
	// referencing a cluster that does not exist). Not retriable.
	ErrInconsistentState = errors.New("inconsistent state")
)

// ValidationError reports a malformed input record. Batch imports collect
// these per record and keep going.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for a missing or invalid field
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
