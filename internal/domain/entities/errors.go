package entities

import (
	"errors"
	"fmt"
)

// ValidationError reports a value that violates a field constraint
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for field
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// PreconditionError reports an operation attempted in a state that does not allow it
type PreconditionError struct {
	Operation string
	Message   string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Operation, e.Message)
}

// IsValidationError reports whether err wraps a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsPreconditionError reports whether err wraps a PreconditionError
func IsPreconditionError(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}
