package config

import (
	"errors"
	"fmt"
)

// Error categories for configuration problems
const (
	// ErrInvalidFile represents a file that cannot be read or parsed
	ErrInvalidFile = "invalid_file"

	// ErrMissingSection represents a required section that is absent
	ErrMissingSection = "missing_section"

	// ErrInvalidValue represents a field holding an unusable value
	ErrInvalidValue = "invalid_value"
)

// Error represents a configuration error. Every configuration error is fatal.
type Error struct {
	// Category helps with programmatic error handling
	Category string

	// Field is the dotted path of the offending setting, if any
	Field string

	// Message provides human-readable details
	Message string

	// Underlying is the wrapped cause of this error
	Underlying error
}

// Error returns the error message
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Category, e.Message)
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field: %s)", msg, e.Field)
	}
	if e.Underlying != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Underlying)
	}
	return msg
}

// Unwrap returns the underlying error (for errors.Is/As support)
func (e *Error) Unwrap() error {
	return e.Underlying
}

// NewConfigError creates a new error with the given category and details
func NewConfigError(category, field, message string, underlying error) *Error {
	return &Error{
		Category:   category,
		Field:      field,
		Message:    message,
		Underlying: underlying,
	}
}

// IsErrorCategory checks if an error belongs to a specific error category
func IsErrorCategory(err error, category string) bool {
	if err == nil {
		return false
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Category == category
	}

	return false
}
