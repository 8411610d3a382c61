package lifecycle

import (
	"errors"
	"fmt"
)

// Error categories raised by the lifecycle controller
const (
	// ErrRetryExhausted means the instance never became startable within the retry bound
	ErrRetryExhausted = "retry_exhausted"

	// ErrAmbiguousStatus means AWS returned more than one status record for the instance
	ErrAmbiguousStatus = "ambiguous_status"

	// ErrNotStartable means AWS rejected the start and the instance is not on its way to a startable state
	ErrNotStartable = "not_startable"

	// ErrCancelled means the caller cancelled the operation while it was waiting
	ErrCancelled = "cancelled"
)

// Error is a failed lifecycle operation
type Error struct {
	Category   string
	InstanceID string
	Message    string
	Underlying error
}

// Error returns the error message
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s [instance: %s]", e.Category, e.Message, e.InstanceID)
	if e.Underlying != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Underlying)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Underlying
}

// NewLifecycleError creates a new lifecycle error
func NewLifecycleError(category, instanceID, message string, underlying error) *Error {
	return &Error{
		Category:   category,
		InstanceID: instanceID,
		Message:    message,
		Underlying: underlying,
	}
}

// IsErrorCategory checks if an error belongs to a specific error category
func IsErrorCategory(err error, category string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Category == category
	}
	return false
}
