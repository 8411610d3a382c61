package gamecontrol

import (
	"errors"
	"fmt"
)

// Error categories for the game control endpoint
const (
	// ErrControlRefused means nothing listens on the control port although the game does
	ErrControlRefused = "control_refused"

	// ErrControlUnreachable covers timeouts, DNS failures and broken connections
	ErrControlUnreachable = "control_unreachable"

	// ErrControlRejected means the endpoint answered with a non-2xx status
	ErrControlRejected = "control_rejected"
)

// Error represents a failed request to the game control endpoint
type Error struct {
	Category   string
	URL        string
	StatusCode int
	Underlying error
}

// Error returns the error message
func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s answered HTTP %d", e.Category, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s: %v", e.Category, e.URL, e.Underlying)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Underlying
}

// IsErrorCategory checks if an error belongs to a specific error category
func IsErrorCategory(err error, category string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Category == category
	}
	return false
}
