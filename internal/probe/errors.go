package probe

import (
	"errors"
	"fmt"
)

// Error categories for probe outcomes
const (
	// ErrConnectionRefused means the host answered and rejected the socket.
	// It is never returned from IsGameRunning: it becomes a plain false.
	ErrConnectionRefused = "connection_refused"

	// ErrProbeFailure covers every other failure: timeout, DNS, unreachable network.
	ErrProbeFailure = "probe_failure"
)

// Error represents a failed liveness probe
type Error struct {
	Category   string
	Address    string
	Underlying error
}

// Error returns the error message
func (e *Error) Error() string {
	return fmt.Sprintf("%s: probing %s: %v", e.Category, e.Address, e.Underlying)
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
