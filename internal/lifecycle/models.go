package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"gameserverctl/internal/models"
)

// Operation is one of the commands the controller can run.
type Operation string

const (
	OperationStart  Operation = "start"
	OperationStop   Operation = "stop"
	OperationStatus Operation = "status"
)

// Operations lists every supported operation in CLI order.
func Operations() []string {
	return []string{string(OperationStart), string(OperationStop), string(OperationStatus)}
}

// ParseOperation converts a command name into an Operation.
func ParseOperation(name string) (Operation, error) {
	switch op := Operation(strings.ToLower(strings.TrimSpace(name))); op {
	case OperationStart, OperationStop, OperationStatus:
		return op, nil
	default:
		return "", fmt.Errorf("unknown operation %q (expected one of %s)", name, strings.Join(Operations(), ", "))
	}
}

// Config contains the parameters the controller needs.
type Config struct {
	TagKey             string        // Tag key used to find the instance
	TagValue           string        // Tag value used to find the instance
	StartRetryInterval time.Duration // Fixed wait between start attempts
	StartMaxAttempts   int           // Maximum start attempts (0 = unlimited, bounded by StartMaxWait)
	StartMaxWait       time.Duration // Maximum total time spent retrying a start (0 = no limit)
}

// Tag renders the tag filter as key=value.
func (c Config) Tag() string {
	return c.TagKey + "=" + c.TagValue
}

// Result is the outcome of Run.
type Result struct {
	Operation Operation
	Instance  *models.InstanceRef
	Report    *models.StatusReport // only set for OperationStatus
}
