package aws

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/smithy-go"
)

type ErrorCategory string

// Error categories for better error classification and handling
const (
	// ErrResourceNotFound is returned when no instance matches the tag filter
	ErrResourceNotFound ErrorCategory = "resource_not_found"

	// ErrAmbiguousMatch is returned when more than one instance matches the tag filter
	ErrAmbiguousMatch ErrorCategory = "ambiguous_match"

	// ErrProviderAuth is returned when credentials or the named profile are rejected or missing
	ErrProviderAuth ErrorCategory = "provider_auth"

	// ErrIncorrectState is returned when the instance is mid-transition and cannot accept the call yet
	ErrIncorrectState ErrorCategory = "incorrect_instance_state"

	// ErrThrottling is returned when AWS API throttles the request
	ErrThrottling ErrorCategory = "request_throttled"

	// ErrNetworkError is returned for network-related errors accessing AWS API
	ErrNetworkError ErrorCategory = "network_error"

	// ErrInvalidInput is returned when invalid input is provided
	ErrInvalidInput ErrorCategory = "invalid_input"

	// ErrInternalError is returned for unexpected internal errors
	ErrInternalError ErrorCategory = "internal_error"
)

// EC2ResourceType is the resource type reported on every EC2 error
const EC2ResourceType = "EC2"

// Error represents an error that occurred during AWS operations with
// additional context about what went wrong.
type Error struct {
	// Category for programmatic error handling
	Category ErrorCategory

	// ResourceType identifies the AWS resource type (e.g., EC2)
	ResourceType string

	// ResourceID identifies the specific resource ID or tag when applicable
	ResourceID string

	// Message provides human-readable details
	Message string

	// Underlying is the wrapped cause of this error
	Underlying error
}

// Error returns a formatted error message
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Category, e.Message)
	if e.ResourceID != "" {
		msg = fmt.Sprintf("%s [resource: %s/%s]", msg, e.ResourceType, e.ResourceID)
	} else if e.ResourceType != "" {
		msg = fmt.Sprintf("%s [resource type: %s]", msg, e.ResourceType)
	}
	if e.Underlying != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Underlying)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Underlying
}

// NewAWSError creates a new AWS error with the specified details
func NewAWSError(category ErrorCategory, resourceType, resourceID, message string, underlying error) *Error {
	return &Error{
		Category:     category,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Message:      message,
		Underlying:   underlying,
	}
}

// IsErrorCategory checks if an error belongs to a specific error category
func IsErrorCategory(err error, category ErrorCategory) bool {
	if err == nil {
		return false
	}

	var awsErr *Error
	if errors.As(err, &awsErr) {
		return awsErr.Category == category
	}

	return false
}

// ClassifyAWSError classifies an AWS error based on its API error code, falling
// back to the message for errors raised before a request is sent.
func ClassifyAWSError(err error, resourceType, resourceID string) *Error {
	if err == nil {
		return nil
	}

	// Already classified further down the stack
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	var profileErr config.SharedConfigProfileNotExistError
	if errors.As(err, &profileErr) {
		return NewAWSError(ErrProviderAuth, resourceType, resourceID,
			fmt.Sprintf("AWS profile %q not found", profileErr.Profile), err)
	}

	code := ""
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code = apiErr.ErrorCode()
	}
	errMsg := err.Error()

	switch {
	// Reference: https://docs.aws.amazon.com/AWSEC2/latest/APIReference/errors-overview.html
	case code == "IncorrectInstanceState" || code == "IncorrectState" ||
		contains(errMsg, "IncorrectInstanceState"):
		return NewAWSError(ErrIncorrectState, resourceType, resourceID,
			"Instance is not in a state that permits this operation", err)

	case code == "InvalidInstanceID.NotFound" || code == "InvalidInstanceID.Malformed" ||
		contains(errMsg, "InvalidInstanceID"):
		return NewAWSError(ErrResourceNotFound, resourceType, resourceID,
			"Resource not found", err)

	case code == "UnauthorizedOperation" || code == "AuthFailure" ||
		code == "InvalidClientTokenId" || code == "SignatureDoesNotMatch" ||
		contains(errMsg, "UnauthorizedOperation", "AuthFailure", "InvalidClientTokenId",
			"failed to retrieve credentials", "failed to refresh cached credentials"):
		return NewAWSError(ErrProviderAuth, resourceType, resourceID,
			"Access denied", err)

	case code == "RequestLimitExceeded" || contains(errMsg, "RequestLimitExceeded"):
		return NewAWSError(ErrThrottling, resourceType, resourceID,
			"Request throttled", err)

	case code == "InvalidParameterValue" || code == "InvalidParameterCombination" ||
		contains(errMsg, "InvalidParameter", "ValidationError", "MalformedQueryString"):
		return NewAWSError(ErrInvalidInput, resourceType, resourceID,
			"Invalid input", err)

	// Fall back to string-based analysis for non-standard errors
	case contains(errMsg, "no such host", "connection refused", "timeout"):
		return NewAWSError(ErrNetworkError, resourceType, resourceID,
			"Network error while accessing AWS API", err)

	case contains(errMsg, "could not find region", "region is required"):
		return NewAWSError(ErrProviderAuth, resourceType, resourceID,
			"AWS SDK configuration error", err)

	default:
		return NewAWSError(ErrInternalError, resourceType, resourceID,
			"Internal error occurred", err)
	}
}

// contains checks if the error message contains any of the provided substrings
func contains(s string, substrings ...string) bool {
	for _, substr := range substrings {
		if strings.Contains(strings.ToLower(s), strings.ToLower(substr)) {
			return true
		}
	}
	return false
}
