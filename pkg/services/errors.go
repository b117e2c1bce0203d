// Package services implements the workflow management use cases behind the API.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/crmflow/pkg/persistence"
)

// Client errors (4xx responses).
var (
	// 400 Bad Request.
	ErrInvalidRequest        = errors.New("invalid request")
	ErrEmptyOrganizationID   = errors.New("organization ID cannot be empty")
	ErrInvalidLimit          = errors.New("invalid limit")
	ErrWorkflowNotManual     = errors.New("workflow is not manually triggered")
	ErrInvalidActionConfig   = errors.New("invalid action configuration")
	ErrInvalidWorkflowFields = errors.New("invalid workflow fields")

	// 404 Not Found.
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrEmptyOrganizationID) ||
		errors.Is(err, ErrInvalidLimit) ||
		errors.Is(err, ErrWorkflowNotManual) ||
		errors.Is(err, ErrInvalidActionConfig) ||
		errors.Is(err, ErrInvalidWorkflowFields)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
