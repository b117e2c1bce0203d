// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found or is not active.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrExecutionNotFound indicates an execution was not found by the given identifier.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrInvalidIdentifier indicates an entity type or field name that is not a safe identifier.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrExecutionTerminal indicates an attempt to change an execution that already finished.
	ErrExecutionTerminal = errors.New("execution already finished")
)

// WorkflowError wraps workflow-related errors with additional context.
type WorkflowError struct {
	Op             string // Operation being performed (e.g., "GetByID", "Save")
	WorkflowID     string // Workflow ID if applicable
	OrganizationID string // Organization ID for list operations
	Err            error  // Underlying error
}

func (e *WorkflowError) Error() string {
	target := e.WorkflowID
	if target == "" && e.OrganizationID != "" {
		target = "of organization " + e.OrganizationID
	}

	return fmt.Sprintf("%s operation failed for workflow %s: %v", e.Op, target, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for workflow errors.
func (e *WorkflowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewWorkflowError creates a new workflow error with context.
func NewWorkflowError(op, workflowID string, err error) *WorkflowError {
	return &WorkflowError{
		Op:         op,
		WorkflowID: workflowID,
		Err:        err,
	}
}

// ExecutionError wraps execution-related errors with additional context.
type ExecutionError struct {
	Op          string
	ExecutionID string
	Err         error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s operation failed for execution %s: %v", e.Op, e.ExecutionID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func (e *ExecutionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsExecutionNotFound checks if an error indicates an execution was not found.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}
