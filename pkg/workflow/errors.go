package workflow

import (
	"errors"
	"fmt"

	"github.com/dukex/crmflow/pkg/models"
)

var (
	ErrAlreadyRegistered = errors.New("dispatcher already registered")
	ErrExecutionFinished = errors.New("execution already finished")
	ErrDispatcherStopped = errors.New("dispatcher is shutting down")
)

// ActionError wraps the failure of one action of a run. Step is the zero-based
// index of the failed action, which equals the number of actions that completed.
type ActionError struct {
	Step           int
	Kind           models.ActionKind
	OrganizationID string
	Err            error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %d (%s) failed: %v", e.Step, e.Kind, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// ErrorClass tags spans of failed runs with the kind of the failing action.
func (e *ActionError) ErrorClass() string {
	return "action." + string(e.Kind)
}
