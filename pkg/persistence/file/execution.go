package file

import (
	"context"
	"fmt"
	"sort"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
)

const executionsCollection = "executions"

// ExecutionRepository handles execution-related file operations.
type ExecutionRepository struct {
	store *Persistence
}

// Create stores a new execution.
func (er *ExecutionRepository) Create(_ context.Context, execution *models.Execution) error {
	er.store.mu.Lock()
	defer er.store.mu.Unlock()

	err := er.store.write(executionsCollection, execution.ID, execution)
	if err != nil {
		return &persistence.ExecutionError{Op: "Create", ExecutionID: execution.ID, Err: err}
	}

	return nil
}

// Update replaces an execution that has not reached a terminal status yet.
func (er *ExecutionRepository) Update(_ context.Context, execution *models.Execution) error {
	er.store.mu.Lock()
	defer er.store.mu.Unlock()

	var stored models.Execution

	found, err := er.store.read(executionsCollection, execution.ID, &stored)
	if err != nil {
		return &persistence.ExecutionError{Op: "Update", ExecutionID: execution.ID, Err: err}
	}

	if !found {
		return &persistence.ExecutionError{Op: "Update", ExecutionID: execution.ID, Err: persistence.ErrExecutionNotFound}
	}

	if stored.Status.IsTerminal() {
		return &persistence.ExecutionError{Op: "Update", ExecutionID: execution.ID, Err: persistence.ErrExecutionTerminal}
	}

	err = er.store.write(executionsCollection, execution.ID, execution)
	if err != nil {
		return &persistence.ExecutionError{Op: "Update", ExecutionID: execution.ID, Err: err}
	}

	return nil
}

// ByWorkflow returns at most limit executions of a workflow, newest first.
func (er *ExecutionRepository) ByWorkflow(_ context.Context, workflowID string, limit int) ([]*models.Execution, error) {
	ids, err := er.store.ids(executionsCollection)
	if err != nil {
		return nil, err
	}

	executions := make([]*models.Execution, 0)

	for _, id := range ids {
		var execution models.Execution

		found, err := er.store.read(executionsCollection, id, &execution)
		if err != nil {
			return nil, fmt.Errorf("failed to load execution %s: %w", id, err)
		}

		if found && execution.WorkflowID == workflowID {
			executions = append(executions, &execution)
		}
	}

	sort.SliceStable(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})

	if limit > 0 && len(executions) > limit {
		executions = executions[:limit]
	}

	return executions, nil
}
