package workflow

import (
	"context"
	"fmt"
	"maps"

	"github.com/jonboulle/clockwork"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
)

// Tracker owns the execution record of one run and persists every transition.
// Once the record is completed or failed it rejects further changes.
type Tracker struct {
	executions persistence.ExecutionRepository
	clock      clockwork.Clock
	execution  models.Execution
}

// StartExecution creates a running execution of workflow at step 0.
func StartExecution(
	ctx context.Context,
	executions persistence.ExecutionRepository,
	clock clockwork.Clock,
	id string,
	workflow *models.Workflow,
	triggerData map[string]any,
) (*Tracker, error) {
	tracker := &Tracker{
		executions: executions,
		clock:      clock,
		execution: models.Execution{
			ID:             id,
			WorkflowID:     workflow.ID,
			OrganizationID: workflow.OrganizationID,
			TriggerData:    triggerData,
			Status:         models.ExecutionStatusRunning,
			CurrentStep:    0,
			StartedAt:      clock.Now().UTC(),
		},
	}

	snapshot := tracker.Snapshot()

	err := executions.Create(ctx, snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to create execution: %w", err)
	}

	return tracker, nil
}

// Advance records that the action at the current step completed.
func (t *Tracker) Advance(ctx context.Context) error {
	return t.transition(ctx, func(execution *models.Execution) {
		execution.CurrentStep++
	})
}

// Fail finishes the run as failed with cause as its error message.
func (t *Tracker) Fail(ctx context.Context, cause error) error {
	now := t.clock.Now().UTC()

	return t.transition(ctx, func(execution *models.Execution) {
		execution.Status = models.ExecutionStatusFailed
		execution.ErrorMessage = cause.Error()
		execution.CompletedAt = &now
	})
}

// Complete finishes the run successfully.
func (t *Tracker) Complete(ctx context.Context) error {
	now := t.clock.Now().UTC()

	return t.transition(ctx, func(execution *models.Execution) {
		execution.Status = models.ExecutionStatusCompleted
		execution.CompletedAt = &now
	})
}

// transition applies change to a copy of the record and keeps it only once
// it is stored, so the tracked record always matches the stored one.
func (t *Tracker) transition(ctx context.Context, change func(*models.Execution)) error {
	if t.execution.Status.IsTerminal() {
		return ErrExecutionFinished
	}

	next := t.Snapshot()
	change(next)

	err := t.executions.Update(ctx, next)
	if err != nil {
		return fmt.Errorf("failed to update execution %s: %w", t.execution.ID, err)
	}

	t.execution = *next

	return nil
}

// Snapshot returns a copy of the current record.
func (t *Tracker) Snapshot() *models.Execution {
	snapshot := t.execution
	snapshot.TriggerData = maps.Clone(t.execution.TriggerData)

	if t.execution.CompletedAt != nil {
		completedAt := *t.execution.CompletedAt
		snapshot.CompletedAt = &completedAt
	}

	return &snapshot
}
