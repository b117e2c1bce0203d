package file

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
)

const workflowsCollection = "workflows"

// WorkflowRepository handles workflow-related file operations.
type WorkflowRepository struct {
	store *Persistence
}

// Save creates or replaces a workflow document.
func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	wr.store.mu.Lock()
	defer wr.store.mu.Unlock()

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	err := wr.store.write(workflowsCollection, workflow.ID, workflow)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

// GetByID retrieves a workflow by its ID from the file system.
func (wr *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	var workflow models.Workflow

	found, err := wr.store.read(workflowsCollection, id, &workflow)
	if err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	if !found {
		return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	return &workflow, nil
}

// ActiveByID retrieves a workflow only when it is active.
func (wr *WorkflowRepository) ActiveByID(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := wr.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !workflow.Active {
		return nil, persistence.NewWorkflowError("ActiveByID", id, persistence.ErrWorkflowNotFound)
	}

	return workflow, nil
}

// ListByOrganization returns an organization's workflows, newest first.
func (wr *WorkflowRepository) ListByOrganization(_ context.Context, organizationID string) ([]*models.Workflow, error) {
	return wr.filter(func(w *models.Workflow) bool {
		return w.OrganizationID == organizationID
	})
}

// ActiveByTrigger returns the active workflows of an organization for a trigger type.
func (wr *WorkflowRepository) ActiveByTrigger(
	_ context.Context,
	organizationID string,
	triggerType models.TriggerType,
) ([]*models.Workflow, error) {
	return wr.filter(func(w *models.Workflow) bool {
		return w.Active && w.OrganizationID == organizationID && w.TriggerType == triggerType
	})
}

// ActiveByTriggerType returns active workflows of a trigger type across organizations.
func (wr *WorkflowRepository) ActiveByTriggerType(_ context.Context, triggerType models.TriggerType) ([]*models.Workflow, error) {
	return wr.filter(func(w *models.Workflow) bool {
		return w.Active && w.TriggerType == triggerType
	})
}

// RecordExecution increments the execution counter under the store lock.
func (wr *WorkflowRepository) RecordExecution(_ context.Context, id string, executedAt time.Time) error {
	wr.store.mu.Lock()
	defer wr.store.mu.Unlock()

	var workflow models.Workflow

	found, err := wr.store.read(workflowsCollection, id, &workflow)
	if err != nil {
		return persistence.NewWorkflowError("RecordExecution", id, err)
	}

	if !found {
		return persistence.NewWorkflowError("RecordExecution", id, persistence.ErrWorkflowNotFound)
	}

	executedAt = executedAt.UTC()
	workflow.ExecutionCount++
	workflow.LastExecutedAt = &executedAt
	workflow.UpdatedAt = time.Now().UTC()

	err = wr.store.write(workflowsCollection, id, &workflow)
	if err != nil {
		return persistence.NewWorkflowError("RecordExecution", id, err)
	}

	return nil
}

func (wr *WorkflowRepository) filter(match func(*models.Workflow) bool) ([]*models.Workflow, error) {
	ids, err := wr.store.ids(workflowsCollection)
	if err != nil {
		return nil, err
	}

	workflows := make([]*models.Workflow, 0)

	for _, id := range ids {
		var workflow models.Workflow

		found, err := wr.store.read(workflowsCollection, id, &workflow)
		if err != nil {
			return nil, fmt.Errorf("failed to load workflow %s: %w", id, err)
		}

		if found && match(&workflow) {
			workflows = append(workflows, &workflow)
		}
	}

	sort.SliceStable(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.After(workflows[j].CreatedAt)
	})

	return workflows, nil
}
