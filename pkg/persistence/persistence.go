// Package persistence provides the storage abstraction for workflows, executions, tasks and CRM entities.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/crmflow/pkg/models"
)

// Persistence groups the repositories a backend provides.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository
	TaskRepository() TaskRepository
	EntityRepository() EntityRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow definitions.
type WorkflowRepository interface {
	Save(ctx context.Context, workflow *models.Workflow) error
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	// ActiveByID returns ErrWorkflowNotFound when the workflow is missing or inactive.
	ActiveByID(ctx context.Context, id string) (*models.Workflow, error)
	// ListByOrganization returns an organization's workflows, newest first.
	ListByOrganization(ctx context.Context, organizationID string) ([]*models.Workflow, error)
	ActiveByTrigger(ctx context.Context, organizationID string, triggerType models.TriggerType) ([]*models.Workflow, error)
	// ActiveByTriggerType returns active workflows of a trigger type across all organizations.
	ActiveByTriggerType(ctx context.Context, triggerType models.TriggerType) ([]*models.Workflow, error)
	// RecordExecution increments the execution counter by one and sets the last-executed timestamp.
	// Concurrent calls must not lose increments.
	RecordExecution(ctx context.Context, id string, executedAt time.Time) error
}

// ExecutionRepository stores the history of workflow runs.
type ExecutionRepository interface {
	Create(ctx context.Context, execution *models.Execution) error
	Update(ctx context.Context, execution *models.Execution) error
	// ByWorkflow returns at most limit executions of a workflow, newest first.
	ByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.Execution, error)
}

// TaskRepository stores follow-up tasks created by workflows.
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
}

// EntityRepository mutates CRM entities owned by an organization.
type EntityRepository interface {
	UpdateField(ctx context.Context, entityType, entityID, organizationID, field string, value any) error
}
