package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
)

const workflowColumns = `
			id
		  , organization_id
		  , name
		  , description
		  , trigger_type
		  , trigger_config
		  , conditions
		  , actions
		  , is_active
		  , execution_count
		  , last_executed_at
		  , created_by
		  , created_at
		  , updated_at`

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

// Save inserts or updates a workflow definition. The execution counter is
// owned by RecordExecution and is never overwritten here.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	triggerConfig, conditions, actions, err := encodeWorkflowDocuments(workflow)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	query := `
		INSERT INTO workflows (
			id, organization_id, name, description, trigger_type, trigger_config,
			conditions, actions, is_active, execution_count, last_executed_at,
			created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''), $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			organization_id = EXCLUDED.organization_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			trigger_type = EXCLUDED.trigger_type,
			trigger_config = EXCLUDED.trigger_config,
			conditions = EXCLUDED.conditions,
			actions = EXCLUDED.actions,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.OrganizationID,
		workflow.Name,
		workflow.Description,
		string(workflow.TriggerType),
		triggerConfig,
		conditions,
		actions,
		workflow.Active,
		workflow.ExecutionCount,
		workflow.LastExecutedAt,
		workflow.CreatedBy,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

// GetByID returns a workflow regardless of its active flag.
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	return r.getOne(ctx, "GetByID", id, `SELECT`+workflowColumns+` FROM workflows WHERE id = $1`)
}

// ActiveByID returns an active workflow.
func (r *WorkflowRepository) ActiveByID(ctx context.Context, id string) (*models.Workflow, error) {
	return r.getOne(ctx, "ActiveByID", id, `SELECT`+workflowColumns+` FROM workflows WHERE id = $1 AND is_active = true`)
}

// ListByOrganization returns an organization's workflows, newest first.
func (r *WorkflowRepository) ListByOrganization(ctx context.Context, organizationID string) ([]*models.Workflow, error) {
	workflows, err := r.list(ctx,
		`SELECT`+workflowColumns+` FROM workflows WHERE organization_id = $1 ORDER BY created_at DESC`,
		organizationID,
	)
	if err != nil {
		return nil, &persistence.WorkflowError{Op: "ListByOrganization", OrganizationID: organizationID, Err: err}
	}

	return workflows, nil
}

// ActiveByTrigger returns the active workflows of an organization for a trigger type.
func (r *WorkflowRepository) ActiveByTrigger(
	ctx context.Context,
	organizationID string,
	triggerType models.TriggerType,
) ([]*models.Workflow, error) {
	workflows, err := r.list(ctx, `SELECT`+workflowColumns+`
		FROM workflows
		WHERE organization_id = $1 AND trigger_type = $2 AND is_active = true
		ORDER BY created_at`,
		organizationID, string(triggerType),
	)
	if err != nil {
		return nil, &persistence.WorkflowError{Op: "ActiveByTrigger", OrganizationID: organizationID, Err: err}
	}

	return workflows, nil
}

// ActiveByTriggerType returns active workflows of a trigger type across organizations.
func (r *WorkflowRepository) ActiveByTriggerType(ctx context.Context, triggerType models.TriggerType) ([]*models.Workflow, error) {
	workflows, err := r.list(ctx, `SELECT`+workflowColumns+`
		FROM workflows
		WHERE trigger_type = $1 AND is_active = true
		ORDER BY created_at`,
		string(triggerType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s workflows: %w", triggerType, err)
	}

	return workflows, nil
}

// RecordExecution increments the execution counter in a single statement.
func (r *WorkflowRepository) RecordExecution(ctx context.Context, id string, executedAt time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE workflows
		SET execution_count = execution_count + 1, last_executed_at = $1, updated_at = NOW()
		WHERE id = $2
	`, executedAt.UTC(), id)
	if err != nil {
		return persistence.NewWorkflowError("RecordExecution", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewWorkflowError("RecordExecution", id, err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("RecordExecution", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func (r *WorkflowRepository) getOne(ctx context.Context, op, id, query string) (*models.Workflow, error) {
	workflow, err := scanWorkflow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError(op, id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError(op, id, err)
	}

	return workflow, nil
}

func (r *WorkflowRepository) list(ctx context.Context, query string, args ...any) ([]*models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row scanner) (*models.Workflow, error) {
	var (
		workflow                           models.Workflow
		triggerType                        string
		triggerConfig, conditions, actions []byte
		lastExecutedAt                     sql.NullTime
		createdBy                          sql.NullString
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.OrganizationID,
		&workflow.Name,
		&workflow.Description,
		&triggerType,
		&triggerConfig,
		&conditions,
		&actions,
		&workflow.Active,
		&workflow.ExecutionCount,
		&lastExecutedAt,
		&createdBy,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	workflow.TriggerType = models.TriggerType(triggerType)
	workflow.CreatedBy = createdBy.String

	if lastExecutedAt.Valid {
		at := lastExecutedAt.Time
		workflow.LastExecutedAt = &at
	}

	err = json.Unmarshal(triggerConfig, &workflow.TriggerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger_config: %w", err)
	}

	err = json.Unmarshal(conditions, &workflow.Conditions)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal conditions: %w", err)
	}

	err = json.Unmarshal(actions, &workflow.Actions)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal actions: %w", err)
	}

	return &workflow, nil
}

func encodeWorkflowDocuments(workflow *models.Workflow) ([]byte, []byte, []byte, error) {
	triggerConfig := workflow.TriggerConfig
	if triggerConfig == nil {
		triggerConfig = map[string]any{}
	}

	conditions := workflow.Conditions
	if conditions == nil {
		conditions = []models.Condition{}
	}

	actions := workflow.Actions
	if actions == nil {
		actions = []models.Action{}
	}

	triggerConfigJSON, err := json.Marshal(triggerConfig)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal trigger_config: %w", err)
	}

	conditionsJSON, err := json.Marshal(conditions)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal conditions: %w", err)
	}

	actionsJSON, err := json.Marshal(actions)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal actions: %w", err)
	}

	return triggerConfigJSON, conditionsJSON, actionsJSON, nil
}
