package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
)

// ExecutionRepository handles workflow_executions database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

// Create inserts a new execution.
func (r *ExecutionRepository) Create(ctx context.Context, execution *models.Execution) error {
	triggerData, err := marshalTriggerData(execution.TriggerData)
	if err != nil {
		return &persistence.ExecutionError{Op: "Create", ExecutionID: execution.ID, Err: err}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflow_executions (
			id, workflow_id, organization_id, trigger_data, status,
			current_step, error_message, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9)
	`,
		execution.ID,
		execution.WorkflowID,
		execution.OrganizationID,
		triggerData,
		string(execution.Status),
		execution.CurrentStep,
		execution.ErrorMessage,
		execution.StartedAt,
		execution.CompletedAt,
	)
	if err != nil {
		return &persistence.ExecutionError{Op: "Create", ExecutionID: execution.ID, Err: err}
	}

	return nil
}

// Update writes the mutable fields of an execution that has not finished yet.
func (r *ExecutionRepository) Update(ctx context.Context, execution *models.Execution) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE workflow_executions
		SET status = $2, current_step = $3, error_message = NULLIF($4, ''), completed_at = $5
		WHERE id = $1 AND status NOT IN ('completed', 'failed')
	`,
		execution.ID,
		string(execution.Status),
		execution.CurrentStep,
		execution.ErrorMessage,
		execution.CompletedAt,
	)
	if err != nil {
		return &persistence.ExecutionError{Op: "Update", ExecutionID: execution.ID, Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &persistence.ExecutionError{Op: "Update", ExecutionID: execution.ID, Err: err}
	}

	if affected > 0 {
		return nil
	}

	var exists bool

	err = r.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM workflow_executions WHERE id = $1)", execution.ID,
	).Scan(&exists)
	if err != nil {
		return &persistence.ExecutionError{Op: "Update", ExecutionID: execution.ID, Err: err}
	}

	if exists {
		return &persistence.ExecutionError{Op: "Update", ExecutionID: execution.ID, Err: persistence.ErrExecutionTerminal}
	}

	return &persistence.ExecutionError{Op: "Update", ExecutionID: execution.ID, Err: persistence.ErrExecutionNotFound}
}

// ByWorkflow returns at most limit executions of a workflow, newest first.
func (r *ExecutionRepository) ByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.Execution, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			id
		  , workflow_id
		  , organization_id
		  , trigger_data
		  , status
		  , current_step
		  , error_message
		  , started_at
		  , completed_at
		FROM workflow_executions
		WHERE workflow_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`, workflowID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions of workflow %s: %w", workflowID, err)
	}

	defer closeRows(ctx, r.logger, rows)

	executions := make([]*models.Execution, 0)

	for rows.Next() {
		var (
			execution    models.Execution
			triggerData  []byte
			status       string
			errorMessage sql.NullString
			completedAt  sql.NullTime
		)

		err := rows.Scan(
			&execution.ID,
			&execution.WorkflowID,
			&execution.OrganizationID,
			&triggerData,
			&status,
			&execution.CurrentStep,
			&errorMessage,
			&execution.StartedAt,
			&completedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		execution.Status = models.ExecutionStatus(status)
		execution.ErrorMessage = errorMessage.String

		if completedAt.Valid {
			at := completedAt.Time
			execution.CompletedAt = &at
		}

		err = json.Unmarshal(triggerData, &execution.TriggerData)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal trigger_data of execution %s: %w", execution.ID, err)
		}

		executions = append(executions, &execution)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

func marshalTriggerData(data map[string]any) ([]byte, error) {
	if data == nil {
		data = map[string]any{}
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal trigger_data: %w", err)
	}

	return encoded, nil
}
