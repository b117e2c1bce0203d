package postgresql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukex/crmflow/pkg/models"
)

// TaskRepository stores workflow tasks in the activities table.
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a task as an activity row.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO activities (
			id, organization_id, type, subject, description,
			assigned_to, due_date, status, created_at
		) VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9)
	`,
		task.ID,
		task.OrganizationID,
		task.Type,
		task.Subject,
		task.Description,
		task.AssignedTo,
		task.DueDate,
		task.Status,
		task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task %s: %w", task.ID, err)
	}

	return nil
}
