package actions

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/template"
)

// CreateTask records a follow-up task due a number of days after the run.
type CreateTask struct {
	Title             string `json:"title"`
	Description       string `json:"description,omitempty"`
	LegacyTitle       string `json:"task_title,omitempty"`
	LegacyDescription string `json:"task_description,omitempty"`
	AssignTo          string `json:"assign_to,omitempty"`
	DueDateOffsetDays int    `json:"due_date_offset_days,omitempty" validate:"min=0"`
}

func (*CreateTask) sealed() {}

// Kind implements Action.
func (*CreateTask) Kind() models.ActionKind { return models.ActionKindCreateTask }

// Execute implements Action.
func (a *CreateTask) Execute(ctx context.Context, env Env) error {
	if env.Tasks == nil {
		return fmt.Errorf("create_task: %w", ErrMissingCollaborator)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate task id: %w", err)
	}

	now := env.clock().Now().UTC()

	task := &models.Task{
		ID:             id.String(),
		OrganizationID: env.OrganizationID,
		Type:           models.TaskTypeTask,
		Subject:        template.InterpolateString(firstNonEmpty(a.Title, a.LegacyTitle), env.TriggerData),
		Description:    template.InterpolateString(firstNonEmpty(a.Description, a.LegacyDescription), env.TriggerData),
		AssignedTo:     a.AssignTo,
		DueDate:        now.AddDate(0, 0, a.DueDateOffsetDays),
		Status:         models.TaskStatusPending,
		CreatedAt:      now,
	}

	err = env.Tasks.CreateTask(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	env.logger().InfoContext(ctx, "Task created via workflow", "task_id", task.ID)

	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
