package file

import (
	"context"
	"fmt"

	"github.com/dukex/crmflow/pkg/models"
)

const tasksCollection = "tasks"

// TaskRepository stores follow-up tasks as files.
type TaskRepository struct {
	store *Persistence
}

// Create stores a task.
func (tr *TaskRepository) Create(_ context.Context, task *models.Task) error {
	tr.store.mu.Lock()
	defer tr.store.mu.Unlock()

	err := tr.store.write(tasksCollection, task.ID, task)
	if err != nil {
		return fmt.Errorf("failed to create task %s: %w", task.ID, err)
	}

	return nil
}

// GetByID loads a task, returning nil when it does not exist.
func (tr *TaskRepository) GetByID(_ context.Context, id string) (*models.Task, error) {
	var task models.Task

	found, err := tr.store.read(tasksCollection, id, &task)
	if err != nil || !found {
		return nil, err
	}

	return &task, nil
}
