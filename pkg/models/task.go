package models

import "time"

const (
	TaskTypeTask      = "task"
	TaskStatusPending = "pending"
)

// Task is a follow-up activity created by a workflow.
type Task struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Type           string    `json:"type"`
	Subject        string    `json:"subject"`
	Description    string    `json:"description,omitempty"`
	AssignedTo     string    `json:"assigned_to,omitempty"`
	DueDate        time.Time `json:"due_date"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}
