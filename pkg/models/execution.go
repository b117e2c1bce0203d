package models

import "time"

// ExecutionStatus represents the lifecycle state of a workflow run.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusPaused    ExecutionStatus = "paused" // Reserved; no action pauses a run today
)

// IsTerminal reports whether no further transition is allowed from s.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed
}

// Execution is the record of one run of a workflow against one trigger event.
type Execution struct {
	ID             string          `json:"id"`
	WorkflowID     string          `json:"workflow_id"`
	OrganizationID string          `json:"organization_id"`
	TriggerData    map[string]any  `json:"trigger_data,omitempty"`
	Status         ExecutionStatus `json:"status"`
	CurrentStep    int             `json:"current_step"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	StartedAt      time.Time       `json:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`

	// Skipped marks a transient result returned when conditions were not met.
	// Skipped executions are never persisted.
	Skipped bool `json:"skipped,omitempty"`
}
