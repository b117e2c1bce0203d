// Package models defines the core domain models for CRM workflow automation.
package models

import "time"

// Workflow is a stored automation definition owned by an organization.
// The engine treats it as read-only: a run works on the snapshot loaded at its start.
type Workflow struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organization_id"           validate:"required"`
	Name           string         `json:"name"                      validate:"required,min=3"`
	Description    string         `json:"description,omitempty"`
	TriggerType    TriggerType    `json:"trigger_type"              validate:"required,trigger_type"`
	TriggerConfig  map[string]any `json:"trigger_config,omitempty"`
	Conditions     []Condition    `json:"conditions"                validate:"dive"`
	Actions        []Action       `json:"actions"                   validate:"dive"`
	Active         bool           `json:"is_active"`
	ExecutionCount int64          `json:"execution_count"`
	LastExecutedAt *time.Time     `json:"last_executed_at,omitempty"`
	CreatedBy      string         `json:"created_by,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Schedule returns the cron expression of a scheduled workflow, if any.
func (w *Workflow) Schedule() string {
	if w.TriggerConfig == nil {
		return ""
	}

	schedule, _ := w.TriggerConfig["schedule"].(string)

	return schedule
}
