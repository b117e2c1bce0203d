package web

import "github.com/dukex/crmflow/pkg/models"

// CreateWorkflowRequest represents the request body for creating a new workflow.
type CreateWorkflowRequest struct {
	OrganizationID string             `json:"organization_id" validate:"required"`
	Name           string             `json:"name"            validate:"required,min=3"`
	Description    string             `json:"description"`
	TriggerType    models.TriggerType `json:"trigger_type"    validate:"required"`
	TriggerConfig  map[string]any     `json:"trigger_config"`
	Conditions     []models.Condition `json:"conditions"`
	Actions        []models.Action    `json:"actions"`
	IsActive       *bool              `json:"is_active"`
	CreatedBy      string             `json:"created_by"`
}

// WorkflowsResponse is the body of the workflow listing.
type WorkflowsResponse struct {
	Workflows  []*models.Workflow `json:"workflows"`
	TotalCount int                `json:"total_count"`
}

// ExecutionsResponse is the body of a workflow's execution history.
type ExecutionsResponse struct {
	Executions []*models.Execution `json:"executions"`
	Limit      int                 `json:"limit"`
}
