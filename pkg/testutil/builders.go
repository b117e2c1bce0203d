// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"github.com/google/uuid"

	"github.com/dukex/crmflow/pkg/models"
)

// CreateTestWorkflow creates an active manual workflow with one create_task
// action. Overrides are applied in order.
func CreateTestWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	workflow := &models.Workflow{
		ID:             uuid.New().String(),
		OrganizationID: "org-test",
		Name:           "Test Workflow",
		TriggerType:    models.TriggerTypeManual,
		Actions: []models.Action{
			CreateTestAction(models.ActionKindCreateTask, map[string]any{"title": "Follow up"}),
		},
		Active: true,
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// CreateTestAction creates an action without delay.
func CreateTestAction(kind models.ActionKind, config map[string]any) models.Action {
	return models.Action{Kind: kind, Config: config}
}

// WithID sets the workflow id and derives its name from it.
func WithID(id string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.ID = id
		w.Name = "Workflow " + id
	}
}

// WithOrganization sets the owning organization.
func WithOrganization(organizationID string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.OrganizationID = organizationID
	}
}

// WithTrigger sets the trigger type and config.
func WithTrigger(triggerType models.TriggerType, config map[string]any) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.TriggerType = triggerType
		w.TriggerConfig = config
	}
}

// WithSchedule makes the workflow a scheduled one running on expression.
func WithSchedule(expression string) func(*models.Workflow) {
	return WithTrigger(models.TriggerTypeScheduled, map[string]any{"schedule": expression})
}

// WithConditions replaces the conditions.
func WithConditions(conditions ...models.Condition) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Conditions = conditions
	}
}

// WithActions replaces the actions.
func WithActions(actions ...models.Action) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Actions = actions
	}
}

// Inactive deactivates the workflow.
func Inactive() func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Active = false
	}
}
