package actions

import (
	"context"
	"fmt"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/template"
)

// UpdateField sets one field on the entity that triggered the run.
// The entity type and id come from the trigger data, not from the config.
type UpdateField struct {
	FieldName  string `json:"field_name"  validate:"required"`
	FieldValue any    `json:"field_value"`
}

func (*UpdateField) sealed() {}

// Kind implements Action.
func (*UpdateField) Kind() models.ActionKind { return models.ActionKindUpdateField }

// Execute implements Action.
func (a *UpdateField) Execute(ctx context.Context, env Env) error {
	entityType := template.Stringify(env.TriggerData["entity_type"])
	entityID := template.Stringify(env.TriggerData["entity_id"])

	var missing []string

	if entityType == "" {
		missing = append(missing, "entity_type")
	}

	if entityID == "" {
		missing = append(missing, "entity_id")
	}

	if a.FieldName == "" {
		missing = append(missing, "field_name")
	}

	if len(missing) > 0 {
		return &MissingFieldError{Fields: missing}
	}

	if env.Entities == nil {
		return fmt.Errorf("update_field: %w", ErrMissingCollaborator)
	}

	value := template.Interpolate(a.FieldValue, env.TriggerData)

	err := env.Entities.UpdateField(ctx, entityType, entityID, env.OrganizationID, a.FieldName, value)
	if err != nil {
		return fmt.Errorf("failed to update %s.%s: %w", entityType, a.FieldName, err)
	}

	env.logger().InfoContext(ctx, "Field updated via workflow", "entity_type", entityType, "field", a.FieldName)

	return nil
}
