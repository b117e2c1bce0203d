package models

import "github.com/go-playground/validator/v10"

// NewValidator returns a validator aware of the workflow-specific tags.
func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())

	_ = validate.RegisterValidation("trigger_type", func(fl validator.FieldLevel) bool {
		return TriggerType(fl.Field().String()).IsValid()
	})

	validate.RegisterStructValidation(func(sl validator.StructLevel) {
		workflow, ok := sl.Current().Interface().(Workflow)
		if !ok || workflow.TriggerType != TriggerTypeScheduled {
			return
		}

		if _, err := ParseSchedule(workflow.Schedule()); err != nil {
			sl.ReportError(workflow.TriggerConfig, "TriggerConfig", "trigger_config", "cron", workflow.Schedule())
		}
	}, Workflow{})

	return validate
}
