package models

// TriggerType is the domain event kind that makes a workflow eligible to run.
type TriggerType string

const (
	TriggerTypeEntityCreated      TriggerType = "entity_created"
	TriggerTypeEntityStageChanged TriggerType = "entity_stage_changed"
	TriggerTypeEntityUpdated      TriggerType = "entity_updated"
	TriggerTypeScheduled          TriggerType = "scheduled"
	TriggerTypeManual             TriggerType = "manual"
)

// TriggerTypes lists every supported trigger type.
var TriggerTypes = []TriggerType{
	TriggerTypeEntityCreated,
	TriggerTypeEntityStageChanged,
	TriggerTypeEntityUpdated,
	TriggerTypeScheduled,
	TriggerTypeManual,
}

// IsValid reports whether t is one of the supported trigger types.
func (t TriggerType) IsValid() bool {
	for _, known := range TriggerTypes {
		if t == known {
			return true
		}
	}

	return false
}
