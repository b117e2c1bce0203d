package models

import "time"

// ActionKind identifies one of the supported side-effecting steps.
type ActionKind string

const (
	ActionKindSendMessage ActionKind = "send_message"
	ActionKindCreateTask  ActionKind = "create_task"
	ActionKindUpdateField ActionKind = "update_field"
	ActionKindCallWebhook ActionKind = "call_webhook"
	ActionKindWait        ActionKind = "wait"
)

// Action is one step of a workflow. Config is interpreted by the action kind.
type Action struct {
	Kind         ActionKind     `json:"type"                    validate:"required"`
	Config       map[string]any `json:"config"`
	DelayMinutes float64        `json:"delay_minutes,omitempty" validate:"min=0"`
}

// Delay is the pause before the action runs. Fractional minutes are honored.
func (a Action) Delay() time.Duration {
	return time.Duration(a.DelayMinutes * float64(time.Minute))
}
