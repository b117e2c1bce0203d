package actions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/template"
)

// DefaultSubject is used when a send_message action has no subject.
const DefaultSubject = "CRM Notification"

// Recipients accepts either a single address or a list of addresses.
type Recipients []string

// UnmarshalJSON implements json.Unmarshaler.
func (r *Recipients) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = nil

		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*r = Recipients{single}

		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("recipients must be a string or a list of strings: %w", err)
	}

	*r = many

	return nil
}

// SendMessage notifies one or more recipients through the message sender.
type SendMessage struct {
	To      Recipients `json:"to"                validate:"required,min=1"`
	From    string     `json:"from,omitempty"`
	Subject string     `json:"subject,omitempty"`
	Body    string     `json:"body"`
}

func (*SendMessage) sealed() {}

// Kind implements Action.
func (*SendMessage) Kind() models.ActionKind { return models.ActionKindSendMessage }

// Execute implements Action.
func (a *SendMessage) Execute(ctx context.Context, env Env) error {
	if env.Messages == nil {
		return fmt.Errorf("send_message: %w", ErrMissingCollaborator)
	}

	to := make([]string, 0, len(a.To))
	for _, recipient := range a.To {
		to = append(to, template.InterpolateString(recipient, env.TriggerData))
	}

	subject := template.InterpolateString(a.Subject, env.TriggerData)
	if subject == "" {
		subject = DefaultSubject
	}

	message := Message{
		OrganizationID: env.OrganizationID,
		From:           a.From,
		To:             to,
		Subject:        subject,
		Body:           template.InterpolateString(a.Body, env.TriggerData),
		TrackOpens:     true,
		TrackClicks:    true,
	}

	err := env.Messages.SendMessage(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	env.logger().InfoContext(ctx, "Message sent via workflow", "recipients", len(to))

	return nil
}
