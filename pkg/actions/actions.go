// Package actions implements the closed set of workflow action kinds.
package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jonboulle/clockwork"

	"github.com/dukex/crmflow/pkg/models"
)

// Action is one decoded workflow step. The set of implementations is closed:
// SendMessage, CreateTask, UpdateField, CallWebhook, Wait and Unknown.
type Action interface {
	Kind() models.ActionKind
	Execute(ctx context.Context, env Env) error

	sealed()
}

// Message is a request to deliver a notification on behalf of an organization.
type Message struct {
	OrganizationID string   `json:"organization_id"`
	From           string   `json:"from,omitempty"`
	To             []string `json:"to"`
	Subject        string   `json:"subject"`
	Body           string   `json:"body_html"`
	TrackOpens     bool     `json:"track_opens"`
	TrackClicks    bool     `json:"track_clicks"`
}

// MessageSender hands messages to the delivery service.
type MessageSender interface {
	SendMessage(ctx context.Context, message Message) error
}

// TaskStore persists follow-up tasks.
type TaskStore interface {
	CreateTask(ctx context.Context, task *models.Task) error
}

// TaskStoreFunc adapts a function, such as a repository's Create method, to TaskStore.
type TaskStoreFunc func(ctx context.Context, task *models.Task) error

func (f TaskStoreFunc) CreateTask(ctx context.Context, task *models.Task) error {
	return f(ctx, task)
}

// EntityUpdater sets a single field on a CRM entity scoped to an organization.
type EntityUpdater interface {
	UpdateField(ctx context.Context, entityType, entityID, organizationID, field string, value any) error
}

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Env is everything an action needs to run: the triggering event, the owning
// organization and the collaborators that perform side effects.
type Env struct {
	OrganizationID string
	TriggerData    map[string]any

	Messages   MessageSender
	Tasks      TaskStore
	Entities   EntityUpdater
	HTTPClient HTTPDoer
	Clock      clockwork.Clock
	Logger     *slog.Logger
}

func (e Env) clock() clockwork.Clock {
	if e.Clock == nil {
		return clockwork.NewRealClock()
	}

	return e.Clock
}

func (e Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}

	return e.Logger
}

// Decode maps a stored action onto its variant. Unrecognized kinds decode to Unknown.
func Decode(action models.Action) (Action, error) {
	switch action.Kind {
	case models.ActionKindSendMessage:
		return decodeInto[SendMessage](action)
	case models.ActionKindCreateTask:
		return decodeInto[CreateTask](action)
	case models.ActionKindUpdateField:
		return decodeInto[UpdateField](action)
	case models.ActionKindCallWebhook:
		return decodeInto[CallWebhook](action)
	case models.ActionKindWait:
		return decodeInto[Wait](action)
	default:
		return Unknown{Type: action.Kind}, nil
	}
}

type variant interface {
	SendMessage | CreateTask | UpdateField | CallWebhook | Wait
}

func decodeInto[T variant](action models.Action) (Action, error) {
	var decoded T

	if len(action.Config) > 0 {
		raw, err := json.Marshal(action.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s config: %w", action.Kind, err)
		}

		err = json.Unmarshal(raw, &decoded)
		if err != nil {
			return nil, &ConfigError{Kind: action.Kind, Err: err}
		}
	}

	result, ok := any(&decoded).(Action)
	if !ok {
		return nil, &ConfigError{Kind: action.Kind, Err: ErrUnknownActionKind}
	}

	return result, nil
}
