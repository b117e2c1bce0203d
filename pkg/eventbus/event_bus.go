// Package eventbus provides the event-driven communication used to receive CRM
// domain events and publish workflow notifications.
package eventbus

import (
	"context"

	"github.com/dukex/crmflow/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// EventHandler receives the decoded JSON payload of one message.
type EventHandler func(ctx context.Context, payload map[string]any) error

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
	// Drain blocks until every consumer started by Subscribe has returned.
	// Consumers return once the Subscribe context is done or the bus is closed.
	Drain(ctx context.Context) error
}

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
