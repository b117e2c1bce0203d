// Package messaging hands outgoing messages to the delivery service through the event bus.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dukex/crmflow/pkg/actions"
	"github.com/dukex/crmflow/pkg/eventbus"
	"github.com/dukex/crmflow/pkg/events"
)

// DefaultFrom is used when no sender address is configured.
const DefaultFrom = "noreply@crm.local"

var ErrNoRecipients = errors.New("message has no recipients")

// Outbox publishes a message.send_requested event per message. It implements actions.MessageSender.
type Outbox struct {
	publisher eventbus.EventPublisher
	idgen     func() string
	from      string
	clock     clockwork.Clock
	logger    *slog.Logger
}

type Option func(*Outbox)

func WithClock(clock clockwork.Clock) Option {
	return func(o *Outbox) {
		o.clock = clock
	}
}

// WithIDGenerator sets the generator of event ids, usually EventBus.GenerateID.
func WithIDGenerator(idgen func() string) Option {
	return func(o *Outbox) {
		o.idgen = idgen
	}
}

func NewOutbox(publisher eventbus.EventPublisher, from string, logger *slog.Logger, opts ...Option) *Outbox {
	if from == "" {
		from = DefaultFrom
	}

	outbox := &Outbox{
		publisher: publisher,
		from:      from,
		clock:     clockwork.NewRealClock(),
		logger:    logger.With("module", "messaging"),
		idgen:     func() string { return "" },
	}

	for _, opt := range opts {
		opt(outbox)
	}

	return outbox
}

func (o *Outbox) SendMessage(ctx context.Context, message actions.Message) error {
	if len(message.To) == 0 {
		return ErrNoRecipients
	}

	from := message.From
	if from == "" {
		from = o.from
	}

	event := events.MessageSendRequested{
		BaseEvent: events.BaseEvent{
			ID:             o.idgen(),
			Type:           events.MessageSendRequestedEvent,
			Timestamp:      o.clock.Now().UTC().Truncate(time.Millisecond),
			OrganizationID: message.OrganizationID,
		},
		From:        from,
		To:          message.To,
		Subject:     message.Subject,
		BodyHTML:    message.Body,
		TrackOpens:  message.TrackOpens,
		TrackClicks: message.TrackClicks,
	}

	err := o.publisher.Publish(ctx, message.OrganizationID, event)
	if err != nil {
		return fmt.Errorf("failed to request message delivery: %w", err)
	}

	o.logger.DebugContext(ctx, "Message queued for delivery",
		"organization_id", message.OrganizationID,
		"recipients", len(message.To),
	)

	return nil
}
