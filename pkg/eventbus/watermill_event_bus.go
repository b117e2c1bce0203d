package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/dukex/crmflow/pkg/events"
)

// ErrAlreadySubscribed is returned when Handle or Subscribe is called after Subscribe.
var ErrAlreadySubscribed = errors.New("event bus already subscribed")

// WatermillEventBus routes each event type to its own topic.
type WatermillEventBus struct {
	publisher     message.Publisher
	subscriber    message.Subscriber
	logger        *slog.Logger
	mu            sync.Mutex
	subscribed    bool
	subscriptions map[events.EventType]EventHandler
	wg            sync.WaitGroup
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber, logger *slog.Logger) *WatermillEventBus {
	return &WatermillEventBus{
		publisher:     pub,
		subscriber:    sub,
		logger:        logger.With("module", "event_bus"),
		subscriptions: make(map[events.EventType]EventHandler),
	}
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

func (eb *WatermillEventBus) Publish(ctx context.Context, key string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.GetType(), err)
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	err = eb.publisher.Publish(event.GetType().Topic(), msg)
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.GetType(), err)
	}

	return nil
}

// Handle registers the handler of an event type. It must be called before Subscribe.
func (eb *WatermillEventBus) Handle(eventType events.EventType, handler EventHandler) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.subscribed {
		return ErrAlreadySubscribed
	}

	eb.subscriptions[eventType] = handler

	return nil
}

// Subscribe starts one consumer per registered event type.
func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.subscribed {
		return ErrAlreadySubscribed
	}

	for eventType, handler := range eb.subscriptions {
		messages, err := eb.subscriber.Subscribe(ctx, eventType.Topic())
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", eventType, err)
		}

		eb.wg.Add(1)

		go eb.consume(ctx, eventType, handler, messages)
	}

	eb.subscribed = true

	return nil
}

func (eb *WatermillEventBus) consume(
	ctx context.Context,
	eventType events.EventType,
	handler EventHandler,
	messages <-chan *message.Message,
) {
	defer eb.wg.Done()

	for msg := range messages {
		var payload map[string]any

		err := json.Unmarshal(msg.Payload, &payload)
		if err != nil {
			eb.logger.ErrorContext(ctx, "Dropping malformed event",
				"event_type", eventType,
				"message_id", msg.UUID,
				"error", err,
			)
			msg.Ack()

			continue
		}

		err = handler(ctx, payload)
		if err != nil {
			eb.logger.ErrorContext(ctx, "Event handler failed",
				"event_type", eventType,
				"message_id", msg.UUID,
				"error", err,
			)
			msg.Nack()

			continue
		}

		msg.Ack()
	}
}

// Drain waits for the consumers to finish their current message and return.
func (eb *WatermillEventBus) Drain(ctx context.Context) error {
	done := make(chan struct{})

	go func() {
		eb.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops publishing and consuming and waits for consumers to drain.
func (eb *WatermillEventBus) Close() error {
	err := eb.publisher.Close()
	if err != nil {
		return err
	}

	err = eb.subscriber.Close()
	if err != nil {
		return err
	}

	eb.wg.Wait()

	return nil
}
