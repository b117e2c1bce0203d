package eventbus_test

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/crmflow/pkg/channels/gochannel"
	"github.com/dukex/crmflow/pkg/eventbus"
	"github.com/dukex/crmflow/pkg/events"
)

type leadCreated struct {
	OrganizationID string `json:"organization_id"`
	Email          string `json:"email"`
}

func (leadCreated) GetType() events.EventType {
	return events.LeadCreatedEvent
}

func newTestBus(t *testing.T) (*eventbus.WatermillEventBus, message.Publisher) {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub, slog.New(slog.DiscardHandler))
	t.Cleanup(func() { _ = bus.Close() })

	return bus, pub
}

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	bus, _ := newTestBus(t)
	received := make(chan map[string]any, 1)

	require.NoError(t, bus.Handle(events.LeadCreatedEvent, func(_ context.Context, payload map[string]any) error {
		received <- payload

		return nil
	}))
	require.NoError(t, bus.Subscribe(t.Context()))

	require.NoError(t, bus.Publish(t.Context(), "org-1", leadCreated{OrganizationID: "org-1", Email: "a@b.co"}))

	select {
	case payload := <-received:
		assert.Equal(t, "org-1", payload["organization_id"])
		assert.Equal(t, "a@b.co", payload["email"])
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestWatermillEventBus_RoutesByTopic(t *testing.T) {
	bus, _ := newTestBus(t)
	leads := make(chan map[string]any, 1)
	deals := make(chan map[string]any, 1)

	require.NoError(t, bus.Handle(events.LeadCreatedEvent, func(_ context.Context, payload map[string]any) error {
		leads <- payload

		return nil
	}))
	require.NoError(t, bus.Handle(events.DealStageChangedEvent, func(_ context.Context, payload map[string]any) error {
		deals <- payload

		return nil
	}))
	require.NoError(t, bus.Subscribe(t.Context()))

	require.NoError(t, bus.Publish(t.Context(), "org-1", leadCreated{OrganizationID: "org-1"}))

	select {
	case <-leads:
	case <-time.After(5 * time.Second):
		t.Fatal("lead event was not delivered")
	}

	select {
	case <-deals:
		t.Fatal("deal handler received a lead event")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatermillEventBus_MalformedPayloadIsDropped(t *testing.T) {
	bus, pub := newTestBus(t)
	received := make(chan map[string]any, 2)

	require.NoError(t, bus.Handle(events.ContactUpdatedEvent, func(_ context.Context, payload map[string]any) error {
		received <- payload

		return nil
	}))
	require.NoError(t, bus.Subscribe(t.Context()))

	require.NoError(t, pub.Publish(events.ContactUpdatedEvent.Topic(), message.NewMessage(watermill.NewUUID(), []byte("not json"))))
	require.NoError(t, pub.Publish(events.ContactUpdatedEvent.Topic(), message.NewMessage(watermill.NewUUID(), []byte(`{"organization_id":"org-2"}`))))

	select {
	case payload := <-received:
		assert.Equal(t, "org-2", payload["organization_id"])
	case <-time.After(5 * time.Second):
		t.Fatal("valid event after a malformed one was not delivered")
	}
}

func TestWatermillEventBus_HandlerErrorIsRedelivered(t *testing.T) {
	bus, _ := newTestBus(t)
	attempts := make(chan struct{}, 4)

	var calls atomic.Int32

	require.NoError(t, bus.Handle(events.LeadCreatedEvent, func(_ context.Context, _ map[string]any) error {
		attempts <- struct{}{}
		if calls.Add(1) == 1 {
			return errors.New("transient")
		}

		return nil
	}))
	require.NoError(t, bus.Subscribe(t.Context()))
	require.NoError(t, bus.Publish(t.Context(), "org-1", leadCreated{OrganizationID: "org-1"}))

	for range 2 {
		select {
		case <-attempts:
		case <-time.After(5 * time.Second):
			t.Fatal("nacked event was not redelivered")
		}
	}
}

func TestWatermillEventBus_HandleAfterSubscribe(t *testing.T) {
	bus, _ := newTestBus(t)

	require.NoError(t, bus.Subscribe(t.Context()))

	err := bus.Handle(events.LeadCreatedEvent, func(context.Context, map[string]any) error { return nil })
	require.ErrorIs(t, err, eventbus.ErrAlreadySubscribed)
	require.ErrorIs(t, bus.Subscribe(t.Context()), eventbus.ErrAlreadySubscribed)
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus, _ := newTestBus(t)

	assert.NotEmpty(t, bus.GenerateID())
	assert.NotEqual(t, bus.GenerateID(), bus.GenerateID())
}

func TestWatermillEventBus_DrainWaitsForHandlers(t *testing.T) {
	bus, _ := newTestBus(t)
	started := make(chan struct{})
	release := make(chan struct{})

	require.NoError(t, bus.Handle(events.LeadCreatedEvent, func(context.Context, map[string]any) error {
		close(started)
		<-release

		return nil
	}))

	ctx, cancel := context.WithCancel(t.Context())
	require.NoError(t, bus.Subscribe(ctx))
	require.NoError(t, bus.Publish(t.Context(), "org-1", leadCreated{OrganizationID: "org-1"}))

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}

	cancel()

	short, cancelShort := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancelShort()

	require.ErrorIs(t, bus.Drain(short), context.DeadlineExceeded)

	close(release)

	drainCtx, cancelDrain := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancelDrain()

	require.NoError(t, bus.Drain(drainCtx))
}
