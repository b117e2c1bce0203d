package messaging_test

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dukex/crmflow/pkg/actions"
	"github.com/dukex/crmflow/pkg/events"
	"github.com/dukex/crmflow/pkg/messaging"
	"github.com/dukex/crmflow/pkg/mocks"
)

func TestOutbox_SendMessage(t *testing.T) {
	bus := &mocks.MockEventBus{}
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	outbox := messaging.NewOutbox(bus, "", slog.New(slog.DiscardHandler),
		messaging.WithClock(clock),
		messaging.WithIDGenerator(func() string { return "evt-1" }),
	)

	bus.On("Publish", mock.Anything, "org-1", mock.MatchedBy(func(event events.MessageSendRequested) bool {
		return event.ID == "evt-1" &&
			event.OrganizationID == "org-1" &&
			event.From == messaging.DefaultFrom &&
			assert.ObjectsAreEqual([]string{"ann@example.com"}, event.To) &&
			event.Subject == "Hi" &&
			event.BodyHTML == "<p>Hello</p>" &&
			event.TrackOpens && event.TrackClicks &&
			event.Timestamp.Equal(clock.Now())
	})).Return(nil).Once()

	err := outbox.SendMessage(t.Context(), actions.Message{
		OrganizationID: "org-1",
		To:             []string{"ann@example.com"},
		Subject:        "Hi",
		Body:           "<p>Hello</p>",
		TrackOpens:     true,
		TrackClicks:    true,
	})

	require.NoError(t, err)
	bus.AssertExpectations(t)
}

func TestOutbox_ConfiguredAndExplicitFrom(t *testing.T) {
	bus := &mocks.MockEventBus{}
	outbox := messaging.NewOutbox(bus, "sales@acme.io", slog.New(slog.DiscardHandler))

	bus.On("Publish", mock.Anything, "org-1", mock.MatchedBy(func(event events.MessageSendRequested) bool {
		return event.From == "sales@acme.io"
	})).Return(nil).Once()
	bus.On("Publish", mock.Anything, "org-1", mock.MatchedBy(func(event events.MessageSendRequested) bool {
		return event.From == "owner@acme.io"
	})).Return(nil).Once()

	require.NoError(t, outbox.SendMessage(t.Context(), actions.Message{OrganizationID: "org-1", To: []string{"a@b.co"}}))
	require.NoError(t, outbox.SendMessage(t.Context(), actions.Message{OrganizationID: "org-1", From: "owner@acme.io", To: []string{"a@b.co"}}))
	bus.AssertExpectations(t)
}

func TestOutbox_Errors(t *testing.T) {
	bus := &mocks.MockEventBus{}
	outbox := messaging.NewOutbox(bus, "", slog.New(slog.DiscardHandler))

	err := outbox.SendMessage(t.Context(), actions.Message{OrganizationID: "org-1"})
	require.ErrorIs(t, err, messaging.ErrNoRecipients)

	publishErr := errors.New("broker down")
	bus.On("Publish", mock.Anything, "org-1", mock.Anything).Return(publishErr).Once()

	err = outbox.SendMessage(t.Context(), actions.Message{OrganizationID: "org-1", To: []string{"a@b.co"}})
	require.ErrorIs(t, err, publishErr)
}
