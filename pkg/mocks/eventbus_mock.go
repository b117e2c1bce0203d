package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dukex/crmflow/pkg/eventbus"
	"github.com/dukex/crmflow/pkg/events"
)

// MockEventBus is a mock implementation of eventbus.EventBus.
type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, key string, event eventbus.Event) error {
	args := m.Called(ctx, key, event)

	return args.Error(0)
}

func (m *MockEventBus) Handle(eventType events.EventType, handler eventbus.EventHandler) error {
	args := m.Called(eventType, handler)

	return args.Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockEventBus) Drain(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockEventBus) Close() error {
	args := m.Called()

	return args.Error(0)
}

func (m *MockEventBus) GenerateID() string {
	args := m.Called()

	return args.String(0)
}

// OnPublishType expects the publication of an event of eventType under key.
// Pass mock.Anything as key to accept any partition key.
func (m *MockEventBus) OnPublishType(key any, eventType events.EventType) *mock.Call {
	return m.On("Publish", mock.Anything, key, mock.MatchedBy(func(event eventbus.Event) bool {
		return event.GetType() == eventType
	}))
}

// PublishedTypes returns the types of the events published so far, in order.
func (m *MockEventBus) PublishedTypes() []events.EventType {
	var published []events.EventType

	for _, call := range m.Calls {
		if call.Method != "Publish" {
			continue
		}

		if event, ok := call.Arguments.Get(2).(eventbus.Event); ok {
			published = append(published, event.GetType())
		}
	}

	return published
}
