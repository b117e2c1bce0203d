package mocks

import (
	"context"
	"net/http"

	"github.com/stretchr/testify/mock"

	"github.com/dukex/crmflow/pkg/actions"
	"github.com/dukex/crmflow/pkg/models"
)

// MockMessageSender is a mock implementation of actions.MessageSender interface.
type MockMessageSender struct {
	mock.Mock
}

func (m *MockMessageSender) SendMessage(ctx context.Context, message actions.Message) error {
	args := m.Called(ctx, message)

	return args.Error(0)
}

// MockTaskStore is a mock implementation of actions.TaskStore interface.
type MockTaskStore struct {
	mock.Mock
}

func (m *MockTaskStore) CreateTask(ctx context.Context, task *models.Task) error {
	args := m.Called(ctx, task)

	return args.Error(0)
}

// MockEntityUpdater is a mock implementation of actions.EntityUpdater interface.
type MockEntityUpdater struct {
	mock.Mock
}

func (m *MockEntityUpdater) UpdateField(
	ctx context.Context,
	entityType, entityID, organizationID, field string,
	value any,
) error {
	args := m.Called(ctx, entityType, entityID, organizationID, field, value)

	return args.Error(0)
}

// MockHTTPDoer is a mock implementation of actions.HTTPDoer interface.
type MockHTTPDoer struct {
	mock.Mock
}

func (m *MockHTTPDoer) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)

	resp, _ := args.Get(0).(*http.Response)

	return resp, args.Error(1)
}
