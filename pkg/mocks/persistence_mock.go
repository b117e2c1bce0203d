package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
)

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	Workflows  *MockWorkflowRepository
	Executions *MockExecutionRepository
	Tasks      *MockTaskRepository
	Entities   *MockEntityUpdater
}

// NewMockPersistence returns a MockPersistence with fresh repository mocks.
func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		Workflows:  &MockWorkflowRepository{},
		Executions: &MockExecutionRepository{},
		Tasks:      &MockTaskRepository{},
		Entities:   &MockEntityUpdater{},
	}
}

func (m *MockPersistence) WorkflowRepository() persistence.WorkflowRepository {
	return m.Workflows
}

func (m *MockPersistence) ExecutionRepository() persistence.ExecutionRepository {
	return m.Executions
}

func (m *MockPersistence) TaskRepository() persistence.TaskRepository {
	return m.Tasks
}

func (m *MockPersistence) EntityRepository() persistence.EntityRepository {
	return m.Entities
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

// MockWorkflowRepository is a mock implementation of persistence.WorkflowRepository interface.
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockWorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) ActiveByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) ListByOrganization(ctx context.Context, organizationID string) ([]*models.Workflow, error) {
	args := m.Called(ctx, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) ActiveByTrigger(
	ctx context.Context,
	organizationID string,
	triggerType models.TriggerType,
) ([]*models.Workflow, error) {
	args := m.Called(ctx, organizationID, triggerType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) ActiveByTriggerType(
	ctx context.Context,
	triggerType models.TriggerType,
) ([]*models.Workflow, error) {
	args := m.Called(ctx, triggerType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) RecordExecution(ctx context.Context, id string, executedAt time.Time) error {
	args := m.Called(ctx, id, executedAt)

	return args.Error(0)
}

// MockExecutionRepository is a mock implementation of persistence.ExecutionRepository interface.
type MockExecutionRepository struct {
	mock.Mock
}

func (m *MockExecutionRepository) Create(ctx context.Context, execution *models.Execution) error {
	args := m.Called(ctx, execution)

	return args.Error(0)
}

func (m *MockExecutionRepository) Update(ctx context.Context, execution *models.Execution) error {
	args := m.Called(ctx, execution)

	return args.Error(0)
}

func (m *MockExecutionRepository) ByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.Execution, error) {
	args := m.Called(ctx, workflowID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Execution), args.Error(1)
}

// MockTaskRepository is a mock implementation of persistence.TaskRepository interface.
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Create(ctx context.Context, task *models.Task) error {
	args := m.Called(ctx, task)

	return args.Error(0)
}
