package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/dukex/crmflow/pkg/actions"
	"github.com/dukex/crmflow/pkg/eventbus"
	"github.com/dukex/crmflow/pkg/events"
	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
	"github.com/dukex/crmflow/pkg/workflow"
)

const (
	DefaultExecutionsLimit = 50
	MaxExecutionsLimit     = 500
)

type Workflow struct {
	persistence persistence.Persistence
	workflows   persistence.WorkflowRepository
	runner      workflow.Runner
	publisher   eventbus.EventPublisher
	validate    *validator.Validate
	clock       clockwork.Clock
	idgen       func() string
	logger      *slog.Logger
}

type Option func(*Workflow)

// WithWorkflowRepository overrides the backend's workflow repository, e.g. with a cache.
func WithWorkflowRepository(workflows persistence.WorkflowRepository) Option {
	return func(w *Workflow) {
		w.workflows = workflows
	}
}

// WithPublisher publishes workflow.created for every created workflow.
func WithPublisher(publisher eventbus.EventPublisher) Option {
	return func(w *Workflow) {
		w.publisher = publisher
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(w *Workflow) {
		w.clock = clock
	}
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(store persistence.Persistence, runner workflow.Runner, logger *slog.Logger, opts ...Option) *Workflow {
	w := &Workflow{
		persistence: store,
		workflows:   store.WorkflowRepository(),
		runner:      runner,
		validate:    models.NewValidator(),
		clock:       clockwork.NewRealClock(),
		idgen:       newID,
		logger:      logger.With("module", "workflow_service"),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// CreateWorkflowRequest is the authoring input of a workflow.
type CreateWorkflowRequest struct {
	OrganizationID string             `json:"organization_id"`
	Name           string             `json:"name"`
	Description    string             `json:"description"`
	TriggerType    models.TriggerType `json:"trigger_type"`
	TriggerConfig  map[string]any     `json:"trigger_config"`
	Conditions     []models.Condition `json:"conditions"`
	Actions        []models.Action    `json:"actions"`
	IsActive       *bool              `json:"is_active"`
	CreatedBy      string             `json:"created_by"`
}

// CreateWorkflow validates and stores a new workflow. Workflows are active unless
// the request says otherwise.
func (w *Workflow) CreateWorkflow(ctx context.Context, req CreateWorkflowRequest) (*models.Workflow, error) {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	now := w.clock.Now().UTC()
	wf := &models.Workflow{
		ID:             w.idgen(),
		OrganizationID: req.OrganizationID,
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
		TriggerType:    req.TriggerType,
		TriggerConfig:  req.TriggerConfig,
		Conditions:     req.Conditions,
		Actions:        req.Actions,
		Active:         active,
		CreatedBy:      req.CreatedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if wf.Conditions == nil {
		wf.Conditions = []models.Condition{}
	}

	if wf.Actions == nil {
		wf.Actions = []models.Action{}
	}

	err := w.validateWorkflow(wf)
	if err != nil {
		return nil, err
	}

	err = w.workflows.Save(ctx, wf)
	if err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	w.logger.InfoContext(ctx, "Workflow created",
		"workflow_id", wf.ID,
		"organization_id", wf.OrganizationID,
		"trigger_type", wf.TriggerType,
	)

	w.publishCreated(ctx, wf)

	return wf, nil
}

func (w *Workflow) validateWorkflow(wf *models.Workflow) error {
	err := w.validate.Struct(wf)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			fields := make([]string, 0, len(validationErrors))
			for _, fieldErr := range validationErrors {
				fields = append(fields, fmt.Sprintf("%s (%s)", fieldErr.Namespace(), fieldErr.Tag()))
			}

			return NewValidationError("CreateWorkflow", "invalid_workflow",
				"invalid fields: "+strings.Join(fields, ", "), fmt.Errorf("%w: %w", ErrInvalidWorkflowFields, err))
		}

		return NewValidationError("CreateWorkflow", "invalid_workflow", err.Error(), fmt.Errorf("%w: %w", ErrInvalidRequest, err))
	}

	for i, action := range wf.Actions {
		err = actions.ValidateConfig(action)
		if err != nil {
			return NewValidationError("CreateWorkflow", "invalid_action",
				fmt.Sprintf("action %d: %v", i, err), fmt.Errorf("%w: %w", ErrInvalidActionConfig, err))
		}
	}

	return nil
}

func (w *Workflow) publishCreated(ctx context.Context, wf *models.Workflow) {
	if w.publisher == nil {
		return
	}

	err := w.publisher.Publish(ctx, wf.ID, events.WorkflowCreated{
		BaseEvent: events.BaseEvent{
			ID:             w.idgen(),
			Type:           events.WorkflowCreatedEvent,
			Timestamp:      wf.CreatedAt,
			OrganizationID: wf.OrganizationID,
		},
		WorkflowID:  wf.ID,
		TriggerType: string(wf.TriggerType),
	})
	if err != nil {
		w.logger.WarnContext(ctx, "Failed to publish workflow.created", "workflow_id", wf.ID, "error", err)
	}
}

// ListWorkflows returns an organization's workflows, newest first.
func (w *Workflow) ListWorkflows(ctx context.Context, organizationID string) ([]*models.Workflow, error) {
	if strings.TrimSpace(organizationID) == "" {
		return nil, ErrEmptyOrganizationID
	}

	workflows, err := w.workflows.ListByOrganization(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

func (w *Workflow) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	wf, err := w.workflows.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	return wf, nil
}

// ListExecutions returns a workflow's most recent executions. A non-positive
// limit means DefaultExecutionsLimit.
func (w *Workflow) ListExecutions(ctx context.Context, workflowID string, limit int) ([]*models.Execution, error) {
	if limit <= 0 {
		limit = DefaultExecutionsLimit
	}

	if limit > MaxExecutionsLimit {
		return nil, fmt.Errorf("%w: must be at most %d", ErrInvalidLimit, MaxExecutionsLimit)
	}

	_, err := w.workflows.GetByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	executions, err := w.persistence.ExecutionRepository().ByWorkflow(ctx, workflowID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	return executions, nil
}

// TriggerManual runs a manual workflow synchronously. The organization_id of
// the trigger data is always the workflow's own.
func (w *Workflow) TriggerManual(ctx context.Context, workflowID string, data map[string]any) (*models.Execution, error) {
	wf, err := w.workflows.ActiveByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	if wf.TriggerType != models.TriggerTypeManual {
		return nil, NewValidationError("TriggerManual", "not_manual",
			fmt.Sprintf("workflow %s uses the %s trigger", wf.ID, wf.TriggerType), ErrWorkflowNotManual)
	}

	triggerData := maps.Clone(data)
	if triggerData == nil {
		triggerData = map[string]any{}
	}

	triggerData["organization_id"] = wf.OrganizationID

	return w.runner.ExecuteWorkflow(ctx, wf.ID, triggerData)
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}
