// Package workflow runs workflows: the engine executes one run, the dispatcher
// fans domain events out to the matching workflows.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/crmflow/pkg/actions"
	"github.com/dukex/crmflow/pkg/conditions"
	"github.com/dukex/crmflow/pkg/eventbus"
	"github.com/dukex/crmflow/pkg/events"
	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/otelhelper"
	"github.com/dukex/crmflow/pkg/persistence"
)

// Collaborators perform the side effects of actions.
type Collaborators struct {
	Messages   actions.MessageSender
	Tasks      actions.TaskStore
	Entities   actions.EntityUpdater
	HTTPClient actions.HTTPDoer
}

// Engine executes single workflow runs.
type Engine struct {
	workflows     persistence.WorkflowRepository
	executions    persistence.ExecutionRepository
	collaborators Collaborators
	clock         clockwork.Clock
	tracer        trace.Tracer
	notifier      eventbus.EventPublisher
	idgen         func() string
	logger        *slog.Logger
}

type Option func(*Engine)

func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// WithNotifier publishes workflow.execution.* lifecycle events on publisher.
func WithNotifier(publisher eventbus.EventPublisher) Option {
	return func(e *Engine) {
		e.notifier = publisher
	}
}

func WithIDGenerator(idgen func() string) Option {
	return func(e *Engine) {
		e.idgen = idgen
	}
}

func NewEngine(
	workflows persistence.WorkflowRepository,
	executions persistence.ExecutionRepository,
	collaborators Collaborators,
	logger *slog.Logger,
	opts ...Option,
) *Engine {
	engine := &Engine{
		workflows:     workflows,
		executions:    executions,
		collaborators: collaborators,
		clock:         clockwork.NewRealClock(),
		tracer:        otelhelper.NoopTracer(),
		idgen:         newID,
		logger:        logger.With("module", "workflow_engine"),
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// ExecuteWorkflow runs the active workflow workflowID against triggerData.
//
// When the conditions do not hold it returns a Skipped execution that is neither
// persisted nor counted. When an action fails the run stops, the execution is
// stored as failed, and the final snapshot is returned together with an *ActionError.
func (e *Engine) ExecuteWorkflow(ctx context.Context, workflowID string, triggerData map[string]any) (*models.Execution, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
		attribute.String(otelhelper.WorkflowIDKey, workflowID),
	)
	defer span.End()

	logger := e.logger.With("workflow_id", workflowID)

	workflow, err := e.workflows.ActiveByID(ctx, workflowID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to load workflow %s: %w", workflowID, err)
	}

	span.SetAttributes(
		attribute.String(otelhelper.OrganizationIDKey, workflow.OrganizationID),
		attribute.String(otelhelper.WorkflowNameKey, workflow.Name),
		attribute.String(otelhelper.TriggerTypeKey, string(workflow.TriggerType)),
	)
	logger = logger.With("organization_id", workflow.OrganizationID)

	startedAt := e.clock.Now().UTC()

	if !conditions.Evaluate(workflow.Conditions, triggerData) {
		logger.DebugContext(ctx, "Conditions not met, skipping workflow")

		return &models.Execution{
			ID:             e.idgen(),
			WorkflowID:     workflow.ID,
			OrganizationID: workflow.OrganizationID,
			TriggerData:    triggerData,
			Status:         models.ExecutionStatusCompleted,
			StartedAt:      startedAt,
			CompletedAt:    &startedAt,
			Skipped:        true,
		}, nil
	}

	tracker, err := StartExecution(ctx, e.executions, e.clock, e.idgen(), workflow, triggerData)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	execution := tracker.Snapshot()
	span.SetAttributes(attribute.String(otelhelper.ExecutionIDKey, execution.ID))
	logger = logger.With("execution_id", execution.ID)
	logger.InfoContext(ctx, "Starting workflow execution", "actions", len(workflow.Actions))

	e.notify(ctx, workflow.ID, events.WorkflowExecutionStarted{
		BaseEvent:   e.baseEvent(events.WorkflowExecutionStartedEvent, workflow.OrganizationID),
		WorkflowID:  workflow.ID,
		ExecutionID: execution.ID,
		TriggerData: triggerData,
	})

	env := actions.Env{
		OrganizationID: workflow.OrganizationID,
		TriggerData:    triggerData,
		Messages:       e.collaborators.Messages,
		Tasks:          e.collaborators.Tasks,
		Entities:       e.collaborators.Entities,
		HTTPClient:     e.collaborators.HTTPClient,
		Clock:          e.clock,
		Logger:         logger,
	}

	for step, action := range workflow.Actions {
		err = e.runStep(ctx, env, step, action)
		if err == nil {
			err = tracker.Advance(ctx)
		}

		if err != nil {
			return e.fail(ctx, span, logger, workflow, tracker, startedAt, err)
		}
	}

	err = tracker.Complete(ctx)
	if err != nil {
		otelhelper.SetError(span, err)
		logger.ErrorContext(ctx, "Failed to store completed workflow execution", "error", err)

		return tracker.Snapshot(), err
	}

	err = e.workflows.RecordExecution(ctx, workflow.ID, startedAt)
	if err != nil {
		otelhelper.SetError(span, err)
		logger.ErrorContext(ctx, "Failed to record workflow execution", "error", err)

		return tracker.Snapshot(), fmt.Errorf("failed to record execution of workflow %s: %w", workflow.ID, err)
	}

	execution = tracker.Snapshot()
	logger.InfoContext(ctx, "Workflow execution completed", "steps", execution.CurrentStep)

	e.notify(ctx, workflow.ID, events.WorkflowExecutionCompleted{
		BaseEvent:   e.baseEvent(events.WorkflowExecutionCompletedEvent, workflow.OrganizationID),
		WorkflowID:  workflow.ID,
		ExecutionID: execution.ID,
		Steps:       execution.CurrentStep,
		Duration:    e.clock.Since(startedAt),
	})

	return execution, nil
}

func (e *Engine) runStep(ctx context.Context, env actions.Env, step int, stored models.Action) error {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.action",
		attribute.Int(otelhelper.StepKey, step),
		attribute.String(otelhelper.ActionTypeKey, string(stored.Kind)),
	)
	defer span.End()

	wrap := func(err error) error {
		actionErr := &ActionError{Step: step, Kind: stored.Kind, OrganizationID: env.OrganizationID, Err: err}
		otelhelper.SetError(span, actionErr)

		return actionErr
	}

	if delay := stored.Delay(); delay > 0 {
		env.Logger.DebugContext(ctx, "Delaying action", "step", step, "delay", delay)

		err := actions.Pause(ctx, e.clock, delay)
		if err != nil {
			return wrap(err)
		}
	}

	action, err := actions.Decode(stored)
	if err != nil {
		return wrap(err)
	}

	err = action.Execute(ctx, env)
	if err != nil {
		return wrap(err)
	}

	env.Logger.DebugContext(ctx, "Action completed", "step", step, "type", stored.Kind)

	return nil
}

func (e *Engine) fail(
	ctx context.Context,
	span trace.Span,
	logger *slog.Logger,
	workflow *models.Workflow,
	tracker *Tracker,
	startedAt time.Time,
	cause error,
) (*models.Execution, error) {
	message := cause
	attrs := []attribute.KeyValue{attribute.String(otelhelper.OrganizationIDKey, workflow.OrganizationID)}

	var actionErr *ActionError
	if errors.As(cause, &actionErr) {
		message = actionErr.Err
		attrs = append(attrs,
			attribute.Int(otelhelper.StepKey, actionErr.Step),
			attribute.String(otelhelper.ActionTypeKey, string(actionErr.Kind)),
		)
	}

	otelhelper.SetError(span, cause, attrs...)

	err := tracker.Fail(ctx, message)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to store execution failure", "error", err)
	}

	execution := tracker.Snapshot()
	logger.ErrorContext(ctx, "Workflow execution failed", "step", execution.CurrentStep, "error", cause)

	e.notify(ctx, workflow.ID, events.WorkflowExecutionFailed{
		BaseEvent:   e.baseEvent(events.WorkflowExecutionFailedEvent, workflow.OrganizationID),
		WorkflowID:  workflow.ID,
		ExecutionID: execution.ID,
		Step:        execution.CurrentStep,
		Error:       message.Error(),
		Duration:    e.clock.Since(startedAt),
	})

	return execution, cause
}

func (e *Engine) baseEvent(eventType events.EventType, organizationID string) events.BaseEvent {
	return events.BaseEvent{
		ID:             e.idgen(),
		Type:           eventType,
		Timestamp:      e.clock.Now().UTC(),
		OrganizationID: organizationID,
	}
}

func (e *Engine) notify(ctx context.Context, key string, event eventbus.Event) {
	if e.notifier == nil {
		return
	}

	err := e.notifier.Publish(ctx, key, event)
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to publish lifecycle event", "event_type", event.GetType(), "error", err)
	}
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}
