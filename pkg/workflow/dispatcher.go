package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/spf13/cast"

	"github.com/dukex/crmflow/pkg/eventbus"
	"github.com/dukex/crmflow/pkg/events"
	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
)

// Runner executes one run of a workflow. *Engine is the production Runner.
type Runner interface {
	ExecuteWorkflow(ctx context.Context, workflowID string, triggerData map[string]any) (*models.Execution, error)
}

// DefaultTopics maps the CRM domain events to the trigger type they fire.
func DefaultTopics() map[events.EventType]models.TriggerType {
	return map[events.EventType]models.TriggerType{
		events.LeadCreatedEvent:      models.TriggerTypeEntityCreated,
		events.DealStageChangedEvent: models.TriggerTypeEntityStageChanged,
		events.ContactUpdatedEvent:   models.TriggerTypeEntityUpdated,
	}
}

// Dispatcher starts one run per matching workflow for every domain event.
type Dispatcher struct {
	bus       eventbus.EventSubscriber
	workflows persistence.WorkflowRepository
	runner    Runner
	topics    map[events.EventType]models.TriggerType
	logger    *slog.Logger

	mu         sync.Mutex
	registered bool
	stopping   bool
	inflight   sync.WaitGroup
}

type DispatcherOption func(*Dispatcher)

// WithTopics replaces the event to trigger type mapping.
func WithTopics(topics map[events.EventType]models.TriggerType) DispatcherOption {
	return func(d *Dispatcher) {
		d.topics = topics
	}
}

func NewDispatcher(
	bus eventbus.EventSubscriber,
	workflows persistence.WorkflowRepository,
	runner Runner,
	logger *slog.Logger,
	opts ...DispatcherOption,
) *Dispatcher {
	dispatcher := &Dispatcher{
		bus:       bus,
		workflows: workflows,
		runner:    runner,
		topics:    DefaultTopics(),
		logger:    logger.With("module", "dispatcher"),
	}

	for _, opt := range opts {
		opt(dispatcher)
	}

	return dispatcher
}

// Register subscribes to every configured topic. It may be called once.
func (d *Dispatcher) Register(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.registered {
		return ErrAlreadyRegistered
	}

	for eventType, triggerType := range d.topics {
		err := d.bus.Handle(eventType, d.handler(eventType, triggerType))
		if err != nil {
			return fmt.Errorf("failed to handle %s: %w", eventType, err)
		}

		d.logger.InfoContext(ctx, "Listening for domain events", "event_type", eventType, "trigger_type", triggerType)
	}

	err := d.bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	d.registered = true

	return nil
}

func (d *Dispatcher) handler(eventType events.EventType, triggerType models.TriggerType) eventbus.EventHandler {
	return func(ctx context.Context, payload map[string]any) error {
		d.logger.DebugContext(ctx, "Domain event received", "event_type", eventType)

		return d.Dispatch(ctx, triggerType, payload)
	}
}

// Dispatch launches a run of every active workflow of the payload's organization
// that uses triggerType. It returns once the runs are started; each run fails alone.
// After Shutdown it returns ErrDispatcherStopped without starting any run.
func (d *Dispatcher) Dispatch(ctx context.Context, triggerType models.TriggerType, payload map[string]any) error {
	organizationID := cast.ToString(payload["organization_id"])
	if organizationID == "" {
		d.logger.WarnContext(ctx, "Ignoring event without organization_id", "trigger_type", triggerType)

		return nil
	}

	workflows, err := d.workflows.ActiveByTrigger(ctx, organizationID, triggerType)
	if err != nil {
		return fmt.Errorf("failed to find %s workflows of organization %s: %w", triggerType, organizationID, err)
	}

	d.mu.Lock()
	if d.stopping {
		d.mu.Unlock()

		return ErrDispatcherStopped
	}

	d.inflight.Add(len(workflows))
	d.mu.Unlock()

	for _, workflow := range workflows {
		d.launch(ctx, workflow.ID, payload)
	}

	return nil
}

// Shutdown refuses new runs and blocks until every launched run has returned
// or ctx is done.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.stopping = true
	d.mu.Unlock()

	done := make(chan struct{})

	go func() {
		d.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// launch expects the caller to have added the run to inflight.
func (d *Dispatcher) launch(ctx context.Context, workflowID string, payload map[string]any) {
	runCtx := context.WithoutCancel(ctx)
	logger := d.logger.With("workflow_id", workflowID)

	go func() {
		defer d.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.ErrorContext(runCtx, "Workflow run panicked", "panic", r)
			}
		}()

		execution, err := d.runner.ExecuteWorkflow(runCtx, workflowID, payload)
		if err != nil {
			logger.ErrorContext(runCtx, "Workflow run failed", "error", err)

			return
		}

		if execution.Skipped {
			logger.DebugContext(runCtx, "Workflow skipped")

			return
		}

		logger.InfoContext(runCtx, "Workflow run finished", "execution_id", execution.ID, "status", execution.Status)
	}()
}
