package cmd

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/crmflow/pkg/actions"
	"github.com/dukex/crmflow/pkg/eventbus"
	"github.com/dukex/crmflow/pkg/messaging"
	"github.com/dukex/crmflow/pkg/otelhelper"
	"github.com/dukex/crmflow/pkg/persistence"
	"github.com/dukex/crmflow/pkg/workflow"
)

// EngineConfig holds what the workflow engine needs besides storage and the bus.
type EngineConfig struct {
	EmailFrom string
	Tracer    trace.Tracer
	Doer      actions.HTTPDoer
}

// NewEngine wires the engine to the store, the message outbox and the lifecycle notifier.
func NewEngine(
	store persistence.Persistence,
	workflows persistence.WorkflowRepository,
	bus eventbus.EventBus,
	config EngineConfig,
	logger *slog.Logger,
) *workflow.Engine {
	outbox := messaging.NewOutbox(bus, config.EmailFrom, logger, messaging.WithIDGenerator(bus.GenerateID))

	doer := config.Doer
	if doer == nil {
		doer = NewHTTPClient()
	}

	tracer := config.Tracer
	if tracer == nil {
		tracer = otelhelper.NoopTracer()
	}

	return workflow.NewEngine(
		workflows,
		store.ExecutionRepository(),
		workflow.Collaborators{
			Messages:   outbox,
			Tasks:      actions.TaskStoreFunc(store.TaskRepository().Create),
			Entities:   store.EntityRepository(),
			HTTPClient: doer,
		},
		logger,
		workflow.WithTracer(tracer),
		workflow.WithNotifier(bus),
	)
}

// NewTracer returns an OTLP tracer when enabled and a no-op tracer otherwise.
//
// nolint:ireturn // Returning interface is intentional for OpenTelemetry tracing
func NewTracer(ctx context.Context, enabled bool, serviceName string) (trace.Tracer, otelhelper.ShutdownFunc, error) {
	if !enabled {
		return otelhelper.NoopTracer(), func(context.Context) error { return nil }, nil
	}

	return otelhelper.NewTracer(ctx, serviceName)
}
