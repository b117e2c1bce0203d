package main

import (
	"context"
	"log/slog"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/crmflow/pkg/channels/gochannel"
	"github.com/dukex/crmflow/pkg/eventbus"
	"github.com/dukex/crmflow/pkg/events"
	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence/file"
	"github.com/dukex/crmflow/pkg/testutil"
)

type leadCreated struct {
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
}

func (leadCreated) GetType() events.EventType { return events.LeadCreatedEvent }

type recordingRunner struct {
	mu   sync.Mutex
	runs map[string]map[string]any
}

func (r *recordingRunner) ExecuteWorkflow(_ context.Context, id string, data map[string]any) (*models.Execution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.runs == nil {
		r.runs = map[string]map[string]any{}
	}

	r.runs[id] = data

	return &models.Execution{ID: "exec-" + id, WorkflowID: id, Status: models.ExecutionStatusCompleted}, nil
}

func (r *recordingRunner) run(id string) (map[string]any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, ok := r.runs[id]

	return data, ok
}

type serviceHarness struct {
	service *Service
	store   *file.Persistence
	bus     *eventbus.WatermillEventBus
	runner  *recordingRunner
	done    chan error
	cancel  context.CancelFunc
}

func startService(t *testing.T, workflows ...*models.Workflow) *serviceHarness {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	store := file.NewPersistence(t.TempDir())

	for _, wf := range workflows {
		require.NoError(t, store.WorkflowRepository().Save(t.Context(), wf))
	}

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub, logger)
	t.Cleanup(func() { _ = bus.Close() })

	runner := &recordingRunner{}
	service := NewService("dispatcher-test", store.WorkflowRepository(), bus, runner, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := &serviceHarness{service: service, store: store, bus: bus, runner: runner, done: make(chan error, 1), cancel: cancel}

	go func() { h.done <- service.Run(ctx) }()

	return h
}

func (h *serviceHarness) wait(t *testing.T) error {
	t.Helper()

	select {
	case err := <-h.done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop")

		return nil
	}
}

func activeWorkflow(id string, trigger models.TriggerType, config map[string]any) *models.Workflow {
	return testutil.CreateTestWorkflow(
		testutil.WithID(id),
		testutil.WithOrganization("org-1"),
		testutil.WithTrigger(trigger, config),
	)
}

func TestService_RunsWorkflowsForDomainEvents(t *testing.T) {
	h := startService(t, activeWorkflow("wf-lead", models.TriggerTypeEntityCreated, nil))

	require.NoError(t, h.bus.Publish(t.Context(), "org-1", leadCreated{OrganizationID: "org-1", Name: "Ada"}))

	require.Eventually(t, func() bool {
		_, ok := h.runner.run("wf-lead")

		return ok
	}, 5*time.Second, 10*time.Millisecond)

	data, _ := h.runner.run("wf-lead")
	assert.Equal(t, "Ada", data["name"])

	h.cancel()
	require.NoError(t, h.wait(t))
}

func TestService_ReloadsSchedulesOnHangup(t *testing.T) {
	h := startService(t)

	scheduled := testutil.CreateTestWorkflow(testutil.WithID("wf-nightly"), testutil.WithSchedule("0 2 * * *"))
	require.NoError(t, h.store.WorkflowRepository().Save(t.Context(), scheduled))

	require.Eventually(t, func() bool {
		select {
		case h.service.signals <- syscall.SIGHUP:
		default:
		}

		return assert.ObjectsAreEqual([]string{"wf-nightly"}, h.service.scheduler.Scheduled())
	}, 5*time.Second, 20*time.Millisecond)

	h.service.signals <- syscall.SIGTERM

	require.NoError(t, h.wait(t))
}
