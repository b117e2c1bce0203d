// Package scheduler fires workflows with a scheduled trigger on their cron expression.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
	"github.com/dukex/crmflow/pkg/workflow"
)

type Scheduler struct {
	workflows persistence.WorkflowRepository
	runner    workflow.Runner
	clock     clockwork.Clock
	logger    *slog.Logger

	mu      sync.Mutex
	ctx     context.Context //nolint:containedctx // base context of scheduled runs
	cron    *cron.Cron
	entries map[string]cron.EntryID
}

type Option func(*Scheduler)

func WithClock(clock clockwork.Clock) Option {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

func New(workflows persistence.WorkflowRepository, runner workflow.Runner, logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		workflows: workflows,
		runner:    runner,
		clock:     clockwork.NewRealClock(),
		logger:    logger.With("module", "scheduler"),
		ctx:       context.Background(),
		entries:   make(map[string]cron.EntryID),
	}

	for _, opt := range opts {
		opt(s)
	}

	cronLogger := &cronLogger{logger: s.logger}
	s.cron = cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger), cron.Recover(cronLogger)),
	)

	return s
}

// Start loads the scheduled workflows and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = context.WithoutCancel(ctx)
	s.mu.Unlock()

	err := s.Reload(ctx)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.InfoContext(ctx, "Scheduler started", "workflows", len(s.Scheduled()))

	return nil
}

// Stop stops the cron loop and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reload replaces every cron entry with the active scheduled workflows.
// Workflows with a missing or invalid expression are logged and skipped.
func (s *Scheduler) Reload(ctx context.Context) error {
	workflows, err := s.workflows.ActiveByTriggerType(ctx, models.TriggerTypeScheduled)
	if err != nil {
		return fmt.Errorf("failed to load scheduled workflows: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, entry := range s.entries {
		s.cron.Remove(entry)
		delete(s.entries, id)
	}

	for _, wf := range workflows {
		schedule, err := models.ParseSchedule(wf.Schedule())
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping workflow with invalid schedule",
				"workflow_id", wf.ID,
				"organization_id", wf.OrganizationID,
				"error", err,
			)

			continue
		}

		workflowID, organizationID := wf.ID, wf.OrganizationID
		s.entries[workflowID] = s.cron.Schedule(schedule, cron.FuncJob(func() {
			s.Fire(s.runContext(), workflowID, organizationID)
		}))
	}

	return nil
}

// Scheduled returns the ids of the workflows with a cron entry, sorted.
func (s *Scheduler) Scheduled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}

// Next returns the next activation of a scheduled workflow.
func (s *Scheduler) Next(workflowID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[workflowID]
	if !ok {
		return time.Time{}, false
	}

	return s.cron.Entry(entry).Schedule.Next(s.clock.Now()), true
}

// Fire runs a scheduled workflow once with {organization_id, workflow_id, scheduled_at}.
func (s *Scheduler) Fire(ctx context.Context, workflowID, organizationID string) {
	logger := s.logger.With("workflow_id", workflowID, "organization_id", organizationID)
	data := map[string]any{
		"organization_id": organizationID,
		"workflow_id":     workflowID,
		"scheduled_at":    s.clock.Now().UTC().Format(time.RFC3339),
	}

	execution, err := s.runner.ExecuteWorkflow(ctx, workflowID, data)
	if err != nil {
		logger.ErrorContext(ctx, "Scheduled run failed", "error", err)

		return
	}

	logger.InfoContext(ctx, "Scheduled run finished", "status", execution.Status, "skipped", execution.Skipped)
}

func (s *Scheduler) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ctx
}

// cronLogger routes cron's logging to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
