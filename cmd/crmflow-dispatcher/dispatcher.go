package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukex/crmflow/pkg/eventbus"
	"github.com/dukex/crmflow/pkg/persistence"
	"github.com/dukex/crmflow/pkg/scheduler"
	"github.com/dukex/crmflow/pkg/workflow"
)

const shutdownTimeout = 30 * time.Second

// Service consumes CRM domain events and scheduled ticks and runs the matching workflows.
type Service struct {
	id         string
	logger     *slog.Logger
	eventBus   eventbus.EventSubscriber
	dispatcher *workflow.Dispatcher
	scheduler  *scheduler.Scheduler
	signals    chan os.Signal
}

func NewService(
	id string,
	workflows persistence.WorkflowRepository,
	eventBus eventbus.EventSubscriber,
	runner workflow.Runner,
	logger *slog.Logger,
) *Service {
	return &Service{
		id:         id,
		logger:     logger,
		eventBus:   eventBus,
		dispatcher: workflow.NewDispatcher(eventBus, workflows, runner, logger),
		scheduler:  scheduler.New(workflows, runner, logger),
		signals:    make(chan os.Signal, 1),
	}
}

// Run blocks until ctx is cancelled or a termination signal arrives, then
// stops the scheduler and the event consumers and waits for in-flight runs.
func (s *Service) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	err := s.dispatcher.Register(runCtx)
	if err != nil {
		return err
	}

	err = s.scheduler.Start(runCtx)
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Dispatcher started", "dispatcher_id", s.id, "scheduled", len(s.scheduler.Scheduled()))

	s.handleSignals(runCtx, cancel)

	<-runCtx.Done()

	return s.shutdown()
}

// handleSignals reloads schedules on SIGHUP and shuts down on SIGINT or SIGTERM.
func (s *Service) handleSignals(ctx context.Context, cancel context.CancelFunc) {
	signal.Notify(s.signals, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(s.signals)

		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-s.signals:
				s.logger.Info("Received signal", "signal", sig)

				switch sig {
				case syscall.SIGHUP:
					err := s.scheduler.Reload(ctx)
					if err != nil {
						s.logger.Error("Failed to reload schedules", "error", err)
					}
				case syscall.SIGINT, syscall.SIGTERM:
					cancel()

					return
				default:
					s.logger.Warn("Unhandled signal received", "signal", sig)
				}
			}
		}
	}()
}

func (s *Service) shutdown() error {
	s.logger.Info("Stopping dispatcher", "dispatcher_id", s.id)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Consumers stop once the subscription context is cancelled; no event may
	// reach the dispatcher after it starts draining.
	return errors.Join(
		s.scheduler.Stop(ctx),
		s.eventBus.Drain(ctx),
		s.dispatcher.Shutdown(ctx),
	)
}
