package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/dukex/crmflow/pkg/cmd"
	"github.com/dukex/crmflow/pkg/log"
)

func main() {
	command := &cli.Command{
		Name:                  "crmflow-dispatcher",
		Usage:                 "Run workflows for CRM domain events and schedules",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			NewValidateCommand(),
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dispatcher-id",
				Aliases: []string{"id"},
				Usage:   "Custom dispatcher ID (auto-generated if not provided)",
				Sources: cli.EnvVars("DISPATCHER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (postgres:// or a file store path)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringSliceFlag{
				Name:    "kafka-brokers",
				Usage:   "Kafka broker addresses",
				Value:   []string{"localhost:9092"},
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the workflow cache (disabled when empty)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "email-from",
				Usage:   "Sender address of send_message actions",
				Value:   "noreply@crm.local",
				Sources: cli.EnvVars("EMAIL_FROM"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OpenTelemetry traces over OTLP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			dispatcherID := command.String("dispatcher-id")
			if dispatcherID == "" {
				dispatcherID = "dispatcher-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("crmflow-dispatcher").With("dispatcher_id", dispatcherID)

			logger.InfoContext(ctx, "Initializing CRM workflow dispatcher")

			tracer, shutdown, err := cmd.NewTracer(ctx, command.Bool("tracing"), "crmflow-dispatcher")
			if err != nil {
				return fmt.Errorf("failed to initialize tracer: %w", err)
			}

			defer func() {
				err := shutdown(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
				}
			}()

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return fmt.Errorf("failed to initialize persistence: %w", err)
			}

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			redisClient, err := cmd.NewRedisClient(command.String("redis-url"))
			if err != nil {
				return err
			}

			if redisClient != nil {
				defer func() { _ = redisClient.Close() }()
			}

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), "crmflow-dispatcher", command.StringSlice("kafka-brokers"), logger)
			if err != nil {
				return err
			}

			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			workflows := cmd.NewWorkflowRepository(persistence, redisClient, logger)
			engine := cmd.NewEngine(persistence, workflows, eventBus, cmd.EngineConfig{
				EmailFrom: command.String("email-from"),
				Tracer:    tracer,
			}, logger)

			return NewService(dispatcherID, workflows, eventBus, engine, logger).Run(ctx)
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
