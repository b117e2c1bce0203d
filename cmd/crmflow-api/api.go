// Package main provides the workflow management API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/dukex/crmflow/pkg/eventbus"
	"github.com/dukex/crmflow/pkg/persistence"
	"github.com/dukex/crmflow/pkg/services"
	"github.com/dukex/crmflow/pkg/web"
	"github.com/dukex/crmflow/pkg/workflow"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	workflows   persistence.WorkflowRepository
	runner      workflow.Runner
	eventBus    eventbus.EventPublisher
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	workflows persistence.WorkflowRepository,
	runner workflow.Runner,
	eventBus eventbus.EventPublisher,
) *API {
	return &API{
		persistence: persistence,
		workflows:   workflows,
		runner:      runner,
		logger:      logger,
		eventBus:    eventBus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	opts := []services.Option{services.WithWorkflowRepository(a.workflows)}
	if a.eventBus != nil {
		opts = append(opts, services.WithPublisher(a.eventBus))
	}

	workflowService := services.NewWorkflow(a.persistence, a.runner, a.logger, opts...)
	handlers := web.NewAPIHandlers(workflowService, a.validate, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("CRM Workflow API")
	})

	handlers.Register(app)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
