// Package web provides HTTP handlers and REST API endpoints for workflow management.
package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/dukex/crmflow/pkg/services"
)

type APIHandlers struct {
	workflowService *services.Workflow
	validator       *validator.Validate
	logger          *slog.Logger
}

func NewAPIHandlers(workflowService *services.Workflow, validator *validator.Validate, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		workflowService: workflowService,
		validator:       validator,
		logger:          logger.With("module", "api_handlers"),
	}
}

// Register mounts the workflow routes on router.
func (h *APIHandlers) Register(router fiber.Router) {
	w := router.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Get("/:id/executions", h.GetWorkflowExecutions)
	w.Post("/:id/execute", h.ExecuteWorkflow)

	router.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	organizationID := c.Query("organization_id")
	if organizationID == "" {
		return badRequest(c, ProblemMissingOrganization, "organization_id query parameter is required")
	}

	workflows, err := h.workflowService.ListWorkflows(c.Context(), organizationID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(WorkflowsResponse{
		Workflows:  workflows,
		TotalCount: len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, ProblemValidation, "Workflow ID is required")
	}

	workflow, err := h.workflowService.GetWorkflow(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	id := c.Params("id")

	limit := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return badRequest(c, ProblemInvalidLimit, "Invalid limit: "+limitStr)
		}

		limit = parsed
	}

	if limit <= 0 {
		limit = services.DefaultExecutionsLimit
	}

	executions, err := h.workflowService.ListExecutions(c.Context(), id, limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(ExecutionsResponse{
		Executions: executions,
		Limit:      limit,
	})
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, ProblemValidation, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, ProblemValidation, err.Error())
	}

	created, err := h.workflowService.CreateWorkflow(c.Context(), services.CreateWorkflowRequest{
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		Description:    req.Description,
		TriggerType:    req.TriggerType,
		TriggerConfig:  req.TriggerConfig,
		Conditions:     req.Conditions,
		Actions:        req.Actions,
		IsActive:       req.IsActive,
		CreatedBy:      req.CreatedBy,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// ExecuteWorkflow runs a manual workflow with the request body as trigger data.
// A run that fails inside an action still answers 200 with the failed execution.
func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	data := map[string]any{}

	if body := c.Body(); len(body) > 0 {
		if err := json.Unmarshal(body, &data); err != nil {
			return badRequest(c, ProblemValidation, "Invalid JSON format")
		}
	}

	execution, err := h.workflowService.TriggerManual(c.Context(), id, data)
	if err != nil && execution == nil {
		return handleServiceError(c, err)
	}

	if err != nil {
		h.logger.WarnContext(c.Context(), "Manual run failed", "workflow_id", id, "error", err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "CRM workflow API is unhealthy"
	httpStatus := http.StatusServiceUnavailable

	if repOk {
		status = "healthy"
		message = "CRM workflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
