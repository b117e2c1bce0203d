package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/dukex/crmflow/pkg/services"
)

// Problem types returned in the "type" member of error responses.
const (
	ProblemValidation          = "validation_error"
	ProblemMissingOrganization = "missing_organization"
	ProblemInvalidWorkflow     = "invalid_workflow"
	ProblemInvalidAction       = "invalid_action"
	ProblemInvalidLimit        = "invalid_execution_limit"
	ProblemTriggerNotManual    = "trigger_not_manual"
	ProblemWorkflowNotFound    = "workflow_not_found"
	ProblemInternal            = "internal_error"
)

func badRequest(c fiber.Ctx, problemType, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusBadRequest).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType(ProblemInternal).
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// validationProblem names the rule a rejected workflow request broke.
func validationProblem(err error) string {
	switch {
	case errors.Is(err, services.ErrEmptyOrganizationID):
		return ProblemMissingOrganization
	case errors.Is(err, services.ErrInvalidWorkflowFields):
		return ProblemInvalidWorkflow
	case errors.Is(err, services.ErrInvalidActionConfig):
		return ProblemInvalidAction
	case errors.Is(err, services.ErrInvalidLimit):
		return ProblemInvalidLimit
	case errors.Is(err, services.ErrWorkflowNotManual):
		return ProblemTriggerNotManual
	default:
		return ProblemValidation
	}
}

// handleServiceError maps service errors to problem documents.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsValidationError(err):
		return badRequest(c, validationProblem(err), err.Error())

	case services.IsNotFoundError(err):
		problem := problems.NewStatusProblem(fiber.StatusNotFound).
			WithInstance(c.Path()).
			WithType(ProblemWorkflowNotFound).
			WithDetail("workflow not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	default:
		return internalError(c, err)
	}
}
