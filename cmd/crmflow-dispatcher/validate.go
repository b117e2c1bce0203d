package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/urfave/cli/v3"

	"github.com/dukex/crmflow/pkg/actions"
	"github.com/dukex/crmflow/pkg/cmd"
	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
)

var ErrInvalidWorkflows = errors.New("invalid workflows found")

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate the stored active workflows",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := slog.With(
				"module", "crmflow-dispatcher",
				"action", "validate",
			)

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			return validateWorkflows(ctx, persistence.WorkflowRepository(), os.Stdout)
		},
	}
}

// validateWorkflows reports every active workflow and fails when any is invalid.
func validateWorkflows(ctx context.Context, workflows persistence.WorkflowRepository, out io.Writer) error {
	validate := models.NewValidator()

	_, _ = fmt.Fprintln(out, "Workflow Validation Results:")
	_, _ = fmt.Fprintln(out, "============================")

	valid, invalid := 0, 0

	for _, triggerType := range models.TriggerTypes {
		found, err := workflows.ActiveByTriggerType(ctx, triggerType)
		if err != nil {
			return fmt.Errorf("failed to fetch %s workflows: %w", triggerType, err)
		}

		for _, workflow := range found {
			problems := workflowProblems(validate, workflow)
			if len(problems) == 0 {
				valid++

				_, _ = fmt.Fprintf(out, "  ✓ %s (%s) [%s]\n", workflow.Name, workflow.ID, triggerType)

				continue
			}

			invalid++

			_, _ = fmt.Fprintf(out, "  ✗ %s (%s) [%s]\n", workflow.Name, workflow.ID, triggerType)
			for _, problem := range problems {
				_, _ = fmt.Fprintf(out, "      %s\n", problem)
			}
		}
	}

	_, _ = fmt.Fprintf(out, "\nSummary: %d valid, %d invalid\n", valid, invalid)

	if invalid > 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkflows, invalid)
	}

	return nil
}

func workflowProblems(validate *validator.Validate, workflow *models.Workflow) []string {
	var problems []string

	err := validate.Struct(workflow)
	if err != nil {
		problems = append(problems, err.Error())
	}

	if workflow.TriggerType == models.TriggerTypeScheduled {
		_, err = models.ParseSchedule(workflow.Schedule())
		if err != nil {
			problems = append(problems, err.Error())
		}
	}

	for i, action := range workflow.Actions {
		err = actions.ValidateConfig(action)
		if err != nil {
			problems = append(problems, fmt.Sprintf("action %d: %v", i, err))
		}
	}

	return problems
}
