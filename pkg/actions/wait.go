package actions

import (
	"context"
	"time"

	"github.com/dukex/crmflow/pkg/models"
)

// Wait suspends the current run. Only the run's own goroutine is blocked.
type Wait struct {
	Minutes float64 `json:"wait_minutes" validate:"min=0"`
}

func (*Wait) sealed() {}

// Kind implements Action.
func (*Wait) Kind() models.ActionKind { return models.ActionKindWait }

// Duration is the length of the pause.
func (a *Wait) Duration() time.Duration {
	return time.Duration(a.Minutes * float64(time.Minute))
}

// Execute implements Action.
func (a *Wait) Execute(ctx context.Context, env Env) error {
	return Pause(ctx, env.clock(), a.Duration())
}

// Unknown is an action whose kind is not recognized. Executing it does nothing.
type Unknown struct {
	Type models.ActionKind
}

func (Unknown) sealed() {}

// Kind implements Action.
func (u Unknown) Kind() models.ActionKind { return u.Type }

// Execute implements Action.
func (u Unknown) Execute(ctx context.Context, env Env) error {
	env.logger().WarnContext(ctx, "Unknown action type", "type", u.Type)

	return nil
}
