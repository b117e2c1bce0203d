package actions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/crmflow/pkg/models"
)

var (
	// ErrUnknownActionKind is returned when an action kind is not part of the supported set.
	ErrUnknownActionKind = errors.New("unknown action kind")
	// ErrInvalidConfig is returned when an action config does not match its schema.
	ErrInvalidConfig = errors.New("invalid action config")
	// ErrMissingCollaborator is returned when an action runs without the collaborator it needs.
	ErrMissingCollaborator = errors.New("missing collaborator")
)

// MissingFieldError is returned by update_field when an input it needs is absent.
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return "missing required fields for update action: " + strings.Join(e.Fields, ", ")
}

// WebhookError is returned when a webhook answers with a non-2xx status.
type WebhookError struct {
	URL        string
	StatusCode int
}

func (e *WebhookError) Error() string {
	return fmt.Sprintf("webhook failed with status %d", e.StatusCode)
}

// ConfigError reports an action config that could not be decoded or validated.
type ConfigError struct {
	Kind    models.ActionKind
	Details []string
	Err     error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("invalid %s config", e.Kind)

	if len(e.Details) > 0 {
		msg += ": " + strings.Join(e.Details, "; ")
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}
