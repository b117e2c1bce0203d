package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/template"
)

const maxWebhookResponseBytes = 64 << 10

// CallWebhook sends the trigger data to an external endpoint.
// Without configured headers the request carries Content-Type: application/json.
type CallWebhook struct {
	URL          string            `json:"url"                     validate:"required,url"`
	Method       string            `json:"method,omitempty"        validate:"omitempty,oneof=GET POST PUT PATCH DELETE get post put patch delete"`
	Headers      map[string]string `json:"headers,omitempty"`
	BodyTemplate any               `json:"body_template,omitempty"`
}

func (*CallWebhook) sealed() {}

// Kind implements Action.
func (*CallWebhook) Kind() models.ActionKind { return models.ActionKindCallWebhook }

// Execute implements Action.
func (a *CallWebhook) Execute(ctx context.Context, env Env) error {
	if env.HTTPClient == nil {
		return fmt.Errorf("call_webhook: %w", ErrMissingCollaborator)
	}

	req, err := a.buildRequest(ctx, env.TriggerData)
	if err != nil {
		return err
	}

	resp, err := env.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}

	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxWebhookResponseBytes))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &WebhookError{URL: a.URL, StatusCode: resp.StatusCode}
	}

	env.logger().InfoContext(ctx, "Webhook executed successfully", "status", resp.StatusCode)

	return nil
}

func (a *CallWebhook) buildRequest(ctx context.Context, data map[string]any) (*http.Request, error) {
	method := strings.ToUpper(a.Method)
	if method == "" {
		method = http.MethodPost
	}

	body, err := a.buildBody(data)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, a.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook request: %w", err)
	}

	if len(a.Headers) == 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	for key, value := range a.Headers {
		req.Header.Set(key, value)
	}

	return req, nil
}

func (a *CallWebhook) buildBody(data map[string]any) (io.Reader, error) {
	if a.BodyTemplate == nil {
		return http.NoBody, nil
	}

	rendered := template.Interpolate(a.BodyTemplate, data)
	if text, ok := rendered.(string); ok {
		return strings.NewReader(text), nil
	}

	encoded, err := json.Marshal(rendered)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal webhook body: %w", err)
	}

	return bytes.NewReader(encoded), nil
}
