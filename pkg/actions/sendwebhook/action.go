// Package sendwebhook provides the send_webhook action, which posts the trigger
// payload as JSON to an external endpoint.
package sendwebhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dukex/autoflow/pkg/config"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/template"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	Slug             = "send_webhook"
	DefaultEventName = "autoflow_event"

	maxResponseBody = 64 << 10
)

var (
	ErrWebhookURLInvalid = errors.New("webhook url must be absolute http or https")

	allowedMethods = map[string]bool{
		http.MethodPost:   true,
		http.MethodPut:    true,
		http.MethodPatch:  true,
		http.MethodGet:    true,
		http.MethodDelete: true,
	}
)

type Action struct {
	settings  config.Source
	transport http.RoundTripper
	logger    *slog.Logger
}

// Option customizes an Action.
type Option func(*Action)

// WithTransport replaces the HTTP transport, mainly for tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(a *Action) {
		a.transport = rt
	}
}

func New(settings config.Source, logger *slog.Logger, opts ...Option) *Action {
	action := &Action{
		settings:  settings,
		transport: otelhttp.NewTransport(http.DefaultTransport),
		logger:    logger.With("module", Slug),
	}

	for _, opt := range opts {
		opt(action)
	}

	return action
}

func (*Action) Slug() string {
	return Slug
}

func (*Action) Label() string {
	return "Send Webhook"
}

func (*Action) Group() string {
	return "Integration"
}

func (*Action) ConfigSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"url"},
		"properties": map[string]any{
			"url": map[string]any{
				"type":   "string",
				"format": "uri",
			},
			"method": map[string]any{
				"type":    "string",
				"enum":    []any{"POST", "PUT", "PATCH", "GET", "DELETE"},
				"default": "POST",
			},
			"headers": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string"},
			},
			"event_name": map[string]any{
				"type":        "string",
				"description": "Value of the event field in the request body.",
			},
		},
	}
}

type requestBody struct {
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload"`
}

// Execute sends {"event": ..., "payload": ...} to the configured url. Transport
// errors and non-2xx responses are failures.
func (a *Action) Execute(ctx context.Context, cfg map[string]any, payload map[string]any) (models.ActionResult, error) {
	target := strings.TrimSpace(template.Text(cfg["url"]))
	if target == "" {
		return models.Failure("Webhook URL is empty.", nil), nil
	}

	if err := validateURL(target); err != nil {
		return models.Failure(fmt.Sprintf("Webhook failed: %s", err), nil), nil
	}

	eventName := template.Text(cfg["event_name"])
	if eventName == "" {
		eventName = DefaultEventName
	}

	if payload == nil {
		payload = map[string]any{}
	}

	body, err := json.Marshal(requestBody{Event: eventName, Payload: payload})
	if err != nil {
		return models.ActionResult{}, fmt.Errorf("failed to encode webhook body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, normalizeMethod(cfg["method"]), target, bytes.NewReader(body))
	if err != nil {
		return models.Failure(fmt.Sprintf("Webhook failed: %s", err), nil), nil
	}

	for key, value := range headers(cfg["headers"]) {
		req.Header.Set(key, value)
	}

	client := &http.Client{Transport: a.transport, Timeout: a.timeout(ctx)}

	resp, err := client.Do(req)
	if err != nil {
		a.logger.Warn("Webhook request failed", "url", target, "error", err)

		return models.Failure(fmt.Sprintf("Webhook failed: %s", err), nil), nil
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		a.logger.Warn("Failed to read webhook response", "url", target, "error", err)
	}

	data := map[string]any{
		"response_code": resp.StatusCode,
		"response_body": string(responseBody),
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.Failure(fmt.Sprintf("Webhook returned status %d.", resp.StatusCode), data), nil
	}

	return models.Success(fmt.Sprintf("Webhook sent. Status: %d", resp.StatusCode), data), nil
}

func (a *Action) timeout(ctx context.Context) time.Duration {
	settings, err := a.settings.Settings(ctx)
	if err != nil {
		a.logger.Warn("Failed to read settings, using default webhook timeout", "error", err)

		settings = config.Defaults()
	}

	return settings.Sanitize().WebhookTimeout()
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrWebhookURLInvalid
	}

	return nil
}

// normalizeMethod uppercases the configured method and falls back to POST for
// anything outside the supported set.
func normalizeMethod(value any) string {
	method := strings.ToUpper(strings.TrimSpace(template.Text(value)))
	if allowedMethods[method] {
		return method
	}

	return http.MethodPost
}

func headers(value any) map[string]string {
	out := map[string]string{"Content-Type": "application/json"}

	switch h := value.(type) {
	case map[string]any:
		for k, v := range h {
			out[k] = template.Text(v)
		}
	case map[string]string:
		for k, v := range h {
			out[k] = v
		}
	}

	return out
}
