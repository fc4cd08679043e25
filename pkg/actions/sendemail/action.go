// Package sendemail provides the send_email action, which renders a templated
// message from the trigger payload and hands it to a mailer.
package sendemail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/autoflow/pkg/mail"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/template"
	"github.com/go-playground/validator/v10"
)

const Slug = "send_email"

type Action struct {
	mailer   mail.Mailer
	validate *validator.Validate
	logger   *slog.Logger
}

func New(mailer mail.Mailer, logger *slog.Logger) *Action {
	return &Action{
		mailer:   mailer,
		validate: validator.New(),
		logger:   logger.With("module", Slug),
	}
}

func (*Action) Slug() string {
	return Slug
}

func (*Action) Label() string {
	return "Send Email"
}

func (*Action) Group() string {
	return "Communication"
}

func (*Action) ConfigSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"to", "subject", "body"},
		"properties": map[string]any{
			"to": map[string]any{
				"type":        "string",
				"description": "Recipient address. Supports {{placeholders}}.",
			},
			"subject": map[string]any{
				"type":        "string",
				"description": "Subject line. Supports {{placeholders}}.",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Plain-text body. Supports {{placeholders}}.",
			},
		},
	}
}

// Execute interpolates to, subject and body against the payload. An invalid
// recipient or a rejected message is a failure, not an error.
func (a *Action) Execute(ctx context.Context, config map[string]any, payload map[string]any) (models.ActionResult, error) {
	msg := mail.Message{
		To:      strings.TrimSpace(template.Interpolate(template.Text(config["to"]), payload)),
		Subject: template.Interpolate(template.Text(config["subject"]), payload),
		Body:    template.Interpolate(template.Text(config["body"]), payload),
	}

	if err := a.validate.Var(msg.To, "required,email"); err != nil {
		return models.Failure(fmt.Sprintf("Invalid email address: %s", msg.To), nil), nil
	}

	if err := a.mailer.Send(ctx, msg); err != nil {
		a.logger.Warn("Email not sent", "to", msg.To, "error", err)

		return models.Failure(fmt.Sprintf("Failed to send email to %s.", msg.To), map[string]any{
			"error": err.Error(),
		}), nil
	}

	return models.Success(fmt.Sprintf("Email sent to %s.", msg.To), map[string]any{
		"to":      msg.To,
		"subject": msg.Subject,
	}), nil
}
