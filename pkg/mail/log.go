package mail

import (
	"context"
	"log/slog"
	"strings"
)

// LogMailer writes messages to the logger instead of delivering them. It is the
// default when no SMTP relay is configured.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With("module", "log_mailer")}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}

	m.logger.Info("Email", "to", msg.To, "subject", msg.Subject, "body", msg.Body)

	return nil
}
