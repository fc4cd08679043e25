package sendemail

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/dukex/autoflow/pkg/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}

	m.sent = append(m.sent, msg)

	return nil
}

func newAction(mailer mail.Mailer) *Action {
	return New(mailer, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAction_Metadata(t *testing.T) {
	action := newAction(&recordingMailer{})

	assert.Equal(t, "send_email", action.Slug())
	assert.Equal(t, "Send Email", action.Label())
	assert.Equal(t, "Communication", action.Group())
	assert.Equal(t, []any{"to", "subject", "body"}, action.ConfigSchema()["required"])
}

func TestAction_Execute(t *testing.T) {
	payload := map[string]any{
		"user_email": "jane@example.com",
		"post":       map[string]any{"title": "Hello world"},
	}

	tests := []struct {
		name        string
		config      map[string]any
		mailErr     error
		wantSuccess bool
		wantMessage string
		wantSent    *mail.Message
	}{
		{
			name: "interpolated message",
			config: map[string]any{
				"to":      "{{user_email}}",
				"subject": "New post: {{post.title}}",
				"body":    "Read {{ post.title }} now. {{unknown}}",
			},
			wantSuccess: true,
			wantMessage: "Email sent to jane@example.com.",
			wantSent: &mail.Message{
				To:      "jane@example.com",
				Subject: "New post: Hello world",
				Body:    "Read Hello world now. {{unknown}}",
			},
		},
		{
			name:        "unresolved recipient",
			config:      map[string]any{"to": "{{author_email}}", "subject": "s", "body": "b"},
			wantMessage: "Invalid email address: {{author_email}}",
		},
		{
			name:        "missing recipient",
			config:      map[string]any{"subject": "s", "body": "b"},
			wantMessage: "Invalid email address: ",
		},
		{
			name:        "transport rejects",
			config:      map[string]any{"to": "ops@example.com", "subject": "s", "body": "b"},
			mailErr:     errors.New("relay down"),
			wantMessage: "Failed to send email to ops@example.com.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailer := &recordingMailer{err: tt.mailErr}

			result, err := newAction(mailer).Execute(context.Background(), tt.config, payload)
			require.NoError(t, err)

			assert.Equal(t, tt.wantSuccess, result.IsSuccess())
			assert.Equal(t, tt.wantMessage, result.Message())

			if tt.wantSent == nil {
				assert.Empty(t, mailer.sent)

				return
			}

			require.Len(t, mailer.sent, 1)
			assert.Equal(t, *tt.wantSent, mailer.sent[0])
		})
	}
}
