// Package mail delivers plain-text email for the send_email action.
package mail

import (
	"context"
	"errors"
)

var ErrNoRecipient = errors.New("mail: message has no recipient")

// Message is a single plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends messages. A nil error means the transport accepted the message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// MailerFunc adapts a function to the Mailer interface.
type MailerFunc func(ctx context.Context, msg Message) error

func (f MailerFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}
