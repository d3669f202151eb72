// Package notify renders and sends the transactional emails of the access
// workflow and newsletter. Sends are fire-and-forget: failures are logged
// and never reach the caller.
package notify

import (
	"context"
	"strings"

	"github.com/equihome/launchpad/internal/pkg/logger"
)

// Message is one rendered email.
type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string
	Tags    map[string]string
}

// Mailer delivers a rendered message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the log instead of sending them. Used in
// development and when no email provider is configured.
type LogMailer struct{}

// Send logs the message envelope.
func (LogMailer) Send(_ context.Context, msg Message) error {
	logger.Info("email (log mailer)",
		"to", strings.Join(msg.To, ","),
		"subject", msg.Subject,
		"template", msg.Tags["template"])
	return nil
}
