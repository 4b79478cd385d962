package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Mailer delivers outbound email. The campus relay implementation lives in
// deployment wiring; LogMailer stands in everywhere else.
type Mailer interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

// LogMailer writes would-be emails to the log instead of sending them.
type LogMailer struct {
	Logger *slog.Logger
}

// Send logs the message.
func (m LogMailer) Send(ctx context.Context, to []string, subject, body string) error {
	if m.Logger != nil {
		m.Logger.Info("mail (not sent)",
			slog.Int("recipients", len(to)),
			slog.String("subject", subject))
	}
	return nil
}

// SMTPMailer sends through the campus relay. The relay accepts
// unauthenticated submissions from inside the network, so no auth is
// configured here.
type SMTPMailer struct {
	addr string
	from string
}

// NewSMTPMailer builds a mailer for the relay at host:port.
func NewSMTPMailer(host string, port int, from string) *SMTPMailer {
	return &SMTPMailer{addr: fmt.Sprintf("%s:%d", host, port), from: from}
}

// Send delivers one message to all recipients.
func (m *SMTPMailer) Send(ctx context.Context, to []string, subject, body string) error {
	if len(to) == 0 {
		return nil
	}
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + strings.Join(to, ", "),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")
	if err := smtp.SendMail(m.addr, nil, m.from, to, []byte(msg)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
