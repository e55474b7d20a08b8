// Package notification sends booking confirmation emails. A Worker sweeps
// confirmed bookings that have not been emailed yet and marks each one
// only after the SMTP server accepted the message.
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/jellyjess/nail-salon/internal/config"
)

// Message is one outbound email with an HTML body and a plain text
// alternative.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers a Message. A nil error means the relay accepted it.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer delivers through an SMTP relay.
type SMTPMailer struct {
	client *mail.Client
	from   string
}

// NewSMTPMailer configures a client for cfg. Port 465 style implicit TLS is
// used when cfg.Secure is set, otherwise STARTTLS is attempted.
func NewSMTPMailer(cfg config.EmailConfig) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(30 * time.Second),
	}
	if cfg.Secure {
		opts = append(opts, mail.WithSSLPort(false))
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSOpportunistic))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password))
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: cfg.From}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	em := mail.NewMsg()
	if err := em.From(m.from); err != nil {
		return fmt.Errorf("from address: %w", err)
	}
	if err := em.To(msg.To); err != nil {
		return fmt.Errorf("to address: %w", err)
	}
	em.Subject(msg.Subject)
	em.SetBodyString(mail.TypeTextPlain, msg.Text)
	em.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	return m.client.DialAndSendWithContext(ctx, em)
}
