package notify

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/wneessen/go-mail"
)

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Email struct {
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Mailer delivers transactional email.
type Mailer interface {
	Send(ctx context.Context, e Email) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// NewMailer returns an SMTP mailer, or a LogMailer when no host is set.
func NewMailer(cfg SMTPConfig) Mailer {
	if cfg.Host == "" {
		log.Println("SMTP_HOST not set, emails will only be logged")
		return LogMailer{}
	}
	return NewSMTPMailer(cfg)
}

func (m *SMTPMailer) Send(ctx context.Context, e Email) error {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(e.To); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(e.Subject)
	msg.SetBodyString(mail.TypeTextHTML, e.HTML)

	for _, a := range e.Attachments {
		err := msg.AttachReader(a.Filename, bytes.NewReader(a.Data),
			mail.WithFileContentType(mail.ContentType(a.ContentType)))
		if err != nil {
			return fmt.Errorf("attach %s: %w", a.Filename, err)
		}
	}

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", e.To, err)
	}
	return nil
}

// LogMailer only logs outgoing mail. Used when no SMTP host is configured.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, e Email) error {
	total := 0
	for _, a := range e.Attachments {
		total += len(a.Data)
	}
	log.Printf("mail to=%s subject=%q attachments=%d bytes=%d", e.To, e.Subject, len(e.Attachments), total)
	return nil
}
