package notify

import (
	"context"
	"fmt"

	"staybook/pkg/config"
	"staybook/pkg/logger"

	"gopkg.in/gomail.v2"
)

type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:   cfg.SMTPSender,
	}
}

// Send delivers one message. gomail has no context support, so the dial runs
// in its own goroutine and Send returns early when ctx ends.
func (m *SMTPMailer) Send(ctx context.Context, mail Mail) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", mail.To)
	msg.SetHeader("Subject", mail.Subject)
	msg.SetBody("text/plain", mail.Body)

	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", mail.To, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send to %s: %w", mail.To, ctx.Err())
	}
}

// LogMailer writes mail to the log instead of sending it. Used when SMTP is
// not configured.
type LogMailer struct {
	log *logger.Logger
}

func NewLogMailer(log *logger.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, mail Mail) error {
	m.log.Info("Mail not sent, SMTP disabled", "to", mail.To, "subject", mail.Subject)
	return nil
}

func NewMailer(cfg *config.Config) Mailer {
	if cfg.SMTPHost == "" {
		return NewLogMailer(cfg.Log.Component("mail"))
	}
	return NewSMTPMailer(cfg)
}
