package email

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	gomail "gopkg.in/gomail.v2"

	"github.com/superstorecomercio/novoguia-notifier/internal/config"
	"github.com/superstorecomercio/novoguia-notifier/pkg/validator"
)

const providerSMTP = "smtp"

type smtpTransport struct {
	dialer   *gomail.Dialer
	host     string
	validate validator.Validator
}

// NewSMTPTransport builds the gomail-backed transport.
func NewSMTPTransport(cfg config.SMTPConfig) Transport {
	return &smtpTransport{
		dialer:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		host:     cfg.Host,
		validate: validator.New(),
	}
}

// Send delivers one message. gomail has no context support, so the dial
// and send run in a goroutine and the context deadline converts into a
// transport failure.
func (t *smtpTransport) Send(ctx context.Context, msg *Message) (*Result, error) {
	if err := t.validate.Validate(msg); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}

	m := gomail.NewMessage()
	if msg.FromName != "" {
		m.SetHeader("From", m.FormatAddress(msg.From, msg.FromName))
	} else {
		m.SetHeader("From", msg.From)
	}
	m.SetHeader("To", msg.To)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetHeader("Subject", msg.Subject)
	messageID := fmt.Sprintf("<%s@%s>", uuid.New().String(), t.host)
	m.SetHeader("Message-ID", messageID)
	for k, v := range msg.Metadata {
		m.SetHeader("X-Notifier-"+k, v)
	}
	m.SetBody("text/html", msg.HTML)

	done := make(chan error, 1)
	go func() {
		done <- t.dialer.DialAndSend(m)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("smtp send timed out: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("smtp send failed: %w", err)
		}
	}

	return &Result{
		Provider:          providerSMTP,
		ProviderMessageID: messageID,
	}, nil
}
