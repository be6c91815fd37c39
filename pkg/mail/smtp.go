package mail

import (
	"context"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/noah-isme/tutoring-orchestrator/pkg/config"
)

const smtpTimeout = 10 * time.Second

// SMTPSender relays messages through an SMTP server, upgrading to TLS when the server offers it.
type SMTPSender struct {
	host string
	opts []gomail.Option
}

// NewSMTPSender builds a sender from mail configuration. PLAIN auth is used when a username is set.
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(smtpTimeout),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	return &SMTPSender{host: cfg.Host, opts: opts}
}

// Send opens one SMTP conversation per message.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, err := newMsg(msg)
	if err != nil {
		return err
	}
	client, err := gomail.NewClient(s.host, s.opts...)
	if err != nil {
		return fmt.Errorf("smtp client %s: %w", s.host, err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

func newMsg(msg Message) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return nil, fmt.Errorf("invalid from address %q: %w", msg.From, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetMessageID()
	m.SetBodyString(gomail.TypeTextPlain, msg.Text)
	return m, nil
}
