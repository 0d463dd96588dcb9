package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"
)

var ErrNotConfigured = errors.New("email relay is not configured")

type SMTPConfig struct {
	Host     string
	Port     int
	TLS      bool
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// Configured reports whether the relay can be used at all
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.Username != "" && c.Password != "" && c.From != ""
}

type EmailNotifier struct {
	SMTPConfig SMTPConfig
	client     *mail.Client
	templates  map[NoticeType]NoticeTemplate
}

// NewEmailNotifier builds a go-mail client for the relay. An unconfigured relay
// yields ErrNotConfigured so callers can disable the email channel.
func NewEmailNotifier(config SMTPConfig) (*EmailNotifier, error) {
	if !config.Configured() {
		return nil, ErrNotConfigured
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}

	opts := []mail.Option{
		mail.WithPort(config.Port),
		mail.WithTimeout(config.Timeout),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(config.Username),
		mail.WithPassword(config.Password),
	}

	switch {
	case config.Port == 465:
		opts = append(opts, mail.WithSSL())
	case config.TLS:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	client, err := mail.NewClient(config.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	slog.Info("Mail client created", "host", config.Host, "port", config.Port, "tls", config.TLS)
	return &EmailNotifier{SMTPConfig: config, client: client, templates: templates}, nil
}

func (e *EmailNotifier) Send(ctx context.Context, noticeType NoticeType, notification NotificationData) error {
	if notification.To == "" {
		return fmt.Errorf("email notification requires 'To' address")
	}
	tmpl, ok := e.templates[noticeType]
	if !ok {
		return fmt.Errorf("no template for notice type %s", noticeType)
	}

	textBody, htmlBody, err := tmpl.Render(notification.Data)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.From(e.SMTPConfig.From); err != nil {
		return fmt.Errorf("failed to set from address: %w", err)
	}
	if err := msg.To(notification.To); err != nil {
		return fmt.Errorf("failed to set to address: %w", err)
	}
	msg.Subject(tmpl.Subject)
	msg.SetBodyString(mail.TypeTextPlain, textBody)
	msg.AddAlternativeString(mail.TypeTextHTML, htmlBody)

	if err := e.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	slog.Info("Email sent", "notice", noticeType, "host", e.SMTPConfig.Host)
	return nil
}
