package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host     string
	Port     int
	TLS      bool // implicit TLS (SMTPS); otherwise STARTTLS when offered
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

type EmailNotifier struct {
	SMTPConfig SMTPConfig
	client     *mail.Client
}

func NewEmailNotifier(config SMTPConfig) (*EmailNotifier, error) {
	if config.Host == "" || config.From == "" {
		return nil, fmt.Errorf("smtp host and from address are required")
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	opts := []mail.Option{
		mail.WithPort(config.Port),
		mail.WithTimeout(timeout),
	}

	// Only add authentication if username and password are provided
	if config.Username != "" && config.Password != "" {
		slog.Info("Adding authentication", "user", config.Username)
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(config.Username),
			mail.WithPassword(config.Password),
		)
	}

	if config.TLS {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	slog.Info("Creating mail client", "Host", config.Host, "Port", config.Port, "TLS", config.TLS)
	client, err := mail.NewClient(config.Host, opts...)
	if err != nil {
		slog.Error("Failed to create mail client", "err", err)
		return nil, err
	}

	return &EmailNotifier{SMTPConfig: config, client: client}, nil
}

// Send renders the template and delivers it within ctx.
func (e *EmailNotifier) Send(ctx context.Context, noticeType NoticeType, notification NotificationData, noticeTemplate NoticeTemplate) error {
	if notification.To == "" {
		return fmt.Errorf("email notification requires 'To' address")
	}

	rendered, err := Render(noticeTemplate, notification)
	if err != nil {
		slog.Error("Failed to render email template", "notice", noticeType, "err", err)
		return err
	}

	msg, err := e.newMessage(notification.To, rendered)
	if err != nil {
		return err
	}

	if err := e.client.DialAndSendWithContext(ctx, msg); err != nil {
		slog.Error("Failed to send email", "notice", noticeType, "err", err)
		return err
	}

	slog.Info("Email sent successfully", "notice", noticeType, "host", e.SMTPConfig.Host, "port", e.SMTPConfig.Port)
	return nil
}

func (e *EmailNotifier) newMessage(to string, rendered RenderedNotice) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(e.SMTPConfig.From); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(rendered.Subject)

	switch {
	case rendered.Text != "" && rendered.Html != "":
		msg.SetBodyString(mail.TypeTextPlain, rendered.Text)
		msg.AddAlternativeString(mail.TypeTextHTML, rendered.Html)
	case rendered.Html != "":
		msg.SetBodyString(mail.TypeTextHTML, rendered.Html)
	default:
		msg.SetBodyString(mail.TypeTextPlain, rendered.Text)
	}
	return msg, nil
}
