package notification

import (
	"embed"
	"fmt"
	"time"
)

//go:embed templates/*
var templateFiles embed.FS

func loadTemplate(filename string) (string, error) {
	content, err := templateFiles.ReadFile(filename)
	if err != nil {
		return "", fmt.Errorf("failed to read template %s: %w", filename, err)
	}
	return string(content), nil
}

// NotificationManagerOption is a function that configures a NotificationManager
type NotificationManagerOption func(*NotificationManager) error

// WithSMTP adds an email notifier with the provided SMTP configuration
func WithSMTP(config SMTPConfig) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		emailNotifier, err := NewEmailNotifier(config)
		if err != nil {
			return err
		}
		nm.RegisterNotifier(EmailSystem, emailNotifier)
		return nil
	}
}

// WithNotifier registers an arbitrary notifier, e.g. a MockNotifier in tests
func WithNotifier(system NotificationSystem, notifier Notifier) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		nm.RegisterNotifier(system, notifier)
		return nil
	}
}

// WithPasswordResetTemplate registers the password reset template
func WithPasswordResetTemplate() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		html, err := loadTemplate("templates/email/password_reset.html")
		if err != nil {
			return err
		}
		text, err := loadTemplate("templates/email/password_reset.txt")
		if err != nil {
			return err
		}
		return nm.RegisterNotification(PasswordResetNotice, EmailSystem, NoticeTemplate{
			Subject: "Password Reset Request",
			Text:    text,
			Html:    html,
		})
	}
}

// WithClock replaces time.Now when rendering relative expiry times
func WithClock(now func() time.Time) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		if now == nil {
			return fmt.Errorf("clock must not be nil")
		}
		nm.now = now
		return nil
	}
}

// WithDefaultTemplates registers all default notification templates
func WithDefaultTemplates() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		return WithPasswordResetTemplate()(nm)
	}
}

// NewNotificationManagerWithOptions creates a new notification manager with the provided options
func NewNotificationManagerWithOptions(opts ...NotificationManagerOption) (*NotificationManager, error) {
	notificationManager := NewNotificationManager()

	for _, opt := range opts {
		if err := opt(notificationManager); err != nil {
			return nil, err
		}
	}

	return notificationManager, nil
}
