package notification

import (
	"context"
	"log/slog"
	"sync"
)

// MockNotifier records rendered notices instead of delivering them.
type MockNotifier struct {
	mu                sync.Mutex
	SentNotifications []NotificationData
	Rendered          []RenderedNotice
	Err               error
}

func (m *MockNotifier) Send(ctx context.Context, noticeType NoticeType, notification NotificationData, template NoticeTemplate) error {
	rendered, err := Render(template, notification)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.SentNotifications = append(m.SentNotifications, notification)
	m.Rendered = append(m.Rendered, rendered)
	return nil
}

// Sent returns a copy of the delivered notifications.
func (m *MockNotifier) Sent() []NotificationData {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]NotificationData(nil), m.SentNotifications...)
}

// LogNotifier writes notices to the log. It stands in for SMTP when email
// delivery is disabled in development.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Send(ctx context.Context, noticeType NoticeType, notification NotificationData, template NoticeTemplate) error {
	rendered, err := Render(template, notification)
	if err != nil {
		return err
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "Email delivery disabled, notice not sent",
		"notice", noticeType, "subject", rendered.Subject, "body", rendered.Text)
	return nil
}
