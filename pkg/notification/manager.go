package notification

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// NotificationManager routes a notice to the notifier registered for a
// system, together with the template registered for that notice type.
type NotificationManager struct {
	mu                   sync.RWMutex
	notifiers            map[NotificationSystem]Notifier
	notificationRegistry map[NoticeType]map[NotificationSystem]NoticeTemplate
	now                  func() time.Time
}

// NewNotificationManager creates and returns a new NotificationManager.
func NewNotificationManager() *NotificationManager {
	return &NotificationManager{
		notifiers:            make(map[NotificationSystem]Notifier),
		notificationRegistry: make(map[NoticeType]map[NotificationSystem]NoticeTemplate),
		now:                  time.Now,
	}
}

// RegisterNotifier registers a notifier for a specific system.
func (nm *NotificationManager) RegisterNotifier(system NotificationSystem, notifier Notifier) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.notifiers[system] = notifier
}

// RegisterNotification adds or replaces the template for a notice type on a system.
func (nm *NotificationManager) RegisterNotification(noticeType NoticeType, system NotificationSystem, template NoticeTemplate) error {
	if noticeType == "" || system == "" {
		return fmt.Errorf("invalid input: notice type and system cannot be empty")
	}
	if template.Text == "" && template.Html == "" {
		return fmt.Errorf("invalid template for %s: text or html body is required", noticeType)
	}

	nm.mu.Lock()
	defer nm.mu.Unlock()
	if _, exists := nm.notificationRegistry[noticeType]; !exists {
		nm.notificationRegistry[noticeType] = make(map[NotificationSystem]NoticeTemplate)
	}
	nm.notificationRegistry[noticeType][system] = template
	return nil
}

// Send delivers a notice through the given system.
func (nm *NotificationManager) Send(ctx context.Context, noticeType NoticeType, system NotificationSystem, notification NotificationData) error {
	nm.mu.RLock()
	systemTemplates, exists := nm.notificationRegistry[noticeType]
	if !exists {
		nm.mu.RUnlock()
		return fmt.Errorf("no templates registered for notice type: %s", noticeType)
	}
	template, exists := systemTemplates[system]
	if !exists {
		nm.mu.RUnlock()
		return fmt.Errorf("no template registered for system: %s under notice type: %s", system, noticeType)
	}
	notifier, exists := nm.notifiers[system]
	nm.mu.RUnlock()
	if !exists {
		return fmt.Errorf("no notifier registered for system: %s", system)
	}

	if notification.Subject != "" {
		template.Subject = notification.Subject
	}
	return notifier.Send(ctx, noticeType, notification, template)
}
