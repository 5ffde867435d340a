package notification

import "context"

// NoticeType identifies a kind of message, e.g. a password reset.
type NoticeType string

const (
	PasswordResetNotice NoticeType = "password_reset"
	ExampleNotice       NoticeType = "example"
)

// NotificationSystem represents a delivery channel.
type NotificationSystem string

const (
	EmailSystem NotificationSystem = "email"
)

type NotificationData struct {
	To      string            // Recipient address
	Subject string            // Overrides the template subject when set
	Body    string            // Plain body used when no template text is registered
	Data    map[string]string // Template variables
}

// NoticeTemplate holds the subject and bodies rendered for one notice type.
// Text uses text/template and Html uses html/template syntax.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

type Notifier interface {
	Send(ctx context.Context, noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
