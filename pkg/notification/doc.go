// Package notification sends templated notices over registered delivery channels.
//
// A NotificationManager pairs a Notifier per NotificationSystem with a
// NoticeTemplate per NoticeType. Email delivery uses SMTP through go-mail:
//
//	nm, err := notification.NewNotificationManagerWithOptions(
//	    notification.WithSMTP(notification.SMTPConfig{
//	        Host: "localhost",
//	        Port: 1025,
//	        From: "noreply@example.com",
//	    }),
//	    notification.WithDefaultTemplates(),
//	)
//
// The manager implements the password reset notifier used by the login
// package through SendPasswordReset. Templates are embedded from
// templates/email and rendered with text/template and html/template.
//
// MockNotifier records rendered notices for tests; LogNotifier logs them when
// email delivery is disabled.
package notification
