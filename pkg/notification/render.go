package notification

import (
	"bytes"
	htmltemplate "html/template"
	texttemplate "text/template"
)

// RenderedNotice is a template after variable substitution.
type RenderedNotice struct {
	Subject string
	Text    string
	Html    string
}

// Render executes the template bodies against notification.Data. When the
// template has no text body, notification.Body is used instead.
func Render(template NoticeTemplate, notification NotificationData) (RenderedNotice, error) {
	out := RenderedNotice{Subject: template.Subject, Text: notification.Body}

	if template.Text != "" {
		tmpl, err := texttemplate.New("text").Option("missingkey=error").Parse(template.Text)
		if err != nil {
			return RenderedNotice{}, err
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, notification.Data); err != nil {
			return RenderedNotice{}, err
		}
		out.Text = buf.String()
	}

	if template.Html != "" {
		tmpl, err := htmltemplate.New("html").Option("missingkey=error").Parse(template.Html)
		if err != nil {
			return RenderedNotice{}, err
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, notification.Data); err != nil {
			return RenderedNotice{}, err
		}
		out.Html = buf.String()
	}

	return out, nil
}
