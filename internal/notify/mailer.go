// Package notify tells applicants about status changes, either by starting a
// notification workflow or by mailing them directly.
package notify

import (
	"context"
	"strings"

	awsclient "accelerator-admin/internal/common/aws"
	"accelerator-admin/internal/common/errors"
	"accelerator-admin/internal/models"
)

// DefaultTemplates returns one email template per writable status.
func DefaultTemplates() map[models.Status]models.NotificationTemplate {
	return map[models.Status]models.NotificationTemplate{
		models.StatusPending: {
			Subject: "We received your {{sourceType}} application",
			Body:    "Hello {{contactName}},\n\nYour application \"{{displayName}}\" is pending review. We will be in touch soon.\n\n{{adminNotes}}",
		},
		models.StatusUnderReview: {
			Subject: "Your {{sourceType}} application is under review",
			Body:    "Hello {{contactName}},\n\nOur team has started reviewing \"{{displayName}}\".\n\n{{adminNotes}}",
		},
		models.StatusApproved: {
			Subject: "Congratulations, your {{sourceType}} application was approved",
			Body:    "Hello {{contactName}},\n\nWe are happy to tell you that \"{{displayName}}\" has been approved.\n\n{{adminNotes}}",
		},
		models.StatusRejected: {
			Subject: "Update on your {{sourceType}} application",
			Body:    "Hello {{contactName}},\n\nThank you for applying with \"{{displayName}}\". After careful review we are unable to move forward at this time.\n\n{{adminNotes}}",
		},
		models.StatusWaitlisted: {
			Subject: "Your {{sourceType}} application has been waitlisted",
			Body:    "Hello {{contactName}},\n\n\"{{displayName}}\" has been placed on our waitlist. We will contact you if a spot opens.\n\n{{adminNotes}}",
		},
	}
}

// TemplateData exposes the request fields usable as placeholders.
func TemplateData(req models.NotificationRequest) map[string]string {
	return map[string]string{
		"recordId":    req.RecordID,
		"sourceType":  string(req.SourceType),
		"displayName": req.DisplayName,
		"contactName": req.ContactName,
		"status":      string(req.Status),
		"adminNotes":  req.AdminNotes,
	}
}

// RenderTemplate replaces {{key}} placeholders in one pass over tmpl.
// Placeholders without a value are removed. Substituted values are copied
// verbatim and never scanned for placeholders themselves.
func RenderTemplate(tmpl string, data map[string]string) string {
	var b strings.Builder
	rest := tmpl
	for {
		start := strings.Index(rest, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(rest[start:], "}}")
		if end == -1 {
			break
		}
		end += start
		b.WriteString(rest[:start])
		b.WriteString(data[rest[start+2:end]])
		rest = rest[end+2:]
	}
	b.WriteString(rest)

	return strings.TrimSpace(b.String())
}

// Mailer renders status templates and sends them through SES.
type Mailer struct {
	ses       awsclient.SESService
	from      string
	enabled   bool
	templates map[models.Status]models.NotificationTemplate
}

func NewMailer(ses awsclient.SESService, from string, enabled bool) *Mailer {
	return &Mailer{
		ses:       ses,
		from:      from,
		enabled:   enabled,
		templates: DefaultTemplates(),
	}
}

// Render returns the subject and body for req.
func (m *Mailer) Render(req models.NotificationRequest) (string, string, error) {
	tmpl, ok := m.templates[req.Status]
	if !ok {
		return "", "", errors.NewTemplateNotFoundError(string(req.Status))
	}
	data := TemplateData(req)
	return RenderTemplate(tmpl.Subject, data), RenderTemplate(tmpl.Body, data), nil
}

// Send mails req to its applicant and returns the delivery status. A disabled
// mailer or a request without an address yields NotificationDisabled.
func (m *Mailer) Send(ctx context.Context, req models.NotificationRequest) (string, error) {
	if !m.enabled || m.ses == nil || strings.TrimSpace(req.Email) == "" {
		return models.NotificationDisabled, nil
	}

	subject, body, err := m.Render(req)
	if err != nil {
		return models.NotificationFailed, err
	}

	if _, err := m.ses.SendEmail(ctx, awsclient.EmailInput(m.from, req.Email, subject, body)); err != nil {
		return models.NotificationFailed, errors.NewNotificationSendFailedError("email", err)
	}
	return models.NotificationSent, nil
}
