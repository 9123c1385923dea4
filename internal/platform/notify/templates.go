package notify

import (
	"fmt"
	"strings"
	"sync"
)

// Template defines a reusable message template. Body holds HTML for email
// templates and plain text for SMS/WhatsApp templates.
type Template struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Subject string  `json:"subject"`
	Body    string  `json:"body"`
	Channel Channel `json:"channel"`
}

// TemplateEngine manages message templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// Built-in template ids.
const (
	TemplateReminderEmail = "follow-up-reminder-email"
	TemplateReminderText  = "follow-up-reminder-text"
	TemplateOverdue       = "overdue-summary"
	TemplateDailySummary  = "daily-summary"
	TemplateTest          = "test-notification"
)

// NewTemplateEngine creates a TemplateEngine with the built-in templates
// pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:      TemplateReminderEmail,
			Name:    "Follow-up Reminder (email)",
			Subject: "A message from {{clinic_name}}",
			Body: `<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto">
  <h2 style="color:#2563eb">{{clinic_name}}</h2>
  <p>Hi {{patient_name}},</p>
  <p>{{message}}</p>
  <p style="margin:24px 0">
    <a href="{{respond_url}}" style="background:#2563eb;color:#fff;padding:12px 24px;border-radius:6px;text-decoration:none">Let us know how you're doing</a>
  </p>
  <p style="color:#6b7280;font-size:13px">If the button does not work, open this link: {{respond_url}}</p>
</div>`,
			Channel: ChannelEmail,
		},
		{
			ID:      TemplateReminderText,
			Name:    "Follow-up Reminder (text)",
			Body:    "Hi {{patient_name}}, this is {{clinic_name}}. {{message}} Let us know how you're doing: {{respond_url}}",
			Channel: ChannelSMS,
		},
		{
			ID:      TemplateOverdue,
			Name:    "Overdue Follow-ups Summary",
			Subject: "{{count}} patient(s) overdue for follow-up",
			Body: `<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto">
  <h2 style="color:#dc2626">Overdue follow-ups</h2>
  <p>Hello {{clinic_name}},</p>
  <p>The following patients have passed their scheduled follow-up date:</p>
  <ul>{{patient_list}}</ul>
  <p>Log in to CareSync to schedule their reminders.</p>
</div>`,
			Channel: ChannelEmail,
		},
		{
			ID:      TemplateDailySummary,
			Name:    "Daily Response Summary",
			Subject: "Daily patient response summary for {{date}}",
			Body: `<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto">
  <h2 style="color:#2563eb">Daily summary for {{date}}</h2>
  <p>Hello {{clinic_name}}, here is how your patients responded today:</p>
  <table style="border-collapse:collapse;width:100%">
    <tr><td style="padding:8px;border:1px solid #e5e7eb">Total responses</td><td style="padding:8px;border:1px solid #e5e7eb"><strong>{{total}}</strong></td></tr>
    <tr><td style="padding:8px;border:1px solid #e5e7eb">Doing fine</td><td style="padding:8px;border:1px solid #e5e7eb">{{fine}}</td></tr>
    <tr><td style="padding:8px;border:1px solid #e5e7eb">Mild issues</td><td style="padding:8px;border:1px solid #e5e7eb">{{mild}}</td></tr>
    <tr><td style="padding:8px;border:1px solid #e5e7eb;color:#dc2626"><strong>Urgent</strong></td><td style="padding:8px;border:1px solid #e5e7eb;color:#dc2626"><strong>{{urgent}}</strong></td></tr>
  </table>
  <p style="color:#6b7280;font-size:13px">Urgent responses need prompt attention. Review them in your dashboard.</p>
</div>`,
			Channel: ChannelEmail,
		},
		{
			ID:      TemplateTest,
			Name:    "Test Notification",
			Subject: "CareSync test notification",
			Body:    "This is a test notification from {{clinic_name}}. Your {{channel}} channel is working.",
			Channel: ChannelEmail,
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template by ID and performs {{key}} replacement using the
// supplied data map. Keys present in the template but absent from data are
// left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject = t.Subject
	body = t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}
