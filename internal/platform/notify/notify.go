// Package notify delivers patient-facing messages over email, SMS and
// WhatsApp, with template rendering and test doubles for the provider
// clients.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Channel is the delivery channel for an outbound message.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

// Valid reports whether c is a supported delivery channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelWhatsApp:
		return true
	}
	return false
}

// ResolveChannel picks the delivery channel for a reminder. A per-reminder
// override takes precedence over the patient's preferred contact method; when
// neither is set, email is used. The result may still be an unsupported value
// (bad data in either field) which the dispatcher treats as a send failure.
func ResolveChannel(override, preferred string) Channel {
	if override != "" {
		return Channel(override)
	}
	if preferred != "" {
		return Channel(preferred)
	}
	return ChannelEmail
}

// EmailSender is the interface for sending email messages. The returned id is
// the provider's message identifier.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, html string) (string, error)
}

// SMSSender is the interface for sending SMS messages.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) (string, error)
}

// WhatsAppSender is the interface for sending WhatsApp messages.
type WhatsAppSender interface {
	SendWhatsApp(ctx context.Context, to, body string) (string, error)
}

// DisabledSender stands in for a provider whose credentials are not
// configured. Every send fails, which surfaces in the notification log
// instead of crashing the dispatcher.
type DisabledSender struct {
	// Provider names the missing integration in error messages.
	Provider string
}

func (d DisabledSender) err() error {
	return fmt.Errorf("%s sender is not configured", d.Provider)
}

func (d DisabledSender) SendEmail(context.Context, string, string, string) (string, error) {
	return "", d.err()
}

func (d DisabledSender) SendSMS(context.Context, string, string) (string, error) {
	return "", d.err()
}

func (d DisabledSender) SendWhatsApp(context.Context, string, string) (string, error) {
	return "", d.err()
}

// ---------------------------------------------------------------------------
// Mock Senders (test doubles)
// ---------------------------------------------------------------------------

// EmailCall records a single call to SendEmail.
type EmailCall struct {
	To      string
	Subject string
	HTML    string
}

// MockEmailSender is a test double for EmailSender.
type MockEmailSender struct {
	mu         sync.Mutex
	calls      []EmailCall
	ShouldFail bool
	FailError  string
}

// SendEmail records the call and optionally returns an error.
func (m *MockEmailSender) SendEmail(_ context.Context, to, subject, html string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, EmailCall{To: to, Subject: subject, HTML: html})
	if m.ShouldFail {
		return "", errors.New(m.FailError)
	}
	return fmt.Sprintf("mock-email-%d", len(m.calls)), nil
}

// Calls returns a copy of recorded email calls.
func (m *MockEmailSender) Calls() []EmailCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EmailCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// TextCall records a single call to SendSMS or SendWhatsApp.
type TextCall struct {
	To   string
	Body string
}

// MockTextSender is a test double for both SMSSender and WhatsAppSender.
type MockTextSender struct {
	mu         sync.Mutex
	calls      []TextCall
	ShouldFail bool
	FailError  string
}

func (m *MockTextSender) record(to, body string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, TextCall{To: to, Body: body})
	if m.ShouldFail {
		return "", errors.New(m.FailError)
	}
	return fmt.Sprintf("mock-text-%d", len(m.calls)), nil
}

// SendSMS records the call and optionally returns an error.
func (m *MockTextSender) SendSMS(_ context.Context, to, body string) (string, error) {
	return m.record(to, body)
}

// SendWhatsApp records the call and optionally returns an error.
func (m *MockTextSender) SendWhatsApp(_ context.Context, to, body string) (string, error) {
	return m.record(to, body)
}

// Calls returns a copy of recorded text calls.
func (m *MockTextSender) Calls() []TextCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TextCall, len(m.calls))
	copy(out, m.calls)
	return out
}
