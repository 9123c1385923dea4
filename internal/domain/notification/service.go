package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/caresync/caresync/internal/platform/notify"
)

var validTypes = map[string]bool{
	string(notify.ChannelEmail):    true,
	string(notify.ChannelSMS):      true,
	string(notify.ChannelWhatsApp): true,
}

var validStatuses = map[string]bool{
	StatusSent: true, StatusDelivered: true, StatusFailed: true, StatusBounced: true,
}

// ClinicDirectory resolves clinic display names for test sends.
type ClinicDirectory interface {
	ClinicName(ctx context.Context, id uuid.UUID) (string, error)
}

type Service struct {
	logs      Repository
	clinics   ClinicDirectory
	email     notify.EmailSender
	sms       notify.SMSSender
	whatsapp  notify.WhatsAppSender
	templates *notify.TemplateEngine
}

func NewService(logs Repository) *Service {
	return &Service{logs: logs}
}

// SetSenders wires the delivery providers used for test notifications.
func (s *Service) SetSenders(clinics ClinicDirectory, email notify.EmailSender, sms notify.SMSSender, whatsapp notify.WhatsAppSender, templates *notify.TemplateEngine) {
	s.clinics = clinics
	s.email = email
	s.sms = sms
	s.whatsapp = whatsapp
	s.templates = templates
}

// Record appends a delivery attempt to the log.
func (s *Service) Record(ctx context.Context, l *Log) error {
	if l.ClinicID == uuid.Nil {
		return fmt.Errorf("clinic_id is required")
	}
	if !validTypes[l.Type] {
		return fmt.Errorf("invalid notification type: %s", l.Type)
	}
	if !validStatuses[l.Status] {
		return fmt.Errorf("invalid notification status: %s", l.Status)
	}
	// A failed attempt may have no usable recipient (patient without an
	// email or phone on file); everything else must name one.
	if l.Recipient == "" && l.Status != StatusFailed {
		return fmt.Errorf("recipient is required")
	}
	return s.logs.Create(ctx, l)
}

func (s *Service) List(ctx context.Context, clinicID uuid.UUID, filter ListFilter, limit, offset int) ([]*Log, int, error) {
	if filter.Type != "" && !validTypes[filter.Type] {
		return nil, 0, fmt.Errorf("invalid type filter: %s", filter.Type)
	}
	if filter.Status != "" && !validStatuses[filter.Status] {
		return nil, 0, fmt.Errorf("invalid status filter: %s", filter.Status)
	}
	return s.logs.ListByClinic(ctx, clinicID, filter, limit, offset)
}

// Cleanup deletes log rows older than the retention window and returns the
// number removed.
func (s *Service) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	return s.logs.DeleteOlderThan(ctx, cutoff)
}

// TestSend delivers a test message over the requested channel and records the
// outcome. It lets a clinic verify its channel configuration end to end.
func (s *Service) TestSend(ctx context.Context, clinicID uuid.UUID, channel notify.Channel, recipient string) (*Log, error) {
	if !channel.Valid() {
		return nil, fmt.Errorf("invalid channel: %s", channel)
	}
	if recipient == "" {
		return nil, fmt.Errorf("recipient is required")
	}
	if s.templates == nil {
		return nil, fmt.Errorf("notification senders are not configured")
	}

	clinicName := "your clinic"
	if s.clinics != nil {
		if name, err := s.clinics.ClinicName(ctx, clinicID); err == nil && name != "" {
			clinicName = name
		}
	}

	subject, body, err := s.templates.Render(notify.TemplateTest, map[string]string{
		"clinic_name": clinicName,
		"channel":     string(channel),
	})
	if err != nil {
		return nil, err
	}

	var providerID string
	var sendErr error
	switch channel {
	case notify.ChannelEmail:
		if s.email == nil {
			return nil, fmt.Errorf("email sender is not configured")
		}
		providerID, sendErr = s.email.SendEmail(ctx, recipient, subject, body)
	case notify.ChannelSMS:
		if s.sms == nil {
			return nil, fmt.Errorf("sms sender is not configured")
		}
		providerID, sendErr = s.sms.SendSMS(ctx, recipient, body)
	case notify.ChannelWhatsApp:
		if s.whatsapp == nil {
			return nil, fmt.Errorf("whatsapp sender is not configured")
		}
		providerID, sendErr = s.whatsapp.SendWhatsApp(ctx, recipient, body)
	}

	l := &Log{
		ClinicID:  clinicID,
		Type:      string(channel),
		Recipient: recipient,
		Status:    StatusSent,
	}
	if channel == notify.ChannelEmail {
		l.Subject = &subject
	}
	if sendErr != nil {
		l.Status = StatusFailed
		msg := sendErr.Error()
		l.ErrorMessage = &msg
	} else if providerID != "" {
		l.ExternalID = &providerID
	}

	if err := s.logs.Create(ctx, l); err != nil {
		return nil, err
	}
	if sendErr != nil {
		return l, fmt.Errorf("test send failed: %w", sendErr)
	}
	return l, nil
}
