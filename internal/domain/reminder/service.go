package reminder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/caresync/caresync/internal/domain/notification"
	"github.com/caresync/caresync/internal/domain/patient"
	"github.com/caresync/caresync/internal/platform/notify"
)

var (
	// ErrNotPending is returned for transitions only allowed from pending.
	ErrNotPending = errors.New("reminder is no longer pending")
	// ErrReminderLimit is returned when a free-plan clinic hits its monthly cap.
	ErrReminderLimit = errors.New("monthly reminder limit reached for the free plan")
)

// errLostRace signals that another actor changed the reminder's status
// between the due query and the conditional update. The loser writes no log
// row and records no outcome.
var errLostRace = errors.New("reminder status changed concurrently")

// Free-plan clinics get this many reminders per calendar month.
const freeMonthlyReminderLimit = 50

// Per-message provider timeout during dispatch.
const sendTimeout = 30 * time.Second

var validStatuses = map[string]bool{
	StatusPending: true, StatusSent: true, StatusDelivered: true,
	StatusFailed: true, StatusCancelled: true,
}

// PatientSource verifies the target patient exists in the clinic.
type PatientSource interface {
	Get(ctx context.Context, clinicID, id uuid.UUID) (*patient.Patient, error)
}

// PlanSource supplies the clinic's current plan for cap enforcement.
type PlanSource interface {
	PlanFor(ctx context.Context, clinicID uuid.UUID) (string, error)
}

// LogWriter appends delivery attempts to the notification log.
type LogWriter interface {
	Record(ctx context.Context, l *notification.Log) error
}

// DispatchConfig carries the delivery dependencies for the dispatcher.
type DispatchConfig struct {
	Email     notify.EmailSender
	SMS       notify.SMSSender
	WhatsApp  notify.WhatsAppSender
	Templates *notify.TemplateEngine
	Logs      LogWriter
	ClientURL string
	Logger    zerolog.Logger
}

type Service struct {
	reminders Repository
	patients  PatientSource
	plans     PlanSource
	dispatch  DispatchConfig
}

func NewService(reminders Repository, patients PatientSource, plans PlanSource) *Service {
	return &Service{reminders: reminders, patients: patients, plans: plans}
}

// ConfigureDispatch wires the senders, templates and log writer used when
// reminders go out.
func (s *Service) ConfigureDispatch(cfg DispatchConfig) {
	s.dispatch = cfg
}

func (s *Service) Create(ctx context.Context, r *Reminder) error {
	if r.ClinicID == uuid.Nil {
		return fmt.Errorf("clinic_id is required")
	}
	if r.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	r.Message = strings.TrimSpace(r.Message)
	if r.Message == "" {
		return fmt.Errorf("message is required")
	}
	if r.ScheduledDate.IsZero() {
		return fmt.Errorf("scheduled_date is required")
	}
	if r.ContactMethod != nil && !notify.Channel(*r.ContactMethod).Valid() {
		return fmt.Errorf("invalid contact_method: %s", *r.ContactMethod)
	}

	if s.patients != nil {
		if _, err := s.patients.Get(ctx, r.ClinicID, r.PatientID); err != nil {
			return fmt.Errorf("patient not found in clinic")
		}
	}

	if s.plans != nil {
		plan, err := s.plans.PlanFor(ctx, r.ClinicID)
		if err != nil {
			return fmt.Errorf("look up plan: %w", err)
		}
		if plan == "free" {
			now := time.Now().UTC()
			monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
			count, err := s.reminders.CountCreatedSince(ctx, r.ClinicID, monthStart)
			if err != nil {
				return err
			}
			if count >= freeMonthlyReminderLimit {
				return ErrReminderLimit
			}
		}
	}

	r.Status = StatusPending
	return s.reminders.Create(ctx, r)
}

func (s *Service) Get(ctx context.Context, clinicID, id uuid.UUID) (*Reminder, error) {
	return s.reminders.GetByID(ctx, clinicID, id)
}

func (s *Service) List(ctx context.Context, clinicID uuid.UUID, filter ListFilter, limit, offset int) ([]*Reminder, int, error) {
	if filter.Status != "" && !validStatuses[filter.Status] {
		return nil, 0, fmt.Errorf("invalid status filter: %s", filter.Status)
	}
	return s.reminders.List(ctx, clinicID, filter, limit, offset)
}

// Update edits a reminder that has not gone out yet. A failed reminder can be
// edited too, which resets it to pending for the next dispatch run.
func (s *Service) Update(ctx context.Context, r *Reminder) error {
	existing, err := s.reminders.GetByID(ctx, r.ClinicID, r.ID)
	if err != nil {
		return err
	}
	if existing.Status != StatusPending && existing.Status != StatusFailed {
		return ErrNotPending
	}
	r.Message = strings.TrimSpace(r.Message)
	if r.Message == "" {
		return fmt.Errorf("message is required")
	}
	if r.ScheduledDate.IsZero() {
		r.ScheduledDate = existing.ScheduledDate
	}
	if r.ContactMethod != nil && !notify.Channel(*r.ContactMethod).Valid() {
		return fmt.Errorf("invalid contact_method: %s", *r.ContactMethod)
	}
	r.Status = StatusPending
	return s.reminders.Update(ctx, r)
}

// Cancel withdraws a pending reminder. Anything past pending stays in the
// log as history.
func (s *Service) Cancel(ctx context.Context, clinicID, id uuid.UUID) error {
	ok, err := s.reminders.Cancel(ctx, clinicID, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotPending
	}
	return nil
}

// SendNow dispatches a single pending reminder immediately, skipping its
// scheduled date.
func (s *Service) SendNow(ctx context.Context, clinicID, id uuid.UUID) (*Reminder, error) {
	due, err := s.reminders.LoadForDispatch(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}
	if due.Status != StatusPending {
		return nil, ErrNotPending
	}
	if err := s.dispatchOne(ctx, due); err != nil {
		if errors.Is(err, errLostRace) {
			return nil, ErrNotPending
		}
		return nil, err
	}
	return s.reminders.GetByID(ctx, clinicID, id)
}

// DispatchDue sends every pending reminder scheduled for date. One bad
// reminder never aborts the run; failures are counted and the loop moves on.
func (s *Service) DispatchDue(ctx context.Context, date time.Time) (DispatchStats, error) {
	log := s.dispatch.Logger

	due, err := s.reminders.GetDue(ctx, date)
	if err != nil {
		return DispatchStats{}, fmt.Errorf("load due reminders: %w", err)
	}

	stats := DispatchStats{Processed: len(due)}
	for _, d := range due {
		err := s.dispatchOne(ctx, d)
		switch {
		case err == nil:
			stats.Sent++
		case errors.Is(err, errLostRace):
			stats.Skipped++
		default:
			stats.Failed++
			log.Warn().
				Str("reminder_id", d.ID.String()).
				Str("clinic_id", d.ClinicID.String()).
				Err(err).
				Msg("reminder dispatch failed")
		}
	}

	log.Info().
		Int("processed", stats.Processed).
		Int("sent", stats.Sent).
		Int("failed", stats.Failed).
		Int("skipped", stats.Skipped).
		Msg("reminder dispatch run complete")
	return stats, nil
}

func (s *Service) dispatchOne(ctx context.Context, due *DueReminder) error {
	override := ""
	if due.ContactMethod != nil {
		override = *due.ContactMethod
	}
	channel := notify.ResolveChannel(override, due.PreferredContactMethod)

	respondURL := strings.TrimRight(s.dispatch.ClientURL, "/") + "/respond/" + due.ID.String()
	data := map[string]string{
		"clinic_name":  due.ClinicName,
		"patient_name": due.PatientName,
		"message":      due.Message,
		"respond_url":  respondURL,
	}

	var recipient, subject, body string
	var send func(ctx context.Context) (string, error)

	switch channel {
	case notify.ChannelEmail:
		if due.PatientEmail == nil || *due.PatientEmail == "" {
			return s.fail(ctx, due, channel, "", "patient has no email address")
		}
		recipient = *due.PatientEmail
		var err error
		subject, body, err = s.dispatch.Templates.Render(notify.TemplateReminderEmail, data)
		if err != nil {
			return s.fail(ctx, due, channel, recipient, err.Error())
		}
		send = func(ctx context.Context) (string, error) {
			return s.dispatch.Email.SendEmail(ctx, recipient, subject, body)
		}
	case notify.ChannelSMS, notify.ChannelWhatsApp:
		if due.PatientPhone == nil || *due.PatientPhone == "" {
			return s.fail(ctx, due, channel, "", "patient has no phone number")
		}
		recipient = *due.PatientPhone
		var err error
		_, body, err = s.dispatch.Templates.Render(notify.TemplateReminderText, data)
		if err != nil {
			return s.fail(ctx, due, channel, recipient, err.Error())
		}
		if channel == notify.ChannelSMS {
			send = func(ctx context.Context) (string, error) {
				return s.dispatch.SMS.SendSMS(ctx, recipient, body)
			}
		} else {
			send = func(ctx context.Context) (string, error) {
				return s.dispatch.WhatsApp.SendWhatsApp(ctx, recipient, body)
			}
		}
	default:
		return s.fail(ctx, due, channel, "", fmt.Sprintf("unsupported channel %q", channel))
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	providerID, err := send(sendCtx)
	if err != nil {
		return s.fail(ctx, due, channel, recipient, err.Error())
	}

	now := time.Now().UTC()
	ok, err := s.reminders.MarkSent(ctx, due.ID, now)
	if err != nil {
		return err
	}
	if !ok {
		// Lost the race to another dispatcher; the winner writes the log.
		return errLostRace
	}

	s.record(ctx, due, channel, recipient, notification.StatusSent, subject, providerID, "")
	return nil
}

// fail marks the reminder failed and records the attempt, even when the
// message never reached a provider (no usable recipient leaves the log entry
// with an empty recipient). The losing side of a status race writes nothing.
func (s *Service) fail(ctx context.Context, due *DueReminder, channel notify.Channel, recipient, reason string) error {
	ok, err := s.reminders.MarkFailed(ctx, due.ID)
	if err != nil {
		return err
	}
	if !ok {
		return errLostRace
	}
	s.record(ctx, due, channel, recipient, notification.StatusFailed, "", "", reason)
	return errors.New(reason)
}

func (s *Service) record(ctx context.Context, due *DueReminder, channel notify.Channel, recipient, status, subject, providerID, errMsg string) {
	if s.dispatch.Logs == nil {
		return
	}
	l := &notification.Log{
		ClinicID:   due.ClinicID,
		PatientID:  &due.PatientID,
		ReminderID: &due.ID,
		Type:       string(channel),
		Recipient:  recipient,
		Status:     status,
	}
	if subject != "" {
		l.Subject = &subject
	}
	if providerID != "" {
		l.ExternalID = &providerID
	}
	if errMsg != "" {
		l.ErrorMessage = &errMsg
	}
	if err := s.dispatch.Logs.Record(ctx, l); err != nil {
		s.dispatch.Logger.Warn().Err(err).
			Str("reminder_id", due.ID.String()).
			Msg("failed to write notification log")
	}
}

// CountByStatus implements the dashboard stats contract.
func (s *Service) CountByStatus(ctx context.Context, clinicID uuid.UUID) (map[string]int, error) {
	return s.reminders.CountByStatus(ctx, clinicID)
}

// Stats returns reminder counts by status plus this month's created total.
func (s *Service) Stats(ctx context.Context, clinicID uuid.UUID) (map[string]int, error) {
	counts, err := s.reminders.CountByStatus(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	created, err := s.reminders.CountCreatedSince(ctx, clinicID, monthStart)
	if err != nil {
		return nil, err
	}
	counts["created_this_month"] = created
	return counts, nil
}

// CountCreatedThisMonth reports usage against the monthly reminder cap.
func (s *Service) CountCreatedThisMonth(ctx context.Context, clinicID uuid.UUID) (int, error) {
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return s.reminders.CountCreatedSince(ctx, clinicID, monthStart)
}

// ResponseTarget resolves a reminder id from the public response portal to
// its clinic and patient.
func (s *Service) ResponseTarget(ctx context.Context, id uuid.UUID) (clinicID, patientID uuid.UUID, status string, err error) {
	r, err := s.reminders.GetAny(ctx, id)
	if err != nil {
		return uuid.Nil, uuid.Nil, "", err
	}
	return r.ClinicID, r.PatientID, r.Status, nil
}

// MarkDelivered closes the loop once a patient responds.
func (s *Service) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	return s.reminders.MarkDelivered(ctx, id, at)
}
