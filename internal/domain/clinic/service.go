package clinic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrEmailTaken is returned when registering with an email that already has a
// clinic.
var ErrEmailTaken = errors.New("a clinic is already registered for this email")

var validPlans = map[string]bool{
	PlanFree: true, PlanBasic: true, PlanPro: true, PlanEnterprise: true,
}

var validSubscriptionStatuses = map[string]bool{
	SubscriptionActive: true, SubscriptionCancelled: true, SubscriptionPastDue: true,
}

// Free-plan defaults applied at registration.
const freeMaxPatients = 10

// PatientCounter supplies the active patient count for the dashboard.
type PatientCounter interface {
	CountActive(ctx context.Context, clinicID uuid.UUID) (int, error)
}

// ReminderCounter supplies per-status reminder counts for the dashboard.
type ReminderCounter interface {
	CountByStatus(ctx context.Context, clinicID uuid.UUID) (map[string]int, error)
}

// ResponseCounter supplies response counts for a single day.
type ResponseCounter interface {
	CountOnDate(ctx context.Context, clinicID uuid.UUID, day time.Time) (total, urgent int, err error)
}

type Service struct {
	clinics   Repository
	patients  PatientCounter
	reminders ReminderCounter
	responses ResponseCounter
}

func NewService(clinics Repository) *Service {
	return &Service{clinics: clinics}
}

// SetStatsSources wires the cross-domain counters used by the dashboard.
func (s *Service) SetStatsSources(patients PatientCounter, reminders ReminderCounter, responses ResponseCounter) {
	s.patients = patients
	s.reminders = reminders
	s.responses = responses
}

func (s *Service) Register(ctx context.Context, c *Clinic) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(strings.ToLower(c.Email))
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.Email == "" || !strings.Contains(c.Email, "@") {
		return fmt.Errorf("a valid email is required")
	}
	if existing, err := s.clinics.GetByEmail(ctx, c.Email); err == nil && existing != nil {
		return ErrEmailTaken
	}
	c.SubscriptionPlan = PlanFree
	c.SubscriptionStatus = SubscriptionActive
	c.MaxPatients = freeMaxPatients
	return s.clinics.Create(ctx, c)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	return s.clinics.GetByID(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*Clinic, error) {
	return s.clinics.GetByEmail(ctx, email)
}

// ClinicIDByEmail implements the auth resolver contract.
func (s *Service) ClinicIDByEmail(ctx context.Context, email string) (string, error) {
	c, err := s.clinics.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	return c.ID.String(), nil
}

func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, name string, phone, address *string) (*Clinic, error) {
	c, err := s.clinics.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if name = strings.TrimSpace(name); name != "" {
		c.Name = name
	}
	if phone != nil {
		c.Phone = phone
	}
	if address != nil {
		c.Address = address
	}
	if err := s.clinics.UpdateProfile(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpgradeSubscription moves a clinic onto a paid plan after a verified
// payment.
func (s *Service) UpgradeSubscription(ctx context.Context, id uuid.UUID, plan string, start, end time.Time, maxPatients int) error {
	if !validPlans[plan] {
		return fmt.Errorf("invalid plan: %s", plan)
	}
	return s.clinics.UpdateSubscription(ctx, id, plan, SubscriptionActive, &start, &end, maxPatients)
}

// CancelSubscription drops the clinic back to the free plan and flags the
// subscription cancelled, which also stops reminder dispatch for the clinic.
func (s *Service) CancelSubscription(ctx context.Context, id uuid.UUID) error {
	c, err := s.clinics.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if c.SubscriptionStatus == SubscriptionCancelled {
		return fmt.Errorf("subscription is already cancelled")
	}
	return s.clinics.UpdateSubscription(ctx, id, PlanFree, SubscriptionCancelled, nil, nil, freeMaxPatients)
}

func (s *Service) ListActive(ctx context.Context) ([]*Clinic, error) {
	return s.clinics.ListActive(ctx)
}

// ClinicName returns the clinic's display name.
func (s *Service) ClinicName(ctx context.Context, id uuid.UUID) (string, error) {
	c, err := s.clinics.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return c.Name, nil
}

// PlanFor returns the clinic's current plan id.
func (s *Service) PlanFor(ctx context.Context, id uuid.UUID) (string, error) {
	c, err := s.clinics.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return c.SubscriptionPlan, nil
}

// MaxPatientsFor returns the patient cap for the clinic's plan.
func (s *Service) MaxPatientsFor(ctx context.Context, id uuid.UUID) (int, error) {
	c, err := s.clinics.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return c.MaxPatients, nil
}

func (s *Service) Dashboard(ctx context.Context, id uuid.UUID) (*Dashboard, error) {
	d := &Dashboard{RemindersByState: map[string]int{}}

	if s.patients != nil {
		n, err := s.patients.CountActive(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("patient stats: %w", err)
		}
		d.ActivePatients = n
	}
	if s.reminders != nil {
		counts, err := s.reminders.CountByStatus(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("reminder stats: %w", err)
		}
		d.RemindersByState = counts
	}
	if s.responses != nil {
		total, urgent, err := s.responses.CountOnDate(ctx, id, time.Now().UTC())
		if err != nil {
			return nil, fmt.Errorf("response stats: %w", err)
		}
		d.ResponsesToday = total
		d.UrgentToday = urgent
	}
	return d, nil
}
