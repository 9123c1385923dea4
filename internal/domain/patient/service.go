package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrPatientLimit is returned when a clinic is at its plan's patient cap.
var ErrPatientLimit = errors.New("patient limit reached for the current plan")

var validContactMethods = map[string]bool{
	ContactEmail: true, ContactSMS: true, ContactWhatsApp: true,
}

// PlanLimits supplies the patient cap for a clinic. The clinic service
// implements this.
type PlanLimits interface {
	MaxPatientsFor(ctx context.Context, clinicID uuid.UUID) (int, error)
}

type Service struct {
	patients Repository
	limits   PlanLimits
}

func NewService(patients Repository, limits PlanLimits) *Service {
	return &Service{patients: patients, limits: limits}
}

func (s *Service) validate(p *Patient) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if (p.Email == nil || *p.Email == "") && (p.Phone == nil || *p.Phone == "") {
		return fmt.Errorf("at least one of email or phone is required")
	}
	if p.PreferredContactMethod == "" {
		p.PreferredContactMethod = ContactEmail
	}
	if !validContactMethods[p.PreferredContactMethod] {
		return fmt.Errorf("invalid preferred_contact_method: %s", p.PreferredContactMethod)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if p.ClinicID == uuid.Nil {
		return fmt.Errorf("clinic_id is required")
	}
	if err := s.validate(p); err != nil {
		return err
	}

	if s.limits != nil {
		max, err := s.limits.MaxPatientsFor(ctx, p.ClinicID)
		if err != nil {
			return fmt.Errorf("look up plan limits: %w", err)
		}
		count, err := s.patients.CountActive(ctx, p.ClinicID)
		if err != nil {
			return err
		}
		if max > 0 && count >= max {
			return ErrPatientLimit
		}
	}

	p.IsActive = true
	return s.patients.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, clinicID, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, clinicID, id)
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	existing, err := s.patients.GetByID(ctx, p.ClinicID, p.ID)
	if err != nil {
		return err
	}
	if err := s.validate(p); err != nil {
		return err
	}
	p.CreatedAt = existing.CreatedAt
	return s.patients.Update(ctx, p)
}

// Deactivate soft-deletes a patient. Historical reminders and responses are
// kept.
func (s *Service) Deactivate(ctx context.Context, clinicID, id uuid.UUID) error {
	return s.patients.Deactivate(ctx, clinicID, id)
}

func (s *Service) List(ctx context.Context, clinicID uuid.UUID, filter ListFilter, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, clinicID, filter, limit, offset)
}

// CountActive implements the dashboard stats contract.
func (s *Service) CountActive(ctx context.Context, clinicID uuid.UUID) (int, error) {
	return s.patients.CountActive(ctx, clinicID)
}

// UpcomingFollowUps lists active patients due within the next days days.
func (s *Service) UpcomingFollowUps(ctx context.Context, clinicID uuid.UUID, days int) ([]*Patient, error) {
	if days <= 0 {
		days = 7
	}
	now := time.Now().UTC().Truncate(24 * time.Hour)
	return s.patients.ListUpcoming(ctx, clinicID, now, now.AddDate(0, 0, days))
}

// OverdueFollowUps lists follow-ups past due across all active clinics,
// ordered by clinic for grouping.
func (s *Service) OverdueFollowUps(ctx context.Context, asOf time.Time) ([]*OverdueFollowUp, error) {
	return s.patients.ListOverdue(ctx, asOf)
}
