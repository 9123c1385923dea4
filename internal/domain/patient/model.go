package patient

import (
	"time"

	"github.com/google/uuid"
)

// Preferred contact methods.
const (
	ContactEmail    = "email"
	ContactSMS      = "sms"
	ContactWhatsApp = "whatsapp"
)

// Patient is a person a clinic follows up with. At least one of email or
// phone must be present so a reminder can reach them.
type Patient struct {
	ID                     uuid.UUID  `db:"id" json:"id"`
	ClinicID               uuid.UUID  `db:"clinic_id" json:"clinic_id"`
	Name                   string     `db:"name" json:"name"`
	Email                  *string    `db:"email" json:"email,omitempty"`
	Phone                  *string    `db:"phone" json:"phone,omitempty"`
	DateOfBirth            *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	LastVisitDate          *time.Time `db:"last_visit_date" json:"last_visit_date,omitempty"`
	NextFollowUpDate       *time.Time `db:"next_follow_up_date" json:"next_follow_up_date,omitempty"`
	Notes                  *string    `db:"notes" json:"notes,omitempty"`
	PreferredContactMethod string     `db:"preferred_contact_method" json:"preferred_contact_method"`
	IsActive               bool       `db:"is_active" json:"is_active"`
	CreatedAt              time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time  `db:"updated_at" json:"updated_at"`
}

// OverdueFollowUp is a patient whose follow-up date has passed, joined with
// the owning clinic so the sweep can notify each practice.
type OverdueFollowUp struct {
	PatientID        uuid.UUID `json:"patient_id"`
	PatientName      string    `json:"patient_name"`
	NextFollowUpDate time.Time `json:"next_follow_up_date"`
	ClinicID         uuid.UUID `json:"clinic_id"`
	ClinicName       string    `json:"clinic_name"`
	ClinicEmail      string    `json:"clinic_email"`
}

// ListFilter narrows a patient listing.
type ListFilter struct {
	Search   string // matches name or email, case-insensitive
	IsActive *bool
}
