package response

import (
	"time"

	"github.com/google/uuid"
)

// PatientResponse is one patient reply submitted through the public portal,
// together with its AI triage result. The ai_* fields are overwritten by
// manual correction or re-analysis; everything else is immutable.
type PatientResponse struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	ClinicID     uuid.UUID  `db:"clinic_id" json:"clinic_id"`
	PatientID    uuid.UUID  `db:"patient_id" json:"patient_id"`
	ReminderID   uuid.UUID  `db:"reminder_id" json:"reminder_id"`
	ResponseText string     `db:"response_text" json:"response_text"`
	AISummary    *string    `db:"ai_summary" json:"ai_summary"`
	AIStatus     *string    `db:"ai_status" json:"ai_status"`
	AIConfidence *float64   `db:"ai_confidence" json:"ai_confidence"`
	AIKeywords   []string   `db:"ai_keywords" json:"ai_keywords"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// WithPatient is a response joined with the patient it came from, for clinic
// staff views.
type WithPatient struct {
	PatientResponse
	PatientName  string  `db:"patient_name" json:"patient_name"`
	PatientEmail *string `db:"patient_email" json:"patient_email,omitempty"`
	PatientPhone *string `db:"patient_phone" json:"patient_phone,omitempty"`
}

// ListFilter narrows clinic response listings.
type ListFilter struct {
	AIStatus  string
	PatientID uuid.UUID
}

// KeywordStat aggregates how often a classifier keyword appeared and under
// which triage statuses.
type KeywordStat struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
	Fine    int    `json:"fine"`
	Mild    int    `json:"mild"`
	Urgent  int    `json:"urgent"`
}
