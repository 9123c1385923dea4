package reminder

import (
	"time"

	"github.com/google/uuid"
)

// Reminder lifecycle states. A reminder starts pending, moves to sent or
// failed at dispatch, and to delivered once the patient responds. Cancelling
// is only possible while pending.
const (
	StatusPending   = "pending"
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Reminder is a scheduled follow-up message for one patient.
type Reminder struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	ClinicID           uuid.UUID  `db:"clinic_id" json:"clinic_id"`
	PatientID          uuid.UUID  `db:"patient_id" json:"patient_id"`
	Message            string     `db:"message" json:"message"`
	ScheduledDate      time.Time  `db:"scheduled_date" json:"scheduled_date"`
	ScheduledTime      *string    `db:"scheduled_time" json:"scheduled_time,omitempty"`
	Status             string     `db:"status" json:"status"`
	ContactMethod      *string    `db:"contact_method" json:"contact_method,omitempty"`
	SentAt             *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	ResponseReceivedAt *time.Time `db:"response_received_at" json:"response_received_at,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// DueReminder is a reminder joined with the patient and clinic fields the
// dispatcher needs to build and address the message.
type DueReminder struct {
	Reminder
	PatientName            string  `json:"patient_name"`
	PatientEmail           *string `json:"patient_email,omitempty"`
	PatientPhone           *string `json:"patient_phone,omitempty"`
	PreferredContactMethod string  `json:"preferred_contact_method"`
	ClinicName             string  `json:"clinic_name"`
}

// ListFilter narrows a reminder listing.
type ListFilter struct {
	Status    string
	PatientID uuid.UUID
}

// DispatchStats summarizes one dispatch run. Skipped counts reminders whose
// status changed concurrently between the due query and the send.
type DispatchStats struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}
