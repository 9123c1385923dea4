package notification

import (
	"time"

	"github.com/google/uuid"
)

// Delivery outcomes recorded in the log.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
	StatusBounced   = "bounced"
)

// Log is one append-only record of an outbound message attempt. Rows are
// never updated; the weekly cleanup job prunes old ones.
type Log struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	ClinicID     uuid.UUID  `db:"clinic_id" json:"clinic_id"`
	PatientID    *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	ReminderID   *uuid.UUID `db:"reminder_id" json:"reminder_id,omitempty"`
	Type         string     `db:"type" json:"type"`
	Recipient    string     `db:"recipient" json:"recipient"`
	Subject      *string    `db:"subject" json:"subject,omitempty"`
	Status       string     `db:"status" json:"status"`
	ExternalID   *string    `db:"external_id" json:"external_id,omitempty"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
	SentAt       time.Time  `db:"sent_at" json:"sent_at"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// ListFilter narrows a log listing.
type ListFilter struct {
	Type   string
	Status string
}
