package clinic

import (
	"time"

	"github.com/google/uuid"
)

// Subscription plans.
const (
	PlanFree       = "free"
	PlanBasic      = "basic"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
)

// Subscription statuses.
const (
	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
	SubscriptionPastDue   = "past_due"
)

// Clinic is a registered practice account. The email is the Supabase auth
// account email and is unique across clinics.
type Clinic struct {
	ID                    uuid.UUID  `db:"id" json:"id"`
	Name                  string     `db:"name" json:"name"`
	Email                 string     `db:"email" json:"email"`
	Phone                 *string    `db:"phone" json:"phone,omitempty"`
	Address               *string    `db:"address" json:"address,omitempty"`
	SubscriptionPlan      string     `db:"subscription_plan" json:"subscription_plan"`
	SubscriptionStatus    string     `db:"subscription_status" json:"subscription_status"`
	SubscriptionStartDate *time.Time `db:"subscription_start_date" json:"subscription_start_date,omitempty"`
	SubscriptionEndDate   *time.Time `db:"subscription_end_date" json:"subscription_end_date,omitempty"`
	MaxPatients           int        `db:"max_patients" json:"max_patients"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// Dashboard is the at-a-glance summary shown after login.
type Dashboard struct {
	ActivePatients   int            `json:"active_patients"`
	RemindersByState map[string]int `json:"reminders_by_state"`
	ResponsesToday   int            `json:"responses_today"`
	UrgentToday      int            `json:"urgent_today"`
}
