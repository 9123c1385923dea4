package billing

import (
	"time"

	"github.com/google/uuid"
)

// Payment statuses.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

// Billing periods accepted by the upgrade flow.
const (
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
)

// Plan is a purchasable subscription tier. Limits of -1 mean unlimited.
type Plan struct {
	ID                   uuid.UUID `db:"id" json:"id"`
	Name                 string    `db:"name" json:"name"`
	DisplayName          string    `db:"display_name" json:"display_name"`
	PriceMonthly         float64   `db:"price_monthly" json:"price_monthly"`
	PriceYearly          float64   `db:"price_yearly" json:"price_yearly"`
	MaxPatients          int       `db:"max_patients" json:"max_patients"`
	MaxRemindersPerMonth int       `db:"max_reminders_per_month" json:"max_reminders_per_month"`
	Features             []string  `db:"features" json:"features"`
	IsActive             bool      `db:"is_active" json:"is_active"`
}

// Payment records one checkout attempt. Amount is kept in USD; the gateway
// charge happens in NGN after conversion.
type Payment struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	ClinicID           uuid.UUID `db:"clinic_id" json:"clinic_id"`
	PlanID             uuid.UUID `db:"plan_id" json:"plan_id"`
	Amount             float64   `db:"amount" json:"amount"`
	Currency           string    `db:"currency" json:"currency"`
	PaymentMethod      string    `db:"payment_method" json:"payment_method"`
	ExternalPaymentID  string    `db:"external_payment_id" json:"external_payment_id"`
	Status             string    `db:"status" json:"status"`
	BillingPeriodStart time.Time `db:"billing_period_start" json:"billing_period_start"`
	BillingPeriodEnd   time.Time `db:"billing_period_end" json:"billing_period_end"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// PaymentWithPlan joins a payment with its plan's names for history listings.
type PaymentWithPlan struct {
	Payment
	PlanName        string `db:"plan_name" json:"plan_name"`
	PlanDisplayName string `db:"plan_display_name" json:"plan_display_name"`
}

// Checkout is what the client needs to send the user to the hosted payment
// page.
type Checkout struct {
	AuthorizationURL string    `json:"authorization_url"`
	AccessCode       string    `json:"access_code"`
	Reference        string    `json:"reference"`
	PaymentID        uuid.UUID `json:"payment_id"`
}

// Usage reports plan limits against current consumption. Remaining values of
// -1 mean unlimited.
type Usage struct {
	Plan struct {
		Name                 string `json:"name"`
		DisplayName          string `json:"display_name"`
		MaxPatients          int    `json:"max_patients"`
		MaxRemindersPerMonth int    `json:"max_reminders_per_month"`
	} `json:"plan"`
	Current struct {
		Patients           int `json:"patients"`
		RemindersThisMonth int `json:"reminders_this_month"`
	} `json:"current"`
	Limits struct {
		PatientsRemaining  int `json:"patients_remaining"`
		RemindersRemaining int `json:"reminders_remaining"`
	} `json:"limits"`
}
