package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/caresync/caresync/internal/domain/clinic"
	"github.com/caresync/caresync/internal/platform/paystack"
)

var (
	// ErrPlanNotFound is returned for an unknown or inactive plan id.
	ErrPlanNotFound = errors.New("subscription plan not found")
	// ErrPaymentNotFound is returned when a reference matches no payment
	// belonging to the clinic.
	ErrPaymentNotFound = errors.New("payment record not found")
	// ErrAlreadyProcessed is returned when a payment has already left the
	// pending state.
	ErrAlreadyProcessed = errors.New("payment already processed")
	// ErrInvalidSignature is returned for webhook posts that fail the
	// signature check.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Gateway is the payment provider boundary, satisfied by *paystack.Client.
type Gateway interface {
	InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeData, error)
	VerifyTransaction(ctx context.Context, reference string) (*paystack.TransactionData, error)
	VerifyWebhookSignature(body []byte, signature string) bool
}

// Clinics is the slice of the clinic service billing needs.
type Clinics interface {
	Get(ctx context.Context, id uuid.UUID) (*clinic.Clinic, error)
	UpgradeSubscription(ctx context.Context, id uuid.UUID, plan string, start, end time.Time, maxPatients int) error
	CancelSubscription(ctx context.Context, id uuid.UUID) error
}

// PatientCounter supplies active patient counts for usage reporting.
type PatientCounter interface {
	CountActive(ctx context.Context, clinicID uuid.UUID) (int, error)
}

// ReminderCounter supplies this month's reminder count for usage reporting.
type ReminderCounter interface {
	CountCreatedThisMonth(ctx context.Context, clinicID uuid.UUID) (int, error)
}

// Config carries the billing knobs.
type Config struct {
	// USDToNGN converts plan prices to the gateway's settlement currency.
	USDToNGN float64
	// CallbackURL is where the hosted checkout redirects after payment.
	CallbackURL string
}

type Service struct {
	repo      Repository
	gateway   Gateway
	clinics   Clinics
	patients  PatientCounter
	reminders ReminderCounter
	cfg       Config
	logger    zerolog.Logger
}

func NewService(repo Repository, gateway Gateway, clinics Clinics, cfg Config, logger zerolog.Logger) *Service {
	if cfg.USDToNGN <= 0 {
		cfg.USDToNGN = 1600
	}
	return &Service{
		repo:    repo,
		gateway: gateway,
		clinics: clinics,
		cfg:     cfg,
		logger:  logger,
	}
}

// SetUsageSources wires the counters behind GET /billing/usage.
func (s *Service) SetUsageSources(patients PatientCounter, reminders ReminderCounter) {
	s.patients = patients
	s.reminders = reminders
}

func (s *Service) Plans(ctx context.Context) ([]*Plan, error) {
	return s.repo.ListActivePlans(ctx)
}

// CurrentSubscription bundles the clinic, its plan and recent payments.
type CurrentSubscription struct {
	Clinic   *clinic.Clinic     `json:"clinic"`
	Plan     *Plan              `json:"plan"`
	Payments []*PaymentWithPlan `json:"payments"`
}

func (s *Service) Current(ctx context.Context, clinicID uuid.UUID) (*CurrentSubscription, error) {
	c, err := s.clinics.Get(ctx, clinicID)
	if err != nil {
		return nil, err
	}

	cur := &CurrentSubscription{Clinic: c}
	if plan, err := s.repo.GetPlanByName(ctx, c.SubscriptionPlan); err == nil {
		cur.Plan = plan
	}

	payments, _, err := s.repo.ListPayments(ctx, clinicID, 10, 0)
	if err != nil {
		return nil, fmt.Errorf("payment history: %w", err)
	}
	cur.Payments = payments
	return cur, nil
}

// InitializePayment starts a hosted checkout for a plan upgrade. The payment
// row is stored pending, in USD; the gateway charge is converted to kobo.
func (s *Service) InitializePayment(ctx context.Context, clinicID, planID uuid.UUID, period string) (*Checkout, error) {
	switch period {
	case "":
		period = PeriodMonthly
	case PeriodMonthly, PeriodYearly:
	default:
		return nil, fmt.Errorf("invalid billing_period: %s", period)
	}

	plan, err := s.repo.GetPlan(ctx, planID)
	if err != nil {
		return nil, ErrPlanNotFound
	}
	c, err := s.clinics.Get(ctx, clinicID)
	if err != nil {
		return nil, err
	}

	amountUSD := plan.PriceMonthly
	if period == PeriodYearly {
		amountUSD = plan.PriceYearly
	}
	if amountUSD <= 0 {
		return nil, fmt.Errorf("plan %s has no charge", plan.Name)
	}
	amountKobo := int64(math.Round(amountUSD * s.cfg.USDToNGN * 100))

	now := time.Now().UTC()
	start := now
	end := now.AddDate(0, 1, 0)
	if period == PeriodYearly {
		end = now.AddDate(1, 0, 0)
	}

	reference := fmt.Sprintf("caresync_%s_%d", clinicID, now.UnixMilli())
	init, err := s.gateway.InitializeTransaction(ctx, paystack.InitializeRequest{
		Email:       c.Email,
		Amount:      amountKobo,
		Reference:   reference,
		CallbackURL: s.cfg.CallbackURL,
		Metadata: map[string]string{
			"clinic_id":      clinicID.String(),
			"plan_id":        planID.String(),
			"plan_name":      plan.Name,
			"billing_period": period,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("initialize transaction: %w", err)
	}

	p := &Payment{
		ClinicID:           clinicID,
		PlanID:             planID,
		Amount:             amountUSD,
		Currency:           "USD",
		PaymentMethod:      "paystack",
		ExternalPaymentID:  init.Reference,
		Status:             PaymentPending,
		BillingPeriodStart: start,
		BillingPeriodEnd:   end,
	}
	if err := s.repo.CreatePayment(ctx, p); err != nil {
		return nil, fmt.Errorf("store payment: %w", err)
	}

	return &Checkout{
		AuthorizationURL: init.AuthorizationURL,
		AccessCode:       init.AccessCode,
		Reference:        init.Reference,
		PaymentID:        p.ID,
	}, nil
}

// VerifyPayment confirms a checkout with the gateway and, on success,
// upgrades the clinic. Only a pending payment transitions; repeat calls get
// ErrAlreadyProcessed.
func (s *Service) VerifyPayment(ctx context.Context, clinicID uuid.UUID, reference string) (*Payment, error) {
	if reference == "" {
		return nil, fmt.Errorf("reference is required")
	}

	tx, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("verify transaction: %w", err)
	}

	p, err := s.repo.GetPaymentByReference(ctx, reference)
	if err != nil || p.ClinicID != clinicID {
		return nil, ErrPaymentNotFound
	}

	if err := s.completePayment(ctx, p, tx.Status == "success"); err != nil {
		return nil, err
	}
	return p, nil
}

// completePayment settles a pending payment and applies the upgrade. The
// conditional status update makes it safe to run from both the verify
// endpoint and the webhook.
func (s *Service) completePayment(ctx context.Context, p *Payment, success bool) error {
	to := PaymentCompleted
	if !success {
		to = PaymentFailed
	}

	ok, err := s.repo.SetPaymentStatus(ctx, p.ID, PaymentPending, to)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyProcessed
	}
	p.Status = to

	if !success {
		return nil
	}

	plan, err := s.repo.GetPlan(ctx, p.PlanID)
	if err != nil {
		return fmt.Errorf("load plan for upgrade: %w", err)
	}
	if err := s.clinics.UpgradeSubscription(ctx, p.ClinicID, plan.Name,
		p.BillingPeriodStart, p.BillingPeriodEnd, plan.MaxPatients); err != nil {
		return fmt.Errorf("upgrade clinic: %w", err)
	}

	s.logger.Info().
		Str("clinic_id", p.ClinicID.String()).
		Str("plan", plan.Name).
		Str("reference", p.ExternalPaymentID).
		Msg("subscription upgraded")
	return nil
}

// HandleWebhook processes a gateway event post. Only charge.success acts;
// everything else is acknowledged and dropped. A reference that is unknown
// or already settled is a no-op, so redelivered events are harmless.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !s.gateway.VerifyWebhookSignature(body, signature) {
		return ErrInvalidSignature
	}

	var event paystack.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode webhook: %w", err)
	}
	if event.Event != "charge.success" {
		return nil
	}

	var data struct {
		Reference string `json:"reference"`
	}
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("decode webhook data: %w", err)
	}

	p, err := s.repo.GetPaymentByReference(ctx, data.Reference)
	if err != nil {
		s.logger.Warn().
			Str("reference", data.Reference).
			Msg("webhook for unknown payment reference")
		return nil
	}

	if err := s.completePayment(ctx, p, true); err != nil {
		if errors.Is(err, ErrAlreadyProcessed) {
			return nil
		}
		return err
	}
	return nil
}

// Cancel drops the clinic back to the free plan.
func (s *Service) Cancel(ctx context.Context, clinicID uuid.UUID) error {
	return s.clinics.CancelSubscription(ctx, clinicID)
}

func (s *Service) Payments(ctx context.Context, clinicID uuid.UUID, limit, offset int) ([]*PaymentWithPlan, int, error) {
	return s.repo.ListPayments(ctx, clinicID, limit, offset)
}

// Usage reports the clinic's consumption against its plan limits.
func (s *Service) Usage(ctx context.Context, clinicID uuid.UUID) (*Usage, error) {
	c, err := s.clinics.Get(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	plan, err := s.repo.GetPlanByName(ctx, c.SubscriptionPlan)
	if err != nil {
		return nil, ErrPlanNotFound
	}

	u := &Usage{}
	u.Plan.Name = plan.Name
	u.Plan.DisplayName = plan.DisplayName
	u.Plan.MaxPatients = plan.MaxPatients
	u.Plan.MaxRemindersPerMonth = plan.MaxRemindersPerMonth

	if s.patients != nil {
		if u.Current.Patients, err = s.patients.CountActive(ctx, clinicID); err != nil {
			return nil, fmt.Errorf("patient usage: %w", err)
		}
	}
	if s.reminders != nil {
		if u.Current.RemindersThisMonth, err = s.reminders.CountCreatedThisMonth(ctx, clinicID); err != nil {
			return nil, fmt.Errorf("reminder usage: %w", err)
		}
	}

	u.Limits.PatientsRemaining = remaining(plan.MaxPatients, u.Current.Patients)
	u.Limits.RemindersRemaining = remaining(plan.MaxRemindersPerMonth, u.Current.RemindersThisMonth)
	return u, nil
}

func remaining(limit, used int) int {
	if limit == -1 {
		return -1
	}
	if used >= limit {
		return 0
	}
	return limit - used
}
