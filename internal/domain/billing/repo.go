package billing

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists plans and payments.
type Repository interface {
	ListActivePlans(ctx context.Context) ([]*Plan, error)
	GetPlan(ctx context.Context, id uuid.UUID) (*Plan, error)
	GetPlanByName(ctx context.Context, name string) (*Plan, error)

	CreatePayment(ctx context.Context, p *Payment) error
	GetPaymentByReference(ctx context.Context, reference string) (*Payment, error)
	// SetPaymentStatus moves a payment from one status to another and
	// reports whether the transition happened. A payment that already left
	// `from` is not touched, which makes verify and webhook idempotent.
	SetPaymentStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error)
	ListPayments(ctx context.Context, clinicID uuid.UUID, limit, offset int) ([]*PaymentWithPlan, int, error)
}
