package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type billingRepoPG struct {
	db queryable
}

// NewRepoPG creates a Postgres-backed billing repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &billingRepoPG{db: pool}
}

const planCols = `id, name, display_name, price_monthly, price_yearly, max_patients, max_reminders_per_month, features, is_active`

const paymentCols = `id, clinic_id, plan_id, amount, currency, payment_method, external_payment_id, status, billing_period_start, billing_period_end, created_at`

func scanPlan(row pgx.Row) (*Plan, error) {
	var p Plan
	err := row.Scan(&p.ID, &p.Name, &p.DisplayName, &p.PriceMonthly, &p.PriceYearly,
		&p.MaxPatients, &p.MaxRemindersPerMonth, &p.Features, &p.IsActive)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.ClinicID, &p.PlanID, &p.Amount, &p.Currency,
		&p.PaymentMethod, &p.ExternalPaymentID, &p.Status,
		&p.BillingPeriodStart, &p.BillingPeriodEnd, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *billingRepoPG) ListActivePlans(ctx context.Context) ([]*Plan, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+planCols+`
		FROM subscription_plans
		WHERE is_active
		ORDER BY price_monthly`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var out []*Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *billingRepoPG) GetPlan(ctx context.Context, id uuid.UUID) (*Plan, error) {
	row := r.db.QueryRow(ctx, `SELECT `+planCols+` FROM subscription_plans WHERE id = $1`, id)
	return scanPlan(row)
}

func (r *billingRepoPG) GetPlanByName(ctx context.Context, name string) (*Plan, error) {
	row := r.db.QueryRow(ctx, `SELECT `+planCols+` FROM subscription_plans WHERE name = $1`, name)
	return scanPlan(row)
}

func (r *billingRepoPG) CreatePayment(ctx context.Context, p *Payment) error {
	p.ID = uuid.New()
	row := r.db.QueryRow(ctx, `
		INSERT INTO payments (id, clinic_id, plan_id, amount, currency, payment_method,
			external_payment_id, status, billing_period_start, billing_period_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`,
		p.ID, p.ClinicID, p.PlanID, p.Amount, p.Currency, p.PaymentMethod,
		p.ExternalPaymentID, p.Status, p.BillingPeriodStart, p.BillingPeriodEnd)
	if err := row.Scan(&p.CreatedAt); err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *billingRepoPG) GetPaymentByReference(ctx context.Context, reference string) (*Payment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+paymentCols+`
		FROM payments
		WHERE external_payment_id = $1`, reference)
	return scanPayment(row)
}

func (r *billingRepoPG) SetPaymentStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE payments SET status = $3
		WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return false, fmt.Errorf("update payment status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *billingRepoPG) ListPayments(ctx context.Context, clinicID uuid.UUID, limit, offset int) ([]*PaymentWithPlan, int, error) {
	var total int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM payments WHERE clinic_id = $1`, clinicID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT p.id, p.clinic_id, p.plan_id, p.amount, p.currency, p.payment_method,
			p.external_payment_id, p.status, p.billing_period_start, p.billing_period_end,
			p.created_at, sp.name, sp.display_name
		FROM payments p
		JOIN subscription_plans sp ON sp.id = p.plan_id
		WHERE p.clinic_id = $1
		ORDER BY p.created_at DESC
		LIMIT $2 OFFSET $3`, clinicID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []*PaymentWithPlan
	for rows.Next() {
		var p PaymentWithPlan
		err := rows.Scan(&p.ID, &p.ClinicID, &p.PlanID, &p.Amount, &p.Currency,
			&p.PaymentMethod, &p.ExternalPaymentID, &p.Status,
			&p.BillingPeriodStart, &p.BillingPeriodEnd, &p.CreatedAt,
			&p.PlanName, &p.PlanDisplayName)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, &p)
	}
	return out, total, rows.Err()
}
