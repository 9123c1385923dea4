package clinic

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type clinicRepoPG struct{ db queryable }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &clinicRepoPG{db: pool}
}

const clinicCols = `id, name, email, phone, address,
	subscription_plan, subscription_status,
	subscription_start_date, subscription_end_date,
	max_patients, created_at, updated_at`

func scanClinic(row pgx.Row) (*Clinic, error) {
	var c Clinic
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address,
		&c.SubscriptionPlan, &c.SubscriptionStatus,
		&c.SubscriptionStartDate, &c.SubscriptionEndDate,
		&c.MaxPatients, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *clinicRepoPG) Create(ctx context.Context, c *Clinic) error {
	c.ID = uuid.New()
	_, err := r.db.Exec(ctx, `
		INSERT INTO clinics (id, name, email, phone, address,
			subscription_plan, subscription_status, max_patients)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		c.ID, c.Name, c.Email, c.Phone, c.Address,
		c.SubscriptionPlan, c.SubscriptionStatus, c.MaxPatients)
	return err
}

func (r *clinicRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	return scanClinic(r.db.QueryRow(ctx, `SELECT `+clinicCols+` FROM clinics WHERE id = $1`, id))
}

func (r *clinicRepoPG) GetByEmail(ctx context.Context, email string) (*Clinic, error) {
	return scanClinic(r.db.QueryRow(ctx, `SELECT `+clinicCols+` FROM clinics WHERE lower(email) = lower($1)`, email))
}

func (r *clinicRepoPG) UpdateProfile(ctx context.Context, c *Clinic) error {
	_, err := r.db.Exec(ctx, `
		UPDATE clinics SET name=$2, phone=$3, address=$4, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.Name, c.Phone, c.Address)
	return err
}

func (r *clinicRepoPG) UpdateSubscription(ctx context.Context, id uuid.UUID, plan, status string, start, end *time.Time, maxPatients int) error {
	_, err := r.db.Exec(ctx, `
		UPDATE clinics SET subscription_plan=$2, subscription_status=$3,
			subscription_start_date=$4, subscription_end_date=$5,
			max_patients=$6, updated_at=NOW()
		WHERE id = $1`,
		id, plan, status, start, end, maxPatients)
	return err
}

func (r *clinicRepoPG) ListActive(ctx context.Context) ([]*Clinic, error) {
	rows, err := r.db.Query(ctx, `SELECT `+clinicCols+` FROM clinics WHERE subscription_status = 'active' ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Clinic
	for rows.Next() {
		c, err := scanClinic(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}
