package patient

import (
	"context"
	"fmt"
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

type patientRepoPG struct{ db queryable }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &patientRepoPG{db: pool}
}

const patientCols = `id, clinic_id, name, email, phone,
	date_of_birth, last_visit_date, next_follow_up_date,
	notes, preferred_contact_method, is_active, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.ClinicID, &p.Name, &p.Email, &p.Phone,
		&p.DateOfBirth, &p.LastVisitDate, &p.NextFollowUpDate,
		&p.Notes, &p.PreferredContactMethod, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.db.Exec(ctx, `
		INSERT INTO patients (id, clinic_id, name, email, phone,
			date_of_birth, last_visit_date, next_follow_up_date,
			notes, preferred_contact_method, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		p.ID, p.ClinicID, p.Name, p.Email, p.Phone,
		p.DateOfBirth, p.LastVisitDate, p.NextFollowUpDate,
		p.Notes, p.PreferredContactMethod, p.IsActive)
	return err
}

func (r *patientRepoPG) GetByID(ctx context.Context, clinicID, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.db.QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE id = $1 AND clinic_id = $2`, id, clinicID))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.db.Exec(ctx, `
		UPDATE patients SET name=$3, email=$4, phone=$5,
			date_of_birth=$6, last_visit_date=$7, next_follow_up_date=$8,
			notes=$9, preferred_contact_method=$10, is_active=$11, updated_at=NOW()
		WHERE id = $1 AND clinic_id = $2`,
		p.ID, p.ClinicID, p.Name, p.Email, p.Phone,
		p.DateOfBirth, p.LastVisitDate, p.NextFollowUpDate,
		p.Notes, p.PreferredContactMethod, p.IsActive)
	return err
}

func (r *patientRepoPG) Deactivate(ctx context.Context, clinicID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE patients SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND clinic_id = $2`, id, clinicID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *patientRepoPG) List(ctx context.Context, clinicID uuid.UUID, filter ListFilter, limit, offset int) ([]*Patient, int, error) {
	where := `clinic_id = $1`
	args := []interface{}{clinicID}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(` AND (name ILIKE $%d OR email ILIKE $%d)`, len(args), len(args))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		where += fmt.Sprintf(` AND is_active = $%d`, len(args))
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM patients WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.db.Query(ctx,
		`SELECT `+patientCols+` FROM patients WHERE `+where+
			fmt.Sprintf(` ORDER BY name LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *patientRepoPG) CountActive(ctx context.Context, clinicID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM patients WHERE clinic_id = $1 AND is_active`, clinicID).Scan(&n)
	return n, err
}

func (r *patientRepoPG) ListUpcoming(ctx context.Context, clinicID uuid.UUID, from, to time.Time) ([]*Patient, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+patientCols+` FROM patients
		WHERE clinic_id = $1 AND is_active
			AND next_follow_up_date >= $2 AND next_follow_up_date <= $3
		ORDER BY next_follow_up_date`, clinicID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *patientRepoPG) ListOverdue(ctx context.Context, asOf time.Time) ([]*OverdueFollowUp, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.id, p.name, p.next_follow_up_date, c.id, c.name, c.email
		FROM patients p
		JOIN clinics c ON c.id = p.clinic_id
		WHERE p.is_active AND c.subscription_status = 'active'
			AND p.next_follow_up_date IS NOT NULL AND p.next_follow_up_date < $1
		ORDER BY c.id, p.next_follow_up_date`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*OverdueFollowUp
	for rows.Next() {
		var o OverdueFollowUp
		if err := rows.Scan(&o.PatientID, &o.PatientName, &o.NextFollowUpDate,
			&o.ClinicID, &o.ClinicName, &o.ClinicEmail); err != nil {
			return nil, err
		}
		items = append(items, &o)
	}
	return items, rows.Err()
}
