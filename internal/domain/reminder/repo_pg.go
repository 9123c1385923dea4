package reminder

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

type reminderRepoPG struct{ db queryable }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &reminderRepoPG{db: pool}
}

const reminderCols = `id, clinic_id, patient_id, message, scheduled_date, scheduled_time,
	status, contact_method, sent_at, response_received_at, created_at, updated_at`

func scanReminder(row pgx.Row) (*Reminder, error) {
	var r Reminder
	err := row.Scan(&r.ID, &r.ClinicID, &r.PatientID, &r.Message, &r.ScheduledDate, &r.ScheduledTime,
		&r.Status, &r.ContactMethod, &r.SentAt, &r.ResponseReceivedAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

const dueCols = `r.id, r.clinic_id, r.patient_id, r.message, r.scheduled_date, r.scheduled_time,
	r.status, r.contact_method, r.sent_at, r.response_received_at, r.created_at, r.updated_at,
	p.name, p.email, p.phone, p.preferred_contact_method, c.name`

func scanDue(row pgx.Row) (*DueReminder, error) {
	var d DueReminder
	err := row.Scan(&d.ID, &d.ClinicID, &d.PatientID, &d.Message, &d.ScheduledDate, &d.ScheduledTime,
		&d.Status, &d.ContactMethod, &d.SentAt, &d.ResponseReceivedAt, &d.CreatedAt, &d.UpdatedAt,
		&d.PatientName, &d.PatientEmail, &d.PatientPhone, &d.PreferredContactMethod, &d.ClinicName)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *reminderRepoPG) Create(ctx context.Context, rem *Reminder) error {
	rem.ID = uuid.New()
	_, err := r.db.Exec(ctx, `
		INSERT INTO reminders (id, clinic_id, patient_id, message,
			scheduled_date, scheduled_time, status, contact_method)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		rem.ID, rem.ClinicID, rem.PatientID, rem.Message,
		rem.ScheduledDate, rem.ScheduledTime, rem.Status, rem.ContactMethod)
	return err
}

func (r *reminderRepoPG) GetByID(ctx context.Context, clinicID, id uuid.UUID) (*Reminder, error) {
	return scanReminder(r.db.QueryRow(ctx,
		`SELECT `+reminderCols+` FROM reminders WHERE id = $1 AND clinic_id = $2`, id, clinicID))
}

// GetAny looks a reminder up without clinic scoping. The public response
// endpoint uses it: the caller only holds the reminder id.
func (r *reminderRepoPG) GetAny(ctx context.Context, id uuid.UUID) (*Reminder, error) {
	return scanReminder(r.db.QueryRow(ctx,
		`SELECT `+reminderCols+` FROM reminders WHERE id = $1`, id))
}

func (r *reminderRepoPG) Update(ctx context.Context, rem *Reminder) error {
	_, err := r.db.Exec(ctx, `
		UPDATE reminders SET message=$3, scheduled_date=$4, scheduled_time=$5,
			status=$6, contact_method=$7, updated_at=NOW()
		WHERE id = $1 AND clinic_id = $2`,
		rem.ID, rem.ClinicID, rem.Message, rem.ScheduledDate, rem.ScheduledTime,
		rem.Status, rem.ContactMethod)
	return err
}

func (r *reminderRepoPG) List(ctx context.Context, clinicID uuid.UUID, filter ListFilter, limit, offset int) ([]*Reminder, int, error) {
	where := `clinic_id = $1`
	args := []interface{}{clinicID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if filter.PatientID != uuid.Nil {
		args = append(args, filter.PatientID)
		where += fmt.Sprintf(` AND patient_id = $%d`, len(args))
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM reminders WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.db.Query(ctx,
		`SELECT `+reminderCols+` FROM reminders WHERE `+where+
			fmt.Sprintf(` ORDER BY scheduled_date DESC, created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rem)
	}
	return items, total, rows.Err()
}

// GetDue returns the pending reminders scheduled for exactly the given date,
// joined with their patient and clinic. Past-dated pending reminders are left
// alone; a clinic reschedules or sends them manually.
func (r *reminderRepoPG) GetDue(ctx context.Context, date time.Time) ([]*DueReminder, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+dueCols+`
		FROM reminders r
		JOIN patients p ON p.id = r.patient_id
		JOIN clinics c ON c.id = r.clinic_id
		WHERE r.status = 'pending' AND r.scheduled_date = $1::date
		ORDER BY r.clinic_id, r.created_at`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*DueReminder
	for rows.Next() {
		d, err := scanDue(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *reminderRepoPG) LoadForDispatch(ctx context.Context, clinicID, id uuid.UUID) (*DueReminder, error) {
	return scanDue(r.db.QueryRow(ctx, `
		SELECT `+dueCols+`
		FROM reminders r
		JOIN patients p ON p.id = r.patient_id
		JOIN clinics c ON c.id = r.clinic_id
		WHERE r.id = $1 AND r.clinic_id = $2`, id, clinicID))
}

func (r *reminderRepoPG) Cancel(ctx context.Context, clinicID, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE reminders SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND clinic_id = $2 AND status = 'pending'`, id, clinicID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *reminderRepoPG) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE reminders SET status = 'sent', sent_at = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *reminderRepoPG) MarkFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE reminders SET status = 'failed', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkDelivered also accepts the pending state so a patient who responds to
// an old link before redelivery still closes the loop.
func (r *reminderRepoPG) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE reminders SET status = 'delivered', response_received_at = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ('sent', 'pending')`, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *reminderRepoPG) CountByStatus(ctx context.Context, clinicID uuid.UUID) (map[string]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT status, COUNT(*) FROM reminders WHERE clinic_id = $1 GROUP BY status`, clinicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *reminderRepoPG) CountCreatedSince(ctx context.Context, clinicID uuid.UUID, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM reminders WHERE clinic_id = $1 AND created_at >= $2`, clinicID, since).Scan(&n)
	return n, err
}
