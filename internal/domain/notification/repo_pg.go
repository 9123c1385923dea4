package notification

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

type logRepoPG struct{ db queryable }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &logRepoPG{db: pool}
}

const logCols = `id, clinic_id, patient_id, reminder_id, type, recipient,
	subject, status, external_id, error_message, sent_at, created_at`

func scanLog(row pgx.Row) (*Log, error) {
	var l Log
	err := row.Scan(&l.ID, &l.ClinicID, &l.PatientID, &l.ReminderID, &l.Type, &l.Recipient,
		&l.Subject, &l.Status, &l.ExternalID, &l.ErrorMessage, &l.SentAt, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *logRepoPG) Create(ctx context.Context, l *Log) error {
	l.ID = uuid.New()
	if l.SentAt.IsZero() {
		l.SentAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO notification_logs (id, clinic_id, patient_id, reminder_id,
			type, recipient, subject, status, external_id, error_message, sent_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		l.ID, l.ClinicID, l.PatientID, l.ReminderID,
		l.Type, l.Recipient, l.Subject, l.Status, l.ExternalID, l.ErrorMessage, l.SentAt)
	return err
}

func (r *logRepoPG) ListByClinic(ctx context.Context, clinicID uuid.UUID, filter ListFilter, limit, offset int) ([]*Log, int, error) {
	where := `clinic_id = $1`
	args := []interface{}{clinicID}

	if filter.Type != "" {
		args = append(args, filter.Type)
		where += fmt.Sprintf(` AND type = $%d`, len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM notification_logs WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.db.Query(ctx,
		`SELECT `+logCols+` FROM notification_logs WHERE `+where+
			fmt.Sprintf(` ORDER BY sent_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Log
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, l)
	}
	return items, total, rows.Err()
}

func (r *logRepoPG) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM notification_logs WHERE sent_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
