package response

import (
	"context"
	"fmt"
	"strings"
	"time"

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

type responseRepoPG struct {
	db queryable
}

// NewRepoPG creates a Postgres-backed response repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &responseRepoPG{db: pool}
}

const responseCols = `id, clinic_id, patient_id, reminder_id, response_text,
	ai_summary, ai_status, ai_confidence, ai_keywords, created_at`

const withPatientCols = `r.id, r.clinic_id, r.patient_id, r.reminder_id, r.response_text,
	r.ai_summary, r.ai_status, r.ai_confidence, r.ai_keywords, r.created_at,
	p.name, p.email, p.phone`

func scanResponse(row pgx.Row) (*PatientResponse, error) {
	var r PatientResponse
	err := row.Scan(&r.ID, &r.ClinicID, &r.PatientID, &r.ReminderID, &r.ResponseText,
		&r.AISummary, &r.AIStatus, &r.AIConfidence, &r.AIKeywords, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func scanWithPatient(row pgx.Row) (*WithPatient, error) {
	var r WithPatient
	err := row.Scan(&r.ID, &r.ClinicID, &r.PatientID, &r.ReminderID, &r.ResponseText,
		&r.AISummary, &r.AIStatus, &r.AIConfidence, &r.AIKeywords, &r.CreatedAt,
		&r.PatientName, &r.PatientEmail, &r.PatientPhone)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (repo *responseRepoPG) Create(ctx context.Context, r *PatientResponse) error {
	r.ID = uuid.New()
	row := repo.db.QueryRow(ctx, `
		INSERT INTO patient_responses (id, clinic_id, patient_id, reminder_id, response_text,
			ai_summary, ai_status, ai_confidence, ai_keywords)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		r.ID, r.ClinicID, r.PatientID, r.ReminderID, r.ResponseText,
		r.AISummary, r.AIStatus, r.AIConfidence, r.AIKeywords)
	if err := row.Scan(&r.CreatedAt); err != nil {
		return fmt.Errorf("insert patient response: %w", err)
	}
	return nil
}

func (repo *responseRepoPG) GetByID(ctx context.Context, clinicID, id uuid.UUID) (*WithPatient, error) {
	row := repo.db.QueryRow(ctx, `
		SELECT `+withPatientCols+`
		FROM patient_responses r
		JOIN patients p ON p.id = r.patient_id
		WHERE r.clinic_id = $1 AND r.id = $2`, clinicID, id)
	return scanWithPatient(row)
}

func (repo *responseRepoPG) List(ctx context.Context, clinicID uuid.UUID, filter ListFilter, limit, offset int) ([]*WithPatient, int, error) {
	where := "WHERE r.clinic_id = $1"
	args := []any{clinicID}
	if filter.AIStatus != "" {
		args = append(args, filter.AIStatus)
		where += fmt.Sprintf(" AND r.ai_status = $%d", len(args))
	}
	if filter.PatientID != uuid.Nil {
		args = append(args, filter.PatientID)
		where += fmt.Sprintf(" AND r.patient_id = $%d", len(args))
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM patient_responses r " + where
	if err := repo.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count patient responses: %w", err)
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM patient_responses r
		JOIN patients p ON p.id = r.patient_id
		%s
		ORDER BY r.created_at DESC
		LIMIT $%d OFFSET $%d`, withPatientCols, where, len(args)-1, len(args))

	rows, err := repo.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list patient responses: %w", err)
	}
	defer rows.Close()

	var out []*WithPatient
	for rows.Next() {
		r, err := scanWithPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

func (repo *responseRepoPG) UpdateAnalysis(ctx context.Context, clinicID, id uuid.UUID, summary, status *string, confidence *float64, keywords []string) (*PatientResponse, error) {
	var sets []string
	args := []any{clinicID, id}
	if summary != nil {
		args = append(args, *summary)
		sets = append(sets, fmt.Sprintf("ai_summary = $%d", len(args)))
	}
	if status != nil {
		args = append(args, *status)
		sets = append(sets, fmt.Sprintf("ai_status = $%d", len(args)))
	}
	if confidence != nil {
		args = append(args, *confidence)
		sets = append(sets, fmt.Sprintf("ai_confidence = $%d", len(args)))
	}
	if keywords != nil {
		args = append(args, keywords)
		sets = append(sets, fmt.Sprintf("ai_keywords = $%d", len(args)))
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("no analysis fields to update")
	}

	query := fmt.Sprintf(`
		UPDATE patient_responses SET %s
		WHERE clinic_id = $1 AND id = $2
		RETURNING %s`, strings.Join(sets, ", "), responseCols)
	return scanResponse(repo.db.QueryRow(ctx, query, args...))
}

func (repo *responseRepoPG) ListRecent(ctx context.Context, clinicID uuid.UUID, limit int) ([]*WithPatient, error) {
	return repo.listJoined(ctx, `
		SELECT `+withPatientCols+`
		FROM patient_responses r
		JOIN patients p ON p.id = r.patient_id
		WHERE r.clinic_id = $1
		ORDER BY r.created_at DESC
		LIMIT $2`, clinicID, limit)
}

func (repo *responseRepoPG) ListUrgent(ctx context.Context, clinicID uuid.UUID, limit int) ([]*WithPatient, error) {
	return repo.listJoined(ctx, `
		SELECT `+withPatientCols+`
		FROM patient_responses r
		JOIN patients p ON p.id = r.patient_id
		WHERE r.clinic_id = $1 AND r.ai_status = 'Urgent'
		ORDER BY r.created_at DESC
		LIMIT $2`, clinicID, limit)
}

func (repo *responseRepoPG) listJoined(ctx context.Context, query string, args ...any) ([]*WithPatient, error) {
	rows, err := repo.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list patient responses: %w", err)
	}
	defer rows.Close()

	var out []*WithPatient
	for rows.Next() {
		r, err := scanWithPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (repo *responseRepoPG) ListSince(ctx context.Context, clinicID uuid.UUID, since time.Time) ([]*PatientResponse, error) {
	rows, err := repo.db.Query(ctx, `
		SELECT `+responseCols+`
		FROM patient_responses
		WHERE clinic_id = $1 AND created_at >= $2
		ORDER BY created_at`, clinicID, since)
	if err != nil {
		return nil, fmt.Errorf("list patient responses: %w", err)
	}
	defer rows.Close()

	var out []*PatientResponse
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (repo *responseRepoPG) CountOnDate(ctx context.Context, clinicID uuid.UUID, day time.Time) (int, int, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	var total, urgent int
	err := repo.db.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE ai_status = 'Urgent')
		FROM patient_responses
		WHERE clinic_id = $1 AND created_at >= $2 AND created_at < $3`,
		clinicID, start, end).Scan(&total, &urgent)
	if err != nil {
		return 0, 0, fmt.Errorf("count patient responses: %w", err)
	}
	return total, urgent, nil
}
