package insight

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
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type insightRepoPG struct {
	db queryable
}

// NewRepoPG creates a Postgres-backed insight repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &insightRepoPG{db: pool}
}

const insightCols = `id, clinic_id, date, total_responses, fine_count, mild_issue_count, urgent_count, updated_at`

func scanInsight(row pgx.Row) (*DailyInsight, error) {
	var i DailyInsight
	err := row.Scan(&i.ID, &i.ClinicID, &i.Date, &i.TotalResponses,
		&i.FineCount, &i.MildIssueCount, &i.UrgentCount, &i.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (repo *insightRepoPG) Increment(ctx context.Context, clinicID uuid.UUID, day time.Time, fine, mild, urgent int) error {
	_, err := repo.db.Exec(ctx, `
		INSERT INTO daily_insights (id, clinic_id, date, total_responses, fine_count, mild_issue_count, urgent_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (clinic_id, date) DO UPDATE SET
			total_responses  = daily_insights.total_responses + EXCLUDED.total_responses,
			fine_count       = daily_insights.fine_count + EXCLUDED.fine_count,
			mild_issue_count = daily_insights.mild_issue_count + EXCLUDED.mild_issue_count,
			urgent_count     = daily_insights.urgent_count + EXCLUDED.urgent_count,
			updated_at       = now()`,
		uuid.New(), clinicID, day, fine+mild+urgent, fine, mild, urgent)
	if err != nil {
		return fmt.Errorf("upsert daily insight: %w", err)
	}
	return nil
}

func (repo *insightRepoPG) GetByDate(ctx context.Context, clinicID uuid.UUID, day time.Time) (*DailyInsight, error) {
	row := repo.db.QueryRow(ctx, `
		SELECT `+insightCols+`
		FROM daily_insights
		WHERE clinic_id = $1 AND date = $2`, clinicID, day)
	return scanInsight(row)
}

func (repo *insightRepoPG) Range(ctx context.Context, clinicID uuid.UUID, start, end time.Time) ([]*DailyInsight, error) {
	rows, err := repo.db.Query(ctx, `
		SELECT `+insightCols+`
		FROM daily_insights
		WHERE clinic_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date`, clinicID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list daily insights: %w", err)
	}
	defer rows.Close()

	var out []*DailyInsight
	for rows.Next() {
		i, err := scanInsight(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}
