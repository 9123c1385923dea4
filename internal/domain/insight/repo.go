package insight

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists the per-clinic daily counters.
type Repository interface {
	// Increment folds one classified response into the clinic-day row,
	// creating it when absent. The whole upsert is a single statement so
	// concurrent submissions never lose an increment.
	Increment(ctx context.Context, clinicID uuid.UUID, day time.Time, fine, mild, urgent int) error
	GetByDate(ctx context.Context, clinicID uuid.UUID, day time.Time) (*DailyInsight, error)
	Range(ctx context.Context, clinicID uuid.UUID, start, end time.Time) ([]*DailyInsight, error)
}
