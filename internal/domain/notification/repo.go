package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence boundary for the notification log.
type Repository interface {
	Create(ctx context.Context, l *Log) error
	ListByClinic(ctx context.Context, clinicID uuid.UUID, filter ListFilter, limit, offset int) ([]*Log, int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
