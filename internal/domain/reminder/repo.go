package reminder

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence boundary for reminders. Status transitions
// are conditional updates: they report false when the row was not in the
// expected state, so concurrent dispatchers cannot double-send.
type Repository interface {
	Create(ctx context.Context, r *Reminder) error
	GetByID(ctx context.Context, clinicID, id uuid.UUID) (*Reminder, error)
	GetAny(ctx context.Context, id uuid.UUID) (*Reminder, error)
	Update(ctx context.Context, r *Reminder) error
	List(ctx context.Context, clinicID uuid.UUID, filter ListFilter, limit, offset int) ([]*Reminder, int, error)

	GetDue(ctx context.Context, date time.Time) ([]*DueReminder, error)
	LoadForDispatch(ctx context.Context, clinicID, id uuid.UUID) (*DueReminder, error)

	Cancel(ctx context.Context, clinicID, id uuid.UUID) (bool, error)
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID) (bool, error)
	MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	CountByStatus(ctx context.Context, clinicID uuid.UUID) (map[string]int, error)
	CountCreatedSince(ctx context.Context, clinicID uuid.UUID, since time.Time) (int, error)
}
