package clinic

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence boundary for clinics.
type Repository interface {
	Create(ctx context.Context, c *Clinic) error
	GetByID(ctx context.Context, id uuid.UUID) (*Clinic, error)
	GetByEmail(ctx context.Context, email string) (*Clinic, error)
	UpdateProfile(ctx context.Context, c *Clinic) error
	UpdateSubscription(ctx context.Context, id uuid.UUID, plan, status string, start, end *time.Time, maxPatients int) error
	ListActive(ctx context.Context) ([]*Clinic, error)
}
