package patient

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence boundary for patients. All reads and writes
// are scoped to a clinic; a patient id from another clinic behaves as not
// found.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, clinicID, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Deactivate(ctx context.Context, clinicID, id uuid.UUID) error
	List(ctx context.Context, clinicID uuid.UUID, filter ListFilter, limit, offset int) ([]*Patient, int, error)
	CountActive(ctx context.Context, clinicID uuid.UUID) (int, error)
	ListUpcoming(ctx context.Context, clinicID uuid.UUID, from, to time.Time) ([]*Patient, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]*OverdueFollowUp, error)
}
