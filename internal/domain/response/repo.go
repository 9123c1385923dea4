package response

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists patient responses.
type Repository interface {
	Create(ctx context.Context, r *PatientResponse) error
	GetByID(ctx context.Context, clinicID, id uuid.UUID) (*WithPatient, error)
	List(ctx context.Context, clinicID uuid.UUID, filter ListFilter, limit, offset int) ([]*WithPatient, int, error)
	// UpdateAnalysis overwrites the ai_* fields. Nil pointers (and a nil
	// keyword slice) leave the corresponding column untouched.
	UpdateAnalysis(ctx context.Context, clinicID, id uuid.UUID, summary, status *string, confidence *float64, keywords []string) (*PatientResponse, error)
	ListRecent(ctx context.Context, clinicID uuid.UUID, limit int) ([]*WithPatient, error)
	ListUrgent(ctx context.Context, clinicID uuid.UUID, limit int) ([]*WithPatient, error)
	ListSince(ctx context.Context, clinicID uuid.UUID, since time.Time) ([]*PatientResponse, error)
	CountOnDate(ctx context.Context, clinicID uuid.UUID, day time.Time) (total, urgent int, err error)
}
