package growth

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Record, int, error)
	Latest(ctx context.Context, patientID uuid.UUID) (*Record, error)
	// RecentWeights returns at most limit records across the given patients,
	// newest first.
	RecentWeights(ctx context.Context, patientIDs []uuid.UUID, limit int) ([]*Record, error)
}
