package recommendation

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *Recommendation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Recommendation, error)
	// UpdateStatus persists Status, DecidedAt and AppliedAt.
	UpdateStatus(ctx context.Context, r *Recommendation) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, status string, limit, offset int) ([]*Recommendation, int, error)
}
