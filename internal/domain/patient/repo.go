package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByNutritionist(ctx context.Context, nutritionistID uuid.UUID, f ListFilter, limit, offset int) ([]*Patient, int, error)
	ListRoster(ctx context.Context, nutritionistID uuid.UUID) ([]RosterEntry, error)
	SetWeight(ctx context.Context, id uuid.UUID, weightKg float64) error
	LinkUser(ctx context.Context, id, userID uuid.UUID) error
}
