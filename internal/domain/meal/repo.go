package meal

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, m *Meal) error
	// Update rewrites the meal row and replaces its items.
	Update(ctx context.Context, m *Meal) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*Meal, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, from, to time.Time) ([]*Meal, error)

	InsertAudit(ctx context.Context, a *AuditLog) error
	// RecentAudits returns at most limit audit rows across the given
	// patients, newest first.
	RecentAudits(ctx context.Context, patientIDs []uuid.UUID, limit int) ([]*AuditLog, error)
}

type PlanRepository interface {
	Create(ctx context.Context, p *Plan) error
	GetByID(ctx context.Context, id uuid.UUID) (*Plan, error)
	Update(ctx context.Context, p *Plan) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Plan, error)
	GetActive(ctx context.Context, patientID uuid.UUID) (*Plan, error)
	DeactivateAll(ctx context.Context, patientID uuid.UUID) error
}
