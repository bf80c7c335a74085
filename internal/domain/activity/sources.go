package activity

import (
	"context"

	"github.com/google/uuid"

	"github.com/nutrio/nutrio/internal/domain/growth"
	"github.com/nutrio/nutrio/internal/domain/meal"
	"github.com/nutrio/nutrio/internal/domain/patient"
)

type RosterSource interface {
	ListRoster(ctx context.Context, ownerID uuid.UUID) ([]RosterEntry, error)
}

// MealAuditSource returns at most limit audit rows of the given patients,
// newest first.
type MealAuditSource interface {
	RecentMealAudits(ctx context.Context, patientIDs []uuid.UUID, limit int) ([]MealAudit, error)
}

// WeightSource returns at most limit weight rows of the given patients,
// newest first.
type WeightSource interface {
	RecentWeights(ctx context.Context, patientIDs []uuid.UUID, limit int) ([]WeightRecord, error)
}

// -- Adapters over the domain services --

type patientRoster interface {
	ListRoster(ctx context.Context, nutritionistID uuid.UUID) ([]patient.RosterEntry, error)
}

type PatientRoster struct{ Patients patientRoster }

func (s PatientRoster) ListRoster(ctx context.Context, ownerID uuid.UUID) ([]RosterEntry, error) {
	rows, err := s.Patients.ListRoster(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]RosterEntry, len(rows))
	for i, r := range rows {
		out[i] = RosterEntry{ID: r.ID, Name: r.FullName}
	}
	return out, nil
}

type mealAudits interface {
	RecentAudits(ctx context.Context, patientIDs []uuid.UUID, limit int) ([]*meal.AuditLog, error)
}

type MealAudits struct{ Meals mealAudits }

func (s MealAudits) RecentMealAudits(ctx context.Context, patientIDs []uuid.UUID, limit int) ([]MealAudit, error) {
	rows, err := s.Meals.RecentAudits(ctx, patientIDs, limit)
	if err != nil {
		return nil, err
	}
	out := make([]MealAudit, len(rows))
	for i, r := range rows {
		out[i] = MealAudit{
			PatientID: r.PatientID,
			MealID:    r.MealID,
			Action:    r.Action,
			Details:   r.Details,
			CreatedAt: r.CreatedAt,
		}
	}
	return out, nil
}

type growthWeights interface {
	RecentWeights(ctx context.Context, patientIDs []uuid.UUID, limit int) ([]*growth.Record, error)
}

type Weights struct{ Growth growthWeights }

func (s Weights) RecentWeights(ctx context.Context, patientIDs []uuid.UUID, limit int) ([]WeightRecord, error) {
	rows, err := s.Growth.RecentWeights(ctx, patientIDs, limit)
	if err != nil {
		return nil, err
	}
	out := make([]WeightRecord, len(rows))
	for i, r := range rows {
		out[i] = WeightRecord{PatientID: r.PatientID, WeightKg: r.WeightKg, RecordedAt: r.RecordedAt}
	}
	return out, nil
}
