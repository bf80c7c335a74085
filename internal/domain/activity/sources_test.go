package activity

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutrio/nutrio/internal/domain/growth"
	"github.com/nutrio/nutrio/internal/domain/meal"
	"github.com/nutrio/nutrio/internal/domain/patient"
)

type stubPatients struct{ rows []patient.RosterEntry }

func (s stubPatients) ListRoster(context.Context, uuid.UUID) ([]patient.RosterEntry, error) {
	return s.rows, nil
}

type stubMeals struct{ rows []*meal.AuditLog }

func (s stubMeals) RecentAudits(context.Context, []uuid.UUID, int) ([]*meal.AuditLog, error) {
	return s.rows, nil
}

type stubGrowth struct{ rows []*growth.Record }

func (s stubGrowth) RecentWeights(context.Context, []uuid.UUID, int) ([]*growth.Record, error) {
	return s.rows, nil
}

func TestAdapters_FeedTheAggregator(t *testing.T) {
	p1, p2 := uuid.New(), uuid.New()
	roster := PatientRoster{Patients: stubPatients{rows: []patient.RosterEntry{
		{ID: p1, FullName: "Ana"},
		{ID: p2, FullName: "Bruno"},
	}}}
	audits := MealAudits{Meals: stubMeals{rows: []*meal.AuditLog{{
		MealID:    uuid.New(),
		PatientID: p1,
		Action:    meal.ActionDelete,
		Details:   map[string]any{"total_calories": 510.0},
		CreatedAt: at(30),
	}}}}
	weights := Weights{Growth: stubGrowth{rows: []*growth.Record{
		{PatientID: p2, WeightKg: 88.1, RecordedAt: at(40)},
	}}}

	feed, err := NewAggregator(roster, audits, weights, 50).Aggregate(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Len(t, feed.Items, 2)
	assert.Equal(t, "Bruno", feed.Items[0].PatientName)
	assert.Equal(t, 88.1, *feed.Items[0].WeightKg)
	assert.Equal(t, "Ana", feed.Items[1].PatientName)
	assert.Equal(t, "deleted", feed.Items[1].Description)
	assert.Equal(t, 510.0, *feed.Items[1].Calories)
}
