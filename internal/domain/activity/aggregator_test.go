package activity

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutrio/nutrio/internal/platform/auth"
)

// -- Fakes --

type fakeRoster struct {
	entries []RosterEntry
	err     error
	calls   int
}

func (f *fakeRoster) ListRoster(context.Context, uuid.UUID) ([]RosterEntry, error) {
	f.calls++
	return f.entries, f.err
}

type fakeAudits struct {
	rows     []MealAudit
	err      error
	gotLimit int
	gotIDs   []uuid.UUID
}

func (f *fakeAudits) RecentMealAudits(_ context.Context, ids []uuid.UUID, limit int) ([]MealAudit, error) {
	f.gotIDs, f.gotLimit = ids, limit
	return f.rows, f.err
}

type fakeWeights struct {
	rows     []WeightRecord
	err      error
	gotLimit int
}

func (f *fakeWeights) RecentWeights(_ context.Context, _ []uuid.UUID, limit int) ([]WeightRecord, error) {
	f.gotLimit = limit
	return f.rows, f.err
}

var t0 = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return t0.Add(time.Duration(sec) * time.Second) }

func audit(pid uuid.UUID, action string, sec int, details map[string]any) MealAudit {
	return MealAudit{PatientID: pid, MealID: uuid.New(), Action: action, Details: details, CreatedAt: at(sec)}
}

func weight(pid uuid.UUID, kg float64, sec int) WeightRecord {
	return WeightRecord{PatientID: pid, WeightKg: kg, RecordedAt: at(sec)}
}

func assertSortedDesc(t *testing.T, items []Activity) {
	t.Helper()
	for i := 1; i < len(items); i++ {
		assert.False(t, items[i].Timestamp.After(items[i-1].Timestamp),
			"item %d (%v) is newer than item %d (%v)", i, items[i].Timestamp, i-1, items[i-1].Timestamp)
	}
}

// -- Tests --

func TestAggregate_ExampleRoster(t *testing.T) {
	p1, p2 := uuid.New(), uuid.New()
	roster := &fakeRoster{entries: []RosterEntry{{ID: p1, Name: "P1"}, {ID: p2, Name: "P2"}}}
	audits := &fakeAudits{rows: []MealAudit{audit(p1, "create", 10, map[string]any{"total_calories": 350.0})}}
	weights := &fakeWeights{rows: []WeightRecord{weight(p2, 72.4, 20)}}

	feed, err := NewAggregator(roster, audits, weights, 100).Aggregate(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Len(t, feed.Items, 2)

	first, second := feed.Items[0], feed.Items[1]
	assert.Equal(t, "P2", first.PatientName)
	assert.Equal(t, CategoryWeight, first.Category)
	assert.Equal(t, "registered weight", first.Description)
	require.NotNil(t, first.WeightKg)
	assert.Equal(t, 72.4, *first.WeightKg)
	assert.Equal(t, at(20), first.Timestamp)

	assert.Equal(t, "P1", second.PatientName)
	assert.Equal(t, CategoryMeal, second.Category)
	assert.Equal(t, "registered", second.Description)
	require.NotNil(t, second.Calories)
	assert.Equal(t, 350.0, *second.Calories)
	assert.Equal(t, at(10), second.Timestamp)

	assert.False(t, feed.Truncated)
	assert.Equal(t, 100, audits.gotLimit)
	assert.Equal(t, 100, weights.gotLimit)
	assert.ElementsMatch(t, []uuid.UUID{p1, p2}, audits.gotIDs)
}

func TestAggregate_SortedDescRegardlessOfSource(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pid := uuid.New()
	roster := &fakeRoster{entries: []RosterEntry{{ID: pid, Name: "Ana"}}}

	var auditRows []MealAudit
	var weightRows []WeightRecord
	for i := 0; i < 40; i++ {
		auditRows = append(auditRows, audit(pid, "update", rng.Intn(10000), nil))
		weightRows = append(weightRows, weight(pid, 70, rng.Intn(10000)))
	}

	feed, err := NewAggregator(roster, &fakeAudits{rows: auditRows}, &fakeWeights{rows: weightRows}, 100).
		Aggregate(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Len(t, feed.Items, 80)
	assertSortedDesc(t, feed.Items)
}

func TestAggregate_EqualTimestampsKeepSourceOrder(t *testing.T) {
	pid := uuid.New()
	roster := &fakeRoster{entries: []RosterEntry{{ID: pid, Name: "Ana"}}}
	audits := &fakeAudits{rows: []MealAudit{audit(pid, "create", 5, nil)}}
	weights := &fakeWeights{rows: []WeightRecord{weight(pid, 70, 5)}}

	feed, err := NewAggregator(roster, audits, weights, 100).Aggregate(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Len(t, feed.Items, 2)
	assert.Equal(t, CategoryMeal, feed.Items[0].Category)
	assert.Equal(t, CategoryWeight, feed.Items[1].Category)
}

func TestAggregate_ActionDescriptions(t *testing.T) {
	pid := uuid.New()
	roster := &fakeRoster{entries: []RosterEntry{{ID: pid, Name: "Ana"}}}
	audits := &fakeAudits{rows: []MealAudit{
		audit(pid, "create", 4, nil),
		audit(pid, "update", 3, nil),
		audit(pid, "delete", 2, nil),
		audit(pid, "archive", 1, nil),
	}}

	var feed Feed
	var err error
	require.NotPanics(t, func() {
		feed, err = NewAggregator(roster, audits, &fakeWeights{}, 100).Aggregate(context.Background(), uuid.New())
	})
	require.NoError(t, err)
	require.Len(t, feed.Items, 4)

	got := []string{}
	for _, it := range feed.Items {
		got = append(got, it.Description)
	}
	assert.Equal(t, []string{"registered", "edited", "deleted", ""}, got)
	assert.Equal(t, "archive", feed.Items[3].Action)
}

func TestAggregate_CaloriesFromDetails(t *testing.T) {
	pid := uuid.New()
	roster := &fakeRoster{entries: []RosterEntry{{ID: pid, Name: "Ana"}}}
	audits := &fakeAudits{rows: []MealAudit{
		audit(pid, "create", 6, map[string]any{"total_calories": 420.5}),
		audit(pid, "create", 5, map[string]any{"total_calories": json.Number("300")}),
		audit(pid, "create", 4, map[string]any{"total_calories": "lots"}),
		audit(pid, "create", 3, map[string]any{"meal_type": "lunch"}),
		audit(pid, "create", 2, nil),
		audit(pid, "create", 1, map[string]any{"total_calories": 200}),
	}}

	feed, err := NewAggregator(roster, audits, &fakeWeights{}, 100).Aggregate(context.Background(), uuid.New())
	require.NoError(t, err)

	want := []float64{420.5, 300, 0, 0, 0, 200}
	require.Len(t, feed.Items, len(want))
	for i, w := range want {
		require.NotNil(t, feed.Items[i].Calories)
		assert.Equal(t, w, *feed.Items[i].Calories, "item %d", i)
	}
}

func TestAggregate_UnknownPatientRowsDropped(t *testing.T) {
	known, stranger := uuid.New(), uuid.New()
	roster := &fakeRoster{entries: []RosterEntry{{ID: known, Name: "Ana"}}}
	audits := &fakeAudits{rows: []MealAudit{
		audit(stranger, "create", 9, nil),
		audit(known, "create", 8, nil),
		audit(stranger, "update", 7, nil),
	}}
	weights := &fakeWeights{rows: []WeightRecord{weight(stranger, 90, 6), weight(known, 70, 5)}}

	feed, err := NewAggregator(roster, audits, weights, 100).Aggregate(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Len(t, feed.Items, 2)
	for _, it := range feed.Items {
		assert.Equal(t, known, it.PatientID)
	}
}

func TestAggregate_WindowDropsEarliest(t *testing.T) {
	pid := uuid.New()
	roster := &fakeRoster{entries: []RosterEntry{{ID: pid, Name: "Ana"}}}
	var rows []WeightRecord
	for i := 101; i >= 1; i-- {
		rows = append(rows, weight(pid, float64(60+i), i))
	}

	feed, err := NewAggregator(roster, &fakeAudits{}, &fakeWeights{rows: rows}, 100).
		Aggregate(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Len(t, feed.Items, 100)
	assert.True(t, feed.Truncated)
	for _, it := range feed.Items {
		assert.NotEqual(t, at(1), it.Timestamp, "the earliest row must be absent")
	}
	assert.Equal(t, at(101), feed.Items[0].Timestamp)
	assert.Equal(t, at(2), feed.Items[99].Timestamp)
}

func TestAggregate_EmptyOwnerSkipsStore(t *testing.T) {
	roster := &fakeRoster{}
	feed, err := NewAggregator(roster, &fakeAudits{}, &fakeWeights{}, 100).Aggregate(context.Background(), uuid.Nil)
	require.NoError(t, err)
	assert.Empty(t, feed.Items)
	assert.NotNil(t, feed.Items)
	assert.Zero(t, roster.calls)
}

func TestAggregate_EmptyRoster(t *testing.T) {
	audits := &fakeAudits{}
	feed, err := NewAggregator(&fakeRoster{}, audits, &fakeWeights{}, 100).Aggregate(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, feed.Items)
	assert.Zero(t, audits.gotLimit, "sources are not queried without patients")
}

func TestAggregate_SourceFailureAborts(t *testing.T) {
	pid := uuid.New()
	roster := &fakeRoster{entries: []RosterEntry{{ID: pid, Name: "Ana"}}}
	boom := errors.New("connection reset")

	_, err := NewAggregator(roster, &fakeAudits{rows: []MealAudit{audit(pid, "create", 1, nil)}}, &fakeWeights{err: boom}, 100).
		Aggregate(context.Background(), uuid.New())
	assert.ErrorIs(t, err, boom)

	_, err = NewAggregator(roster, &fakeAudits{err: boom}, &fakeWeights{}, 100).Aggregate(context.Background(), uuid.New())
	assert.ErrorIs(t, err, boom)

	_, err = NewAggregator(&fakeRoster{err: boom}, &fakeAudits{}, &fakeWeights{}, 100).Aggregate(context.Background(), uuid.New())
	assert.ErrorIs(t, err, boom)
}

func TestNewAggregator_DefaultWindow(t *testing.T) {
	assert.Equal(t, DefaultWindow, NewAggregator(nil, nil, nil, 0).window)
	assert.Equal(t, 25, NewAggregator(nil, nil, nil, 25).window)
}

func sampleItems() []Activity {
	return []Activity{
		{PatientName: "Ana Souza", Category: CategoryWeight, Timestamp: at(5)},
		{PatientName: "Bruno Lima", Category: CategoryMeal, Timestamp: at(4)},
		{PatientName: "ANA Paula", Category: CategoryMeal, Timestamp: at(3)},
		{PatientName: "Carla", Category: CategoryWeight, Timestamp: at(2)},
	}
}

func TestApplyFilter(t *testing.T) {
	items := sampleItems()

	assert.Equal(t, items, ApplyFilter(items, Filter{}))
	assert.Equal(t, items, ApplyFilter(items, Filter{Category: CategoryAll}))

	byName := ApplyFilter(items, Filter{Search: "ana"})
	require.Len(t, byName, 2)
	assert.Equal(t, "Ana Souza", byName[0].PatientName)
	assert.Equal(t, "ANA Paula", byName[1].PatientName)

	for _, cat := range []string{CategoryMeal, CategoryWeight} {
		got := ApplyFilter(items, Filter{Category: cat})
		assert.Len(t, got, 2)
		for _, it := range got {
			assert.Equal(t, cat, it.Category)
		}
	}

	both := ApplyFilter(items, Filter{Search: "ANA", Category: CategoryMeal})
	require.Len(t, both, 1)
	assert.Equal(t, "ANA Paula", both[0].PatientName)

	assert.Empty(t, ApplyFilter(items, Filter{Category: "lab"}))
}

func TestApplyFilter_CategoryIgnoresCase(t *testing.T) {
	items := sampleItems()

	got := ApplyFilter(items, Filter{Category: " WEIGHT "})
	require.Len(t, got, 2)
	for _, it := range got {
		assert.Equal(t, CategoryWeight, it.Category)
	}
	assert.Equal(t, items, ApplyFilter(items, Filter{Category: "All"}))
}

func TestApplyFilter_PreservesOrder(t *testing.T) {
	items := sampleItems()
	got := ApplyFilter(items, Filter{Search: "a"})
	assert.True(t, sort.SliceIsSorted(got, func(i, j int) bool { return got[i].Timestamp.After(got[j].Timestamp) }))
}

func TestService_Feed_ErrorYieldsEmpty(t *testing.T) {
	agg := NewAggregator(&fakeRoster{err: errors.New("db down")}, &fakeAudits{}, &fakeWeights{}, 100)
	svc := NewService(agg, zerolog.Nop())

	feed := svc.Feed(context.Background(), uuid.New(), Filter{})
	assert.NotNil(t, feed.Items)
	assert.Empty(t, feed.Items)
}

func TestService_Feed_AppliesFilter(t *testing.T) {
	p1, p2 := uuid.New(), uuid.New()
	roster := &fakeRoster{entries: []RosterEntry{{ID: p1, Name: "Ana"}, {ID: p2, Name: "Bruno"}}}
	audits := &fakeAudits{rows: []MealAudit{audit(p1, "create", 3, nil), audit(p2, "create", 2, nil)}}
	weights := &fakeWeights{rows: []WeightRecord{weight(p2, 80, 1)}}
	svc := NewService(NewAggregator(roster, audits, weights, 100), zerolog.Nop())

	feed := svc.Feed(context.Background(), uuid.New(), Filter{Search: "bru", Category: CategoryMeal})
	require.Len(t, feed.Items, 1)
	assert.Equal(t, p2, feed.Items[0].PatientID)
	assert.Equal(t, CategoryMeal, feed.Items[0].Category)
}

func TestHandler_Feed(t *testing.T) {
	pid := uuid.New()
	roster := &fakeRoster{entries: []RosterEntry{{ID: pid, Name: "Ana"}}}
	weights := &fakeWeights{rows: []WeightRecord{weight(pid, 70, 1)}}
	h := NewHandler(NewService(NewAggregator(roster, &fakeAudits{}, weights, 100), zerolog.Nop()))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?category=weight", nil)
	req = req.WithContext(auth.WithUser(req.Context(), uuid.New(), auth.RoleNutritionist, ""))
	rec := httptest.NewRecorder()

	require.NoError(t, h.Feed(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)

	var feed Feed
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &feed))
	require.Len(t, feed.Items, 1)
	assert.Equal(t, "registered weight", feed.Items[0].Description)
}

func TestHandler_Feed_Unauthenticated(t *testing.T) {
	h := NewHandler(NewService(NewAggregator(&fakeRoster{}, &fakeAudits{}, &fakeWeights{}, 100), zerolog.Nop()))
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	err := h.Feed(e.NewContext(req, httptest.NewRecorder()))
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, he.Code)
}
