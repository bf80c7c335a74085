package patient

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nutrio/nutrio/internal/platform/auth"
	"github.com/nutrio/nutrio/internal/platform/db"
	"github.com/nutrio/nutrio/pkg/apperr"
)

// -- Mock Repository --

type mockRepo struct {
	items map[uuid.UUID]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.items[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, db.ErrNoRows
	}
	return p, nil
}

func (m *mockRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*Patient, error) {
	for _, p := range m.items {
		if p.UserID != nil && *p.UserID == userID {
			return p, nil
		}
	}
	return nil, db.ErrNoRows
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	m.items[p.ID] = p
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.items, id)
	return nil
}

func (m *mockRepo) ListByNutritionist(_ context.Context, nutritionistID uuid.UUID, f ListFilter, limit, offset int) ([]*Patient, int, error) {
	var result []*Patient
	for _, p := range m.items {
		if p.NutritionistID != nutritionistID {
			continue
		}
		if !f.IncludeInactive && !p.Active {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(p.FullName), strings.ToLower(f.Search)) {
			continue
		}
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].FullName < result[j].FullName })
	return result, len(result), nil
}

func (m *mockRepo) ListRoster(_ context.Context, nutritionistID uuid.UUID) ([]RosterEntry, error) {
	var out []RosterEntry
	for _, p := range m.items {
		if p.NutritionistID == nutritionistID && p.Active {
			out = append(out, RosterEntry{ID: p.ID, FullName: p.FullName})
		}
	}
	return out, nil
}

func (m *mockRepo) SetWeight(_ context.Context, id uuid.UUID, weightKg float64) error {
	if p, ok := m.items[id]; ok {
		p.WeightKg = &weightKg
	}
	return nil
}

func (m *mockRepo) LinkUser(_ context.Context, id, userID uuid.UUID) error {
	if p, ok := m.items[id]; ok {
		p.UserID = &userID
	}
	return nil
}

func asUser(uid uuid.UUID, role string) context.Context {
	return auth.WithUser(context.Background(), uid, role, "")
}

func ptr[T any](v T) *T { return &v }

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo), repo
}

// -- Tests --

func TestService_Create(t *testing.T) {
	svc, _ := newTestService()
	doc := uuid.New()
	p := &Patient{FullName: "  Ana Souza ", Email: ptr(" Ana@Example.COM ")}

	if err := svc.Create(asUser(doc, auth.RoleNutritionist), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.NutritionistID != doc {
		t.Errorf("expected owner %s, got %s", doc, p.NutritionistID)
	}
	if p.FullName != "Ana Souza" {
		t.Errorf("expected trimmed name, got %q", p.FullName)
	}
	if *p.Email != "ana@example.com" {
		t.Errorf("expected lowercased email, got %q", *p.Email)
	}
	if !p.Active {
		t.Error("expected new patient to be active")
	}
}

func TestService_Create_Validation(t *testing.T) {
	svc, _ := newTestService()
	ctx := asUser(uuid.New(), auth.RoleNutritionist)

	tests := []struct {
		name string
		p    *Patient
	}{
		{"missing name", &Patient{}},
		{"bad sex", &Patient{FullName: "A", Sex: ptr("x")}},
		{"bad height", &Patient{FullName: "A", HeightCm: ptr(0.0)}},
		{"bad weight", &Patient{FullName: "A", WeightKg: ptr(-1.0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Create(ctx, tt.p)
			if !errors.Is(err, apperr.ErrInvalid) {
				t.Errorf("expected invalid error, got %v", err)
			}
		})
	}
}

func TestService_Create_Anonymous(t *testing.T) {
	svc, _ := newTestService()
	if err := svc.Create(context.Background(), &Patient{FullName: "A"}); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
}

func TestService_Authorize(t *testing.T) {
	svc, _ := newTestService()
	doc := uuid.New()
	patientUser := uuid.New()
	p := &Patient{FullName: "Ana"}
	if err := svc.Create(asUser(doc, auth.RoleNutritionist), p); err != nil {
		t.Fatal(err)
	}
	p.UserID = &patientUser

	tests := []struct {
		name string
		ctx  context.Context
		ok   bool
	}{
		{"owner", asUser(doc, auth.RoleNutritionist), true},
		{"other nutritionist", asUser(uuid.New(), auth.RoleNutritionist), false},
		{"linked patient", asUser(patientUser, auth.RolePatient), true},
		{"other patient", asUser(uuid.New(), auth.RolePatient), false},
		{"patient using nutritionist id", asUser(doc, auth.RolePatient), false},
		{"admin", asUser(uuid.New(), auth.RoleAdmin), true},
		{"anonymous", context.Background(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Authorize(tt.ctx, p.ID)
			if tt.ok && err != nil {
				t.Errorf("expected access, got %v", err)
			}
			if !tt.ok && !errors.Is(err, apperr.ErrNotFound) {
				t.Errorf("expected not found, got %v", err)
			}
		})
	}
}

func TestService_AuthorizeOwner_RejectsPatient(t *testing.T) {
	svc, _ := newTestService()
	doc := uuid.New()
	patientUser := uuid.New()
	p := &Patient{FullName: "Ana"}
	_ = svc.Create(asUser(doc, auth.RoleNutritionist), p)
	p.UserID = &patientUser

	_, err := svc.AuthorizeOwner(asUser(patientUser, auth.RolePatient), p.ID)
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
}

func TestService_Update_KeepsOwnership(t *testing.T) {
	svc, repo := newTestService()
	doc := uuid.New()
	ctx := asUser(doc, auth.RoleNutritionist)
	p := &Patient{FullName: "Ana"}
	_ = svc.Create(ctx, p)

	upd := &Patient{ID: p.ID, FullName: "Ana Maria", NutritionistID: uuid.New(), Active: false}
	if err := svc.Update(ctx, upd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := repo.items[p.ID]
	if got.NutritionistID != doc {
		t.Error("update must not change the owner")
	}
	if got.FullName != "Ana Maria" || got.Active {
		t.Errorf("unexpected patient %+v", got)
	}
}

func TestService_Delete_NotOwner(t *testing.T) {
	svc, repo := newTestService()
	p := &Patient{FullName: "Ana"}
	_ = svc.Create(asUser(uuid.New(), auth.RoleNutritionist), p)

	err := svc.Delete(asUser(uuid.New(), auth.RoleNutritionist), p.ID)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, ok := repo.items[p.ID]; !ok {
		t.Error("patient should not be deleted")
	}
}

func TestService_ListAndRoster(t *testing.T) {
	svc, _ := newTestService()
	doc := uuid.New()
	ctx := asUser(doc, auth.RoleNutritionist)
	for _, name := range []string{"Bruno", "Ana", "Carla"} {
		_ = svc.Create(ctx, &Patient{FullName: name})
	}
	_ = svc.Create(asUser(uuid.New(), auth.RoleNutritionist), &Patient{FullName: "Other"})

	items, total, err := svc.List(ctx, ListFilter{Search: " an "}, 20, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || items[0].FullName != "Ana" {
		t.Errorf("expected only Ana, got %d items", total)
	}

	roster, err := svc.ListRoster(ctx, doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(roster) != 3 {
		t.Errorf("expected roster of 3, got %d", len(roster))
	}

	empty, err := svc.ListRoster(ctx, uuid.Nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("expected empty roster for nil owner, got %v %v", empty, err)
	}
}

func TestService_GetMine(t *testing.T) {
	svc, _ := newTestService()
	doc := uuid.New()
	user := uuid.New()
	p := &Patient{FullName: "Ana"}
	_ = svc.Create(asUser(doc, auth.RoleNutritionist), p)
	_ = svc.LinkUser(context.Background(), p.ID, user)

	got, err := svc.GetMine(asUser(user, auth.RolePatient))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != p.ID {
		t.Error("expected linked patient")
	}

	if _, err := svc.GetMine(asUser(uuid.New(), auth.RolePatient)); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestPatient_Age(t *testing.T) {
	b := time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC)
	p := &Patient{BirthDate: &b}
	if got := p.Age(time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)); got != 33 {
		t.Errorf("expected 33, got %d", got)
	}
	if got := p.Age(time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC)); got != 34 {
		t.Errorf("expected 34, got %d", got)
	}
	if (&Patient{}).Age(time.Now()) != -1 {
		t.Error("expected -1 without birth date")
	}
}

func TestPatient_Age_LeapYears(t *testing.T) {
	cases := []struct {
		birth, at time.Time
		want      int
	}{
		// Same year-day in a leap year falls one calendar day earlier.
		{time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC), 33},
		{time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), 34},
		{time.Date(1992, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC), 31},
		{time.Date(2000, 2, 29, 0, 0, 0, 0, time.UTC), time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC), 22},
		{time.Date(2000, 2, 29, 0, 0, 0, 0, time.UTC), time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC), 23},
	}
	for _, tc := range cases {
		b := tc.birth
		if got := (&Patient{BirthDate: &b}).Age(tc.at); got != tc.want {
			t.Errorf("born %s at %s: expected %d, got %d",
				tc.birth.Format("2006-01-02"), tc.at.Format("2006-01-02"), tc.want, got)
		}
	}
}

func TestPatient_JSONIncludesAge(t *testing.T) {
	b := time.Now().AddDate(-30, 0, -1)
	data, err := json.Marshal(&Patient{FullName: "Ana", BirthDate: &b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["age"] != 30.0 || out["full_name"] != "Ana" {
		t.Errorf("unexpected JSON %s", data)
	}

	data, _ = json.Marshal(Patient{FullName: "Bia"})
	if strings.Contains(string(data), `"age"`) {
		t.Errorf("expected no age without birth date, got %s", data)
	}
}
