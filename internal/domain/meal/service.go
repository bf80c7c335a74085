package meal

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nutrio/nutrio/internal/domain/patient"
	"github.com/nutrio/nutrio/internal/platform/auth"
	"github.com/nutrio/nutrio/internal/platform/db"
	"github.com/nutrio/nutrio/internal/platform/websocket"
	"github.com/nutrio/nutrio/pkg/apperr"
)

const (
	mealTable = "meal"
	planTable = "meal_plan"

	NotificationMealLogged = "meal_logged"

	defaultDiaryDays = 7
	maxDiaryDays     = 92
)

// Patients is the slice of the patient service meals depend on.
type Patients interface {
	Authorize(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	AuthorizeOwner(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	GetMine(ctx context.Context) (*patient.Patient, error)
}

// Notifier delivers an inbox notification to a user.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, typ string, content map[string]any) error
}

type Service struct {
	meals    Repository
	plans    PlanRepository
	patients Patients
	notifier Notifier
	tx       db.Transactor
	pub      websocket.Publisher
	now      func() time.Time
}

func NewService(meals Repository, plans PlanRepository, patients Patients, notifier Notifier, tx db.Transactor, pub websocket.Publisher) *Service {
	if pub == nil {
		pub = websocket.Nop{}
	}
	return &Service{
		meals:    meals,
		plans:    plans,
		patients: patients,
		notifier: notifier,
		tx:       tx,
		pub:      pub,
		now:      time.Now,
	}
}

func normalizeMeal(m *Meal) error {
	if !ValidMealTypes[m.MealType] {
		return apperr.Invalid("invalid meal_type: %s", m.MealType)
	}
	if len(m.Items) == 0 {
		return apperr.Invalid("a meal needs at least one item")
	}
	for i := range m.Items {
		it := &m.Items[i]
		it.FoodName = strings.TrimSpace(it.FoodName)
		if it.FoodName == "" {
			return apperr.Invalid("items[%d].food_name is required", i)
		}
		if it.Quantity <= 0 {
			return apperr.Invalid("items[%d].quantity must be greater than 0", i)
		}
		if it.Calories < 0 || it.Protein < 0 || it.Carbs < 0 || it.Fat < 0 {
			return apperr.Invalid("items[%d] nutrients must not be negative", i)
		}
		if it.Unit == "" {
			it.Unit = "g"
		}
	}
	m.ComputeTotals()
	return nil
}

func (s *Service) publishMeal(ctx context.Context, action string, m *Meal) {
	_ = websocket.PublishTableChange(ctx, s.pub, action, mealTable, "patient_id", m.PatientID.String(), m.ID.String())
}

// CreateMeal logs a meal with its items. The audit row is written in the
// same transaction.
func (s *Service) CreateMeal(ctx context.Context, m *Meal) error {
	p, err := s.patients.Authorize(ctx, m.PatientID)
	if err != nil {
		return err
	}
	if err := normalizeMeal(m); err != nil {
		return err
	}
	if m.EatenAt.IsZero() {
		m.EatenAt = s.now().UTC()
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.meals.Create(ctx, m); err != nil {
			return err
		}
		return s.meals.InsertAudit(ctx, auditFor(m, ActionCreate))
	})
	if err != nil {
		return err
	}
	s.publishMeal(ctx, websocket.EventInsert, m)

	if auth.RoleFromContext(ctx) == auth.RolePatient && s.notifier != nil {
		content := map[string]any{
			"patient_id":     p.ID,
			"patient_name":   p.FullName,
			"meal_id":        m.ID,
			"meal_type":      m.MealType,
			"total_calories": m.TotalCalories,
		}
		if err := s.notifier.Notify(ctx, p.NutritionistID, NotificationMealLogged, content); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("meal_id", m.ID.String()).Msg("meal notification failed")
		}
	}
	return nil
}

func (s *Service) GetMeal(ctx context.Context, id uuid.UUID) (*Meal, error) {
	m, err := s.meals.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.NotFound("meal")
		}
		return nil, err
	}
	if _, err := s.patients.Authorize(ctx, m.PatientID); err != nil {
		return nil, apperr.NotFound("meal")
	}
	return m, nil
}

// UpdateMeal replaces a meal's fields and items.
func (s *Service) UpdateMeal(ctx context.Context, m *Meal) error {
	existing, err := s.GetMeal(ctx, m.ID)
	if err != nil {
		return err
	}
	m.PatientID = existing.PatientID
	m.CreatedAt = existing.CreatedAt
	if err := normalizeMeal(m); err != nil {
		return err
	}
	if m.EatenAt.IsZero() {
		m.EatenAt = existing.EatenAt
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.meals.Update(ctx, m); err != nil {
			return err
		}
		return s.meals.InsertAudit(ctx, auditFor(m, ActionUpdate))
	})
	if err != nil {
		return err
	}
	s.publishMeal(ctx, websocket.EventUpdate, m)
	return nil
}

// DeleteMeal removes a meal. The audit row keeps its last totals.
func (s *Service) DeleteMeal(ctx context.Context, id uuid.UUID) error {
	m, err := s.GetMeal(ctx, id)
	if err != nil {
		return err
	}
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.meals.Delete(ctx, id); err != nil {
			return err
		}
		return s.meals.InsertAudit(ctx, auditFor(m, ActionDelete))
	})
	if err != nil {
		return err
	}
	s.publishMeal(ctx, websocket.EventDelete, m)
	return nil
}

// ListDiary returns a patient's meals eaten in [from, to), oldest first.
// A zero to means now; a zero from means a week before to.
func (s *Service) ListDiary(ctx context.Context, patientID uuid.UUID, from, to time.Time) ([]*Meal, error) {
	if _, err := s.patients.Authorize(ctx, patientID); err != nil {
		return nil, err
	}
	if to.IsZero() {
		to = s.now().UTC()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -defaultDiaryDays)
	}
	if !from.Before(to) {
		return nil, apperr.Invalid("from must be before to")
	}
	if to.Sub(from) > maxDiaryDays*24*time.Hour {
		return nil, apperr.Invalid("diary range is limited to %d days", maxDiaryDays)
	}
	return s.meals.ListByPatient(ctx, patientID, from, to)
}

// DailyTotals sums the nutrients of the meals eaten on day (UTC).
func (s *Service) DailyTotals(ctx context.Context, patientID uuid.UUID, day time.Time) (*DailyTotals, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	meals, err := s.ListDiary(ctx, patientID, start, start.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	t := &DailyTotals{Day: start.Format("2006-01-02"), Meals: len(meals)}
	for _, m := range meals {
		t.Calories += m.TotalCalories
		t.Protein += m.TotalProtein
		t.Carbs += m.TotalCarbs
		t.Fat += m.TotalFat
	}
	t.Calories = round1(t.Calories)
	t.Protein = round1(t.Protein)
	t.Carbs = round1(t.Carbs)
	t.Fat = round1(t.Fat)
	return t, nil
}

// RecentAudits feeds the activity aggregator. Callers scope patientIDs.
func (s *Service) RecentAudits(ctx context.Context, patientIDs []uuid.UUID, limit int) ([]*AuditLog, error) {
	return s.meals.RecentAudits(ctx, patientIDs, limit)
}

// -- Meal plans --

func normalizePlan(p *Plan) error {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return apperr.Invalid("title is required")
	}
	for name, v := range map[string]*float64{
		"daily_calories": p.DailyCalories,
		"protein_g":      p.ProteinG,
		"carbs_g":        p.CarbsG,
		"fat_g":          p.FatG,
	} {
		if v != nil && *v < 0 {
			return apperr.Invalid("%s must not be negative", name)
		}
	}
	if p.StartsOn != nil && p.EndsOn != nil && p.EndsOn.Before(*p.StartsOn) {
		return apperr.Invalid("ends_on must not be before starts_on")
	}
	return nil
}

func (s *Service) publishPlan(ctx context.Context, action string, p *Plan) {
	_ = websocket.PublishTableChange(ctx, s.pub, action, planTable, "patient_id", p.PatientID.String(), p.ID.String())
}

// CreatePlan prescribes a plan. An active plan replaces the current one.
func (s *Service) CreatePlan(ctx context.Context, p *Plan) error {
	pt, err := s.patients.AuthorizeOwner(ctx, p.PatientID)
	if err != nil {
		return err
	}
	if err := normalizePlan(p); err != nil {
		return err
	}
	p.NutritionistID = pt.NutritionistID

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if p.Active {
			if err := s.plans.DeactivateAll(ctx, p.PatientID); err != nil {
				return err
			}
		}
		return s.plans.Create(ctx, p)
	})
	if err != nil {
		return err
	}
	s.publishPlan(ctx, websocket.EventInsert, p)
	return nil
}

func (s *Service) GetPlan(ctx context.Context, id uuid.UUID) (*Plan, error) {
	p, err := s.plans.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.NotFound("meal plan")
		}
		return nil, err
	}
	if _, err := s.patients.Authorize(ctx, p.PatientID); err != nil {
		return nil, apperr.NotFound("meal plan")
	}
	return p, nil
}

func (s *Service) ListPlans(ctx context.Context, patientID uuid.UUID) ([]*Plan, error) {
	if _, err := s.patients.Authorize(ctx, patientID); err != nil {
		return nil, err
	}
	return s.plans.ListByPatient(ctx, patientID)
}

func (s *Service) UpdatePlan(ctx context.Context, p *Plan) error {
	existing, err := s.GetPlan(ctx, p.ID)
	if err != nil {
		return err
	}
	if _, err := s.patients.AuthorizeOwner(ctx, existing.PatientID); err != nil {
		return err
	}
	if err := normalizePlan(p); err != nil {
		return err
	}
	p.PatientID = existing.PatientID
	p.NutritionistID = existing.NutritionistID
	p.CreatedAt = existing.CreatedAt

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if p.Active && !existing.Active {
			if err := s.plans.DeactivateAll(ctx, p.PatientID); err != nil {
				return err
			}
		}
		return s.plans.Update(ctx, p)
	})
	if err != nil {
		return err
	}
	s.publishPlan(ctx, websocket.EventUpdate, p)
	return nil
}

// ActivatePlan makes id the patient's only active plan.
func (s *Service) ActivatePlan(ctx context.Context, id uuid.UUID) (*Plan, error) {
	p, err := s.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.patients.AuthorizeOwner(ctx, p.PatientID); err != nil {
		return nil, err
	}
	if p.Active {
		return p, nil
	}
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.plans.DeactivateAll(ctx, p.PatientID); err != nil {
			return err
		}
		p.Active = true
		return s.plans.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	s.publishPlan(ctx, websocket.EventUpdate, p)
	return p, nil
}

// MyActivePlan returns the active plan of the calling patient user.
func (s *Service) MyActivePlan(ctx context.Context) (*Plan, error) {
	pt, err := s.patients.GetMine(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.plans.GetActive(ctx, pt.ID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.NotFound("active meal plan")
		}
		return nil, err
	}
	return p, nil
}
