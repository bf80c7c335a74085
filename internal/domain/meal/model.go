package meal

import (
	"math"
	"time"

	"github.com/google/uuid"
)

var ValidMealTypes = map[string]bool{
	"breakfast":       true,
	"morning_snack":   true,
	"lunch":           true,
	"afternoon_snack": true,
	"dinner":          true,
	"supper":          true,
}

// Audit actions written alongside every meal mutation.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

type Meal struct {
	ID            uuid.UUID `db:"id" json:"id"`
	PatientID     uuid.UUID `db:"patient_id" json:"patient_id"`
	MealType      string    `db:"meal_type" json:"meal_type"`
	EatenAt       time.Time `db:"eaten_at" json:"eaten_at"`
	Notes         *string   `db:"notes" json:"notes,omitempty"`
	TotalCalories float64   `db:"total_calories" json:"total_calories"`
	TotalProtein  float64   `db:"total_protein" json:"total_protein"`
	TotalCarbs    float64   `db:"total_carbs" json:"total_carbs"`
	TotalFat      float64   `db:"total_fat" json:"total_fat"`
	Items         []Item    `db:"-" json:"items"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

type Item struct {
	ID       uuid.UUID `db:"id" json:"id"`
	MealID   uuid.UUID `db:"meal_id" json:"meal_id"`
	FoodName string    `db:"food_name" json:"food_name"`
	Quantity float64   `db:"quantity" json:"quantity"`
	Unit     string    `db:"unit" json:"unit"`
	Calories float64   `db:"calories" json:"calories"`
	Protein  float64   `db:"protein" json:"protein"`
	Carbs    float64   `db:"carbs" json:"carbs"`
	Fat      float64   `db:"fat" json:"fat"`
}

// ComputeTotals sets the meal totals to the sum of its items.
func (m *Meal) ComputeTotals() {
	var cal, prot, carbs, fat float64
	for _, it := range m.Items {
		cal += it.Calories
		prot += it.Protein
		carbs += it.Carbs
		fat += it.Fat
	}
	m.TotalCalories = round1(cal)
	m.TotalProtein = round1(prot)
	m.TotalCarbs = round1(carbs)
	m.TotalFat = round1(fat)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// AuditLog is an append-only record of a meal mutation.
type AuditLog struct {
	ID        uuid.UUID      `db:"id" json:"id"`
	MealID    uuid.UUID      `db:"meal_id" json:"meal_id"`
	PatientID uuid.UUID      `db:"patient_id" json:"patient_id"`
	Action    string         `db:"action" json:"action"`
	Details   map[string]any `db:"details" json:"details"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

func auditFor(m *Meal, action string) *AuditLog {
	return &AuditLog{
		MealID:    m.ID,
		PatientID: m.PatientID,
		Action:    action,
		Details: map[string]any{
			"meal_type":      m.MealType,
			"total_calories": m.TotalCalories,
		},
	}
}

// DailyTotals sums the meals of one calendar day (UTC).
type DailyTotals struct {
	Day      string  `json:"day"`
	Meals    int     `json:"meals"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// Plan is a prescribed meal plan. A patient has at most one active plan.
type Plan struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	NutritionistID uuid.UUID  `db:"nutritionist_id" json:"nutritionist_id"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	Title          string     `db:"title" json:"title"`
	DailyCalories  *float64   `db:"daily_calories" json:"daily_calories,omitempty"`
	ProteinG       *float64   `db:"protein_g" json:"protein_g,omitempty"`
	CarbsG         *float64   `db:"carbs_g" json:"carbs_g,omitempty"`
	FatG           *float64   `db:"fat_g" json:"fat_g,omitempty"`
	Notes          *string    `db:"notes" json:"notes,omitempty"`
	Active         bool       `db:"active" json:"active"`
	StartsOn       *time.Time `db:"starts_on" json:"starts_on,omitempty"`
	EndsOn         *time.Time `db:"ends_on" json:"ends_on,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}
