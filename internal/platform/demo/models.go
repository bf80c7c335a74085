package demo

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PatientRow maps the patient table. Only the columns the generator fills
// are declared; the rest fall back to their database defaults.
type PatientRow struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	NutritionistID uuid.UUID `gorm:"type:uuid;not null"`
	FullName       string    `gorm:"type:varchar(200);not null"`
	Email          string    `gorm:"type:varchar(320)"`
	BirthDate      time.Time `gorm:"type:date"`
	Sex            string    `gorm:"type:varchar(10)"`
	HeightCm       float64
	WeightKg       float64
	Active         bool
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (PatientRow) TableName() string { return "patient" }

type MealRow struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	PatientID     uuid.UUID `gorm:"type:uuid;not null"`
	MealType      string    `gorm:"type:varchar(30);not null"`
	EatenAt       time.Time `gorm:"not null"`
	TotalCalories float64
	TotalProtein  float64
	TotalCarbs    float64
	TotalFat      float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (MealRow) TableName() string { return "meal" }

type MealItemRow struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	MealID   uuid.UUID `gorm:"type:uuid;not null"`
	FoodName string    `gorm:"type:varchar(200);not null"`
	Quantity float64
	Unit     string `gorm:"type:varchar(20)"`
	Calories float64
	Protein  float64
	Carbs    float64
	Fat      float64
}

func (MealItemRow) TableName() string { return "meal_item" }

type MealAuditRow struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	MealID    uuid.UUID      `gorm:"type:uuid;not null"`
	PatientID uuid.UUID      `gorm:"type:uuid;not null"`
	Action    string         `gorm:"type:varchar(10);not null"`
	Details   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time
}

func (MealAuditRow) TableName() string { return "meal_audit_log" }

type GrowthRow struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	PatientID  uuid.UUID `gorm:"type:uuid;not null"`
	RecordedAt time.Time `gorm:"not null"`
	WeightKg   float64   `gorm:"not null"`
}

func (GrowthRow) TableName() string { return "growth_record" }

// Batch is everything generated for one seeding run.
type Batch struct {
	Patients []PatientRow
	Meals    []MealRow
	Items    []MealItemRow
	Audits   []MealAuditRow
	Weights  []GrowthRow
}

// Result reports how many rows a seeding run wrote.
type Result struct {
	Patients int           `json:"patients"`
	Meals    int           `json:"meals"`
	Items    int           `json:"items"`
	Audits   int           `json:"audits"`
	Weights  int           `json:"weights"`
	Duration time.Duration `json:"duration"`
}

func (b *Batch) result() Result {
	return Result{
		Patients: len(b.Patients),
		Meals:    len(b.Meals),
		Items:    len(b.Items),
		Audits:   len(b.Audits),
		Weights:  len(b.Weights),
	}
}
