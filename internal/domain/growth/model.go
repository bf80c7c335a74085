package growth

import (
	"time"

	"github.com/google/uuid"
)

// Record is one anthropometric measurement of a patient.
type Record struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PatientID  uuid.UUID `db:"patient_id" json:"patient_id"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
	WeightKg   float64   `db:"weight_kg" json:"weight_kg"`
	HeightCm   *float64  `db:"height_cm" json:"height_cm,omitempty"`
	WaistCm    *float64  `db:"waist_cm" json:"waist_cm,omitempty"`
	BodyFatPct *float64  `db:"body_fat_pct" json:"body_fat_pct,omitempty"`
	Notes      *string   `db:"notes" json:"notes,omitempty"`
}
