// Package activity merges recent meal-diary and weight events of a
// nutritionist's patients into one reverse-chronological feed.
package activity

import (
	"time"

	"github.com/google/uuid"
)

const (
	CategoryMeal   = "meal"
	CategoryWeight = "weight"
	CategoryAll    = "all"

	// DefaultWindow is how many rows each source contributes at most.
	DefaultWindow = 100
)

// RosterEntry is one patient visible to the feed owner.
type RosterEntry struct {
	ID   uuid.UUID
	Name string
}

// MealAudit is a raw meal-diary audit row.
type MealAudit struct {
	PatientID uuid.UUID
	MealID    uuid.UUID
	Action    string
	Details   map[string]any
	CreatedAt time.Time
}

// WeightRecord is a raw weight measurement.
type WeightRecord struct {
	PatientID  uuid.UUID
	WeightKg   float64
	RecordedAt time.Time
}

// Activity is one normalized feed entry.
type Activity struct {
	PatientID   uuid.UUID `json:"patient_id"`
	PatientName string    `json:"patient_name"`
	Category    string    `json:"category"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	Calories    *float64  `json:"calories,omitempty"`
	WeightKg    *float64  `json:"weight_kg,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type Filter struct {
	Search   string
	Category string
}

// Feed is the aggregated result. Truncated is set when a source hit the
// window, so older events may be missing.
type Feed struct {
	Items     []Activity `json:"items"`
	Truncated bool       `json:"truncated"`
}
