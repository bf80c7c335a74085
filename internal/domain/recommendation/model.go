package recommendation

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending   = "pending"
	StatusAccepted  = "accepted"
	StatusDismissed = "dismissed"
	StatusApplied   = "applied"
)

// ErrInvalidTransition is returned for a status change the lifecycle forbids.
var ErrInvalidTransition = errors.New("invalid recommendation status transition")

// transitions lists the allowed next statuses per status.
var transitions = map[string][]string{
	StatusPending:  {StatusAccepted, StatusDismissed},
	StatusAccepted: {StatusApplied},
}

// CanTransition reports whether a recommendation may move from one status to
// another.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Recommendation struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	NutritionistID uuid.UUID  `db:"nutritionist_id" json:"nutritionist_id"`
	Title          string     `db:"title" json:"title"`
	Rationale      *string    `db:"rationale" json:"rationale,omitempty"`
	Confidence     float64    `db:"confidence" json:"confidence"`
	Status         string     `db:"status" json:"status"`
	DecidedAt      *time.Time `db:"decided_at" json:"decided_at,omitempty"`
	AppliedAt      *time.Time `db:"applied_at" json:"applied_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}
