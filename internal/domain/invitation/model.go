package invitation

import (
	"time"

	"github.com/google/uuid"
)

// TTL is how long an invitation link stays valid.
const TTL = 7 * 24 * time.Hour

// Invitation lets a patient create a login linked to their record.
type Invitation struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	NutritionistID uuid.UUID  `db:"nutritionist_id" json:"nutritionist_id"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	Email          string     `db:"email" json:"email"`
	Token          string     `db:"token" json:"-"`
	ExpiresAt      time.Time  `db:"expires_at" json:"expires_at"`
	AcceptedAt     *time.Time `db:"accepted_at" json:"accepted_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// Pending reports whether the invitation can still be accepted at now.
func (i *Invitation) Pending(now time.Time) bool {
	return i.AcceptedAt == nil && now.Before(i.ExpiresAt)
}
