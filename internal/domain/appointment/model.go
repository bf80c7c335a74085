package appointment

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusScheduled = "scheduled"
	StatusConfirmed = "confirmed"
	StatusAwaiting  = "awaiting"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"

	DefaultDurationMinutes = 60
)

var validStatuses = map[string]bool{
	StatusScheduled: true, StatusConfirmed: true, StatusAwaiting: true,
	StatusCompleted: true, StatusCancelled: true, StatusNoShow: true,
}

var terminalStatuses = map[string]bool{
	StatusCompleted: true, StatusCancelled: true, StatusNoShow: true,
}

var validTypes = map[string]bool{"first_visit": true, "follow_up": true, "online": true}

type Appointment struct {
	ID              uuid.UUID `db:"id" json:"id"`
	NutritionistID  uuid.UUID `db:"nutritionist_id" json:"nutritionist_id"`
	PatientID       uuid.UUID `db:"patient_id" json:"patient_id"`
	ScheduledAt     time.Time `db:"scheduled_at" json:"scheduled_at"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	Type            string    `db:"type" json:"type"`
	Status          string    `db:"status" json:"status"`
	Notes           *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// IsTerminal reports whether the appointment can no longer change status.
func (a *Appointment) IsTerminal() bool {
	return terminalStatuses[a.Status]
}

// EndsAt is the scheduled end of the appointment.
func (a *Appointment) EndsAt() time.Time {
	return a.ScheduledAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}
