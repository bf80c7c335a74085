package patient

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Patient is a person followed by a nutritionist. UserID links the patient's
// own login once an invitation has been accepted.
type Patient struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	NutritionistID uuid.UUID  `db:"nutritionist_id" json:"nutritionist_id"`
	UserID         *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	FullName       string     `db:"full_name" json:"full_name"`
	Email          *string    `db:"email" json:"email,omitempty"`
	Phone          *string    `db:"phone" json:"phone,omitempty"`
	BirthDate      *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Sex            *string    `db:"sex" json:"sex,omitempty"`
	HeightCm       *float64   `db:"height_cm" json:"height_cm,omitempty"`
	WeightKg       *float64   `db:"weight_kg" json:"weight_kg,omitempty"`
	AvatarPath     *string    `db:"avatar_path" json:"avatar_path,omitempty"`
	Active         bool       `db:"active" json:"active"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// RosterEntry is the id and display name of an active patient.
type RosterEntry struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
}

type ListFilter struct {
	Search          string
	IncludeInactive bool
}

// Age in whole years at the given instant, or -1 without a birth date.
func (p *Patient) Age(at time.Time) int {
	if p.BirthDate == nil {
		return -1
	}
	b := *p.BirthDate
	years := at.Year() - b.Year()
	if at.Month() < b.Month() || (at.Month() == b.Month() && at.Day() < b.Day()) {
		years--
	}
	return years
}

// MarshalJSON adds the current age to the wire form when a birth date is known.
func (p Patient) MarshalJSON() ([]byte, error) {
	type plain Patient
	out := struct {
		plain
		Age *int `json:"age,omitempty"`
	}{plain: plain(p)}
	if age := p.Age(time.Now()); age >= 0 {
		out.Age = &age
	}
	return json.Marshal(out)
}
