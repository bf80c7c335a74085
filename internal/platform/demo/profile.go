package demo

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile controls the shape of a seeding run.
type Profile struct {
	Patients    int     `yaml:"patients" json:"patients"`
	Days        int     `yaml:"days" json:"days"`
	MealsPerDay int     `yaml:"meals_per_day" json:"meals_per_day"`
	Seed        int64   `yaml:"seed" json:"seed"`
	WeightMin   float64 `yaml:"start_weight_min" json:"start_weight_min"`
	WeightMax   float64 `yaml:"start_weight_max" json:"start_weight_max"`
	// WeeklyWeighIns is how many weight records each patient gets per week.
	WeeklyWeighIns int `yaml:"weekly_weigh_ins" json:"weekly_weigh_ins"`
}

// DefaultProfile returns a profile suitable for a short sales demo.
func DefaultProfile() Profile {
	return Profile{
		Patients:       8,
		Days:           14,
		MealsPerDay:    4,
		WeightMin:      55,
		WeightMax:      110,
		WeeklyWeighIns: 2,
	}
}

// withDefaults fills zero fields from DefaultProfile.
func (p Profile) withDefaults() Profile {
	d := DefaultProfile()
	if p.Patients == 0 {
		p.Patients = d.Patients
	}
	if p.Days == 0 {
		p.Days = d.Days
	}
	if p.MealsPerDay == 0 {
		p.MealsPerDay = d.MealsPerDay
	}
	if p.WeightMin == 0 && p.WeightMax == 0 {
		p.WeightMin, p.WeightMax = d.WeightMin, d.WeightMax
	}
	if p.WeeklyWeighIns == 0 {
		p.WeeklyWeighIns = d.WeeklyWeighIns
	}
	return p
}

func (p Profile) Validate() error {
	switch {
	case p.Patients < 1 || p.Patients > 200:
		return fmt.Errorf("patients must be between 1 and 200, got %d", p.Patients)
	case p.Days < 1 || p.Days > 365:
		return fmt.Errorf("days must be between 1 and 365, got %d", p.Days)
	case p.MealsPerDay < 1 || p.MealsPerDay > len(mealSlots):
		return fmt.Errorf("meals_per_day must be between 1 and %d, got %d", len(mealSlots), p.MealsPerDay)
	case p.WeightMin <= 0 || p.WeightMax < p.WeightMin:
		return fmt.Errorf("invalid start weight range [%v, %v]", p.WeightMin, p.WeightMax)
	case p.WeeklyWeighIns < 1 || p.WeeklyWeighIns > 7:
		return fmt.Errorf("weekly_weigh_ins must be between 1 and 7, got %d", p.WeeklyWeighIns)
	}
	return nil
}

// LoadProfile reads a YAML profile. Missing fields take default values.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	return ParseProfile(data)
}

func ParseProfile(data []byte) (Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parse profile: %w", err)
	}
	p = p.withDefaults()
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}
