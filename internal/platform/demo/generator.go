// Package demo synthesizes plausible-looking patient histories for sales
// demonstrations and tears them down again. Every generated patient carries
// an email under a reserved domain, which is the only marker Purge relies on.
package demo

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type food struct {
	Name    string
	Kind    string // breakfast, main or snack
	BaseG   float64
	Kcal    float64 // per 100 g
	Protein float64
	Carbs   float64
	Fat     float64
}

type mealSlot struct {
	Type   string
	Kind   string
	Hour   int
	Minute int
}

var (
	firstNames = []string{
		"Ana", "Bruno", "Carla", "Daniel", "Elena", "Felipe", "Gabriela", "Hugo",
		"Isabel", "João", "Karina", "Lucas", "Marta", "Nuno", "Olivia", "Pedro",
		"Rita", "Sofia", "Tiago", "Vera",
	}
	lastNames = []string{
		"Almeida", "Barros", "Costa", "Duarte", "Esteves", "Ferreira", "Gomes",
		"Lopes", "Martins", "Nunes", "Oliveira", "Pereira", "Ribeiro", "Silva",
		"Teixeira", "Vieira",
	}

	// Ordered by how likely a patient is to log the slot.
	mealSlots = []mealSlot{
		{"breakfast", "breakfast", 8, 0},
		{"lunch", "main", 12, 30},
		{"dinner", "main", 19, 30},
		{"afternoon_snack", "snack", 16, 0},
		{"morning_snack", "snack", 10, 30},
		{"supper", "snack", 22, 0},
	}

	foodCatalog = []food{
		{"Oatmeal", "breakfast", 60, 379, 13.2, 67.7, 6.5},
		{"Whole milk", "breakfast", 200, 61, 3.2, 4.8, 3.3},
		{"Greek yogurt", "breakfast", 170, 97, 9, 3.9, 5},
		{"Whole wheat bread", "breakfast", 50, 247, 13, 41, 3.4},
		{"Scrambled eggs", "breakfast", 100, 148, 10, 1.6, 11},
		{"Banana", "breakfast", 120, 89, 1.1, 22.8, 0.3},
		{"Grilled chicken breast", "main", 150, 165, 31, 0, 3.6},
		{"White rice", "main", 150, 130, 2.7, 28, 0.3},
		{"Black beans", "main", 100, 132, 8.9, 23.7, 0.5},
		{"Baked salmon", "main", 140, 208, 20, 0, 13},
		{"Sweet potato", "main", 150, 86, 1.6, 20.1, 0.1},
		{"Mixed salad", "main", 100, 20, 1.2, 3.6, 0.2},
		{"Whole wheat pasta", "main", 140, 124, 5.3, 26.5, 0.5},
		{"Lean beef", "main", 120, 250, 26, 0, 15},
		{"Apple", "snack", 150, 52, 0.3, 13.8, 0.2},
		{"Almonds", "snack", 30, 579, 21, 22, 50},
		{"Cottage cheese", "snack", 100, 98, 11, 3.4, 4.3},
		{"Rice cakes", "snack", 20, 387, 8, 81, 2.8},
		{"Orange", "snack", 130, 47, 0.9, 11.8, 0.1},
	}
)

// Generator produces deterministic demo data for a seed.
type Generator struct {
	rng    *rand.Rand
	domain string
	now    time.Time
	seq    int
}

// NewGenerator returns a generator seeded for reproducibility. If seed is 0 a
// time-based seed is chosen.
func NewGenerator(seed int64, domain string, now time.Time) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		rng:    rand.New(rand.NewSource(seed)),
		domain: domain,
		now:    now.UTC(),
	}
}

func (g *Generator) id() uuid.UUID {
	id, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		// math/rand never fails to read.
		panic(err)
	}
	return id
}

func (g *Generator) pick(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

// between returns a uniform value in [lo, hi).
func (g *Generator) between(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func slug(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "-"))
}

// Generate builds a full batch for a nutritionist. The profile is expected to
// be valid.
func (g *Generator) Generate(nutritionistID uuid.UUID, p Profile) Batch {
	var b Batch
	for i := 0; i < p.Patients; i++ {
		pat := g.patient(nutritionistID, p)
		weights := g.weightSeries(pat.ID, p)
		if len(weights) > 0 {
			pat.WeightKg = weights[len(weights)-1].WeightKg
		}
		b.Patients = append(b.Patients, pat)
		b.Weights = append(b.Weights, weights...)
		g.mealHistory(&b, pat.ID, p)
	}
	return b
}

func (g *Generator) patient(nutritionistID uuid.UUID, p Profile) PatientRow {
	g.seq++
	name := g.pick(firstNames) + " " + g.pick(lastNames)
	sex := "female"
	if g.rng.Intn(2) == 0 {
		sex = "male"
	}
	birth := time.Date(1950+g.rng.Intn(58), time.Month(1+g.rng.Intn(12)), 1+g.rng.Intn(28), 0, 0, 0, 0, time.UTC)

	return PatientRow{
		ID:             g.id(),
		NutritionistID: nutritionistID,
		FullName:       name,
		Email:          fmt.Sprintf("%s.%d@%s", slug(name), g.seq, g.domain),
		BirthDate:      birth,
		Sex:            sex,
		HeightCm:       round1(g.between(150, 195)),
		WeightKg:       round1(g.between(p.WeightMin, p.WeightMax)),
		Active:         true,
	}
}

// weightSeries walks from a random start weight with a mostly downward daily
// drift plus per-weigh-in noise.
func (g *Generator) weightSeries(patientID uuid.UUID, p Profile) []GrowthRow {
	start := g.between(p.WeightMin, p.WeightMax)
	drift := g.between(-0.12, 0.03)
	step := 7 / p.WeeklyWeighIns
	if step < 1 {
		step = 1
	}

	var rows []GrowthRow
	first := g.dayStart(p.Days - 1)
	for day := 0; day < p.Days; day += step {
		at := first.AddDate(0, 0, day).Add(time.Duration(6+g.rng.Intn(3)) * time.Hour)
		if at.After(g.now) {
			break
		}
		w := start + drift*float64(day) + g.between(-0.4, 0.4)
		rows = append(rows, GrowthRow{
			ID:         g.id(),
			PatientID:  patientID,
			RecordedAt: at,
			WeightKg:   round1(w),
		})
	}
	return rows
}

func (g *Generator) mealHistory(b *Batch, patientID uuid.UUID, p Profile) {
	for back := p.Days - 1; back >= 0; back-- {
		day := g.dayStart(back)
		for _, slot := range mealSlots[:p.MealsPerDay] {
			jitter := time.Duration(g.rng.Intn(61)-30) * time.Minute
			eatenAt := day.Add(time.Duration(slot.Hour)*time.Hour + time.Duration(slot.Minute)*time.Minute + jitter)
			if eatenAt.After(g.now) {
				continue
			}
			g.meal(b, patientID, slot, eatenAt)
		}
	}
}

func (g *Generator) meal(b *Batch, patientID uuid.UUID, slot mealSlot, eatenAt time.Time) {
	m := MealRow{
		ID:        g.id(),
		PatientID: patientID,
		MealType:  slot.Type,
		EatenAt:   eatenAt,
		CreatedAt: eatenAt,
		UpdatedAt: eatenAt,
	}

	foods := foodsOfKind(slot.Kind)
	n := 1 + g.rng.Intn(3)
	for i, idx := range g.rng.Perm(len(foods)) {
		if i == n {
			break
		}
		f := foods[idx]
		qty := round1(f.BaseG * g.between(0.8, 1.2))
		item := MealItemRow{
			ID:       g.id(),
			MealID:   m.ID,
			FoodName: f.Name,
			Quantity: qty,
			Unit:     "g",
			Calories: round1(f.Kcal * qty / 100),
			Protein:  round1(f.Protein * qty / 100),
			Carbs:    round1(f.Carbs * qty / 100),
			Fat:      round1(f.Fat * qty / 100),
		}
		m.TotalCalories += item.Calories
		m.TotalProtein += item.Protein
		m.TotalCarbs += item.Carbs
		m.TotalFat += item.Fat
		b.Items = append(b.Items, item)
	}
	m.TotalCalories = round1(m.TotalCalories)
	m.TotalProtein = round1(m.TotalProtein)
	m.TotalCarbs = round1(m.TotalCarbs)
	m.TotalFat = round1(m.TotalFat)
	b.Meals = append(b.Meals, m)

	details, _ := json.Marshal(map[string]any{
		"meal_type":      m.MealType,
		"total_calories": m.TotalCalories,
	})
	loggedAt := eatenAt.Add(time.Duration(1+g.rng.Intn(20)) * time.Minute)
	if loggedAt.After(g.now) {
		loggedAt = g.now
	}
	b.Audits = append(b.Audits, MealAuditRow{
		ID:        g.id(),
		MealID:    m.ID,
		PatientID: patientID,
		Action:    "create",
		Details:   datatypes.JSON(details),
		CreatedAt: loggedAt,
	})
}

// dayStart returns UTC midnight of the day `back` days before now.
func (g *Generator) dayStart(back int) time.Time {
	y, m, d := g.now.AddDate(0, 0, -back).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func foodsOfKind(kind string) []food {
	var out []food
	for _, f := range foodCatalog {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}
