package meal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nutrio/nutrio/internal/platform/db"
)

// -- Meals --

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const mealCols = `id, patient_id, meal_type, eaten_at, notes, total_calories, total_protein,
	total_carbs, total_fat, created_at, updated_at`

const itemCols = `id, meal_id, food_name, quantity, unit, calories, protein, carbs, fat`

func (r *repoPG) scanMeal(row pgx.Row) (*Meal, error) {
	var m Meal
	err := row.Scan(&m.ID, &m.PatientID, &m.MealType, &m.EatenAt, &m.Notes, &m.TotalCalories,
		&m.TotalProtein, &m.TotalCarbs, &m.TotalFat, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repoPG) insertItems(ctx context.Context, m *Meal) error {
	for i := range m.Items {
		it := &m.Items[i]
		it.ID = uuid.New()
		it.MealID = m.ID
		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO meal_item (id, meal_id, food_name, quantity, unit, calories, protein, carbs, fat)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			it.ID, it.MealID, it.FoodName, it.Quantity, it.Unit, it.Calories, it.Protein, it.Carbs, it.Fat)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) Create(ctx context.Context, m *Meal) error {
	m.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO meal (id, patient_id, meal_type, eaten_at, notes, total_calories, total_protein,
			total_carbs, total_fat)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		m.ID, m.PatientID, m.MealType, m.EatenAt, m.Notes, m.TotalCalories, m.TotalProtein,
		m.TotalCarbs, m.TotalFat,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return err
	}
	return r.insertItems(ctx, m)
}

func (r *repoPG) Update(ctx context.Context, m *Meal) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE meal SET meal_type=$2, eaten_at=$3, notes=$4, total_calories=$5, total_protein=$6,
			total_carbs=$7, total_fat=$8, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		m.ID, m.MealType, m.EatenAt, m.Notes, m.TotalCalories, m.TotalProtein, m.TotalCarbs, m.TotalFat,
	).Scan(&m.UpdatedAt)
	if err != nil {
		return err
	}
	if _, err := r.conn(ctx).Exec(ctx, `DELETE FROM meal_item WHERE meal_id = $1`, m.ID); err != nil {
		return err
	}
	return r.insertItems(ctx, m)
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM meal WHERE id = $1`, id)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Meal, error) {
	m, err := r.scanMeal(r.conn(ctx).QueryRow(ctx, `SELECT `+mealCols+` FROM meal WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, []*Meal{m}); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, from, to time.Time) ([]*Meal, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+mealCols+` FROM meal
		WHERE patient_id = $1 AND eaten_at >= $2 AND eaten_at < $3
		ORDER BY eaten_at`, patientID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meals []*Meal
	for rows.Next() {
		m, err := r.scanMeal(rows)
		if err != nil {
			return nil, err
		}
		meals = append(meals, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, meals); err != nil {
		return nil, err
	}
	return meals, nil
}

func (r *repoPG) attachItems(ctx context.Context, meals []*Meal) error {
	if len(meals) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(meals))
	byID := make(map[uuid.UUID]*Meal, len(meals))
	for i, m := range meals {
		ids[i] = m.ID
		byID[m.ID] = m
		m.Items = []Item{}
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+itemCols+` FROM meal_item WHERE meal_id = ANY($1::uuid[]) ORDER BY food_name`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.MealID, &it.FoodName, &it.Quantity, &it.Unit,
			&it.Calories, &it.Protein, &it.Carbs, &it.Fat); err != nil {
			return err
		}
		if m, ok := byID[it.MealID]; ok {
			m.Items = append(m.Items, it)
		}
	}
	return rows.Err()
}

func (r *repoPG) InsertAudit(ctx context.Context, a *AuditLog) error {
	a.ID = uuid.New()
	if a.Details == nil {
		a.Details = map[string]any{}
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO meal_audit_log (id, meal_id, patient_id, action, details)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at`,
		a.ID, a.MealID, a.PatientID, a.Action, a.Details,
	).Scan(&a.CreatedAt)
}

func (r *repoPG) RecentAudits(ctx context.Context, patientIDs []uuid.UUID, limit int) ([]*AuditLog, error) {
	if len(patientIDs) == 0 {
		return nil, nil
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, meal_id, patient_id, action, details, created_at FROM meal_audit_log
		WHERE patient_id = ANY($1::uuid[])
		ORDER BY created_at DESC LIMIT $2`, patientIDs, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*AuditLog
	for rows.Next() {
		var a AuditLog
		if err := rows.Scan(&a.ID, &a.MealID, &a.PatientID, &a.Action, &a.Details, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// -- Meal plans --

type planRepoPG struct{ pool *pgxpool.Pool }

func NewPlanRepoPG(pool *pgxpool.Pool) PlanRepository {
	return &planRepoPG{pool: pool}
}

func (r *planRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const planCols = `id, nutritionist_id, patient_id, title, daily_calories, protein_g, carbs_g, fat_g,
	notes, active, starts_on, ends_on, created_at, updated_at`

func (r *planRepoPG) scan(row pgx.Row) (*Plan, error) {
	var p Plan
	err := row.Scan(&p.ID, &p.NutritionistID, &p.PatientID, &p.Title, &p.DailyCalories, &p.ProteinG,
		&p.CarbsG, &p.FatG, &p.Notes, &p.Active, &p.StartsOn, &p.EndsOn, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *planRepoPG) Create(ctx context.Context, p *Plan) error {
	p.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO meal_plan (id, nutritionist_id, patient_id, title, daily_calories, protein_g,
			carbs_g, fat_g, notes, active, starts_on, ends_on)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at`,
		p.ID, p.NutritionistID, p.PatientID, p.Title, p.DailyCalories, p.ProteinG,
		p.CarbsG, p.FatG, p.Notes, p.Active, p.StartsOn, p.EndsOn,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *planRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Plan, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+planCols+` FROM meal_plan WHERE id = $1`, id))
}

func (r *planRepoPG) Update(ctx context.Context, p *Plan) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE meal_plan SET title=$2, daily_calories=$3, protein_g=$4, carbs_g=$5, fat_g=$6,
			notes=$7, active=$8, starts_on=$9, ends_on=$10, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Title, p.DailyCalories, p.ProteinG, p.CarbsG, p.FatG, p.Notes, p.Active,
		p.StartsOn, p.EndsOn,
	).Scan(&p.UpdatedAt)
}

func (r *planRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Plan, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+planCols+` FROM meal_plan
		WHERE patient_id = $1 ORDER BY active DESC, created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Plan
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *planRepoPG) GetActive(ctx context.Context, patientID uuid.UUID) (*Plan, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+planCols+` FROM meal_plan WHERE patient_id = $1 AND active`, patientID))
}

func (r *planRepoPG) DeactivateAll(ctx context.Context, patientID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE meal_plan SET active = FALSE, updated_at = NOW() WHERE patient_id = $1 AND active`, patientID)
	return err
}
