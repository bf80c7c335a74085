package patient

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nutrio/nutrio/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const patientCols = `id, nutritionist_id, user_id, full_name, email, phone, birth_date, sex,
	height_cm, weight_kg, avatar_path, active, created_at, updated_at`

func (r *repoPG) scan(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.NutritionistID, &p.UserID, &p.FullName, &p.Email, &p.Phone,
		&p.BirthDate, &p.Sex, &p.HeightCm, &p.WeightKg, &p.AvatarPath, &p.Active,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (id, nutritionist_id, user_id, full_name, email, phone, birth_date,
			sex, height_cm, weight_kg, avatar_path, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at`,
		p.ID, p.NutritionistID, p.UserID, p.FullName, p.Email, p.Phone, p.BirthDate,
		p.Sex, p.HeightCm, p.WeightKg, p.AvatarPath, p.Active,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *repoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE user_id = $1 ORDER BY created_at LIMIT 1`, userID))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE patient SET full_name=$2, email=$3, phone=$4, birth_date=$5, sex=$6,
			height_cm=$7, weight_kg=$8, avatar_path=$9, active=$10, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.FullName, p.Email, p.Phone, p.BirthDate, p.Sex,
		p.HeightCm, p.WeightKg, p.AvatarPath, p.Active,
	).Scan(&p.UpdatedAt)
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListByNutritionist(ctx context.Context, nutritionistID uuid.UUID, f ListFilter, limit, offset int) ([]*Patient, int, error) {
	where := []string{"nutritionist_id = $1"}
	args := []interface{}{nutritionistID}
	if !f.IncludeInactive {
		where = append(where, "active")
	}
	if f.Search != "" {
		args = append(args, "%"+escapeLike(f.Search)+"%")
		where = append(where, "full_name ILIKE $2")
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	n := len(args)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patient WHERE `+clause+
			` ORDER BY full_name LIMIT $`+strconv.Itoa(n-1)+` OFFSET $`+strconv.Itoa(n), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListRoster(ctx context.Context, nutritionistID uuid.UUID) ([]RosterEntry, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id, full_name FROM patient WHERE nutritionist_id = $1 AND active ORDER BY full_name`,
		nutritionistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RosterEntry
	for rows.Next() {
		var e RosterEntry
		if err := rows.Scan(&e.ID, &e.FullName); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *repoPG) SetWeight(ctx context.Context, id uuid.UUID, weightKg float64) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE patient SET weight_kg=$2, updated_at=NOW() WHERE id = $1`, id, weightKg)
	return err
}

func (r *repoPG) LinkUser(ctx context.Context, id, userID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE patient SET user_id=$2, updated_at=NOW() WHERE id = $1`, id, userID)
	return err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
