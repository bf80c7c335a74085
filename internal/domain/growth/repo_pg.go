package growth

import (
	"context"

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

const recordCols = `id, patient_id, recorded_at, weight_kg, height_cm, waist_cm, body_fat_pct, notes`

func (r *repoPG) scan(row pgx.Row) (*Record, error) {
	var g Record
	err := row.Scan(&g.ID, &g.PatientID, &g.RecordedAt, &g.WeightKg, &g.HeightCm,
		&g.WaistCm, &g.BodyFatPct, &g.Notes)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *repoPG) scanRows(rows pgx.Rows) ([]*Record, error) {
	defer rows.Close()
	var items []*Record
	for rows.Next() {
		g, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, g)
	}
	return items, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, g *Record) error {
	g.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO growth_record (id, patient_id, recorded_at, weight_kg, height_cm, waist_cm, body_fat_pct, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		g.ID, g.PatientID, g.RecordedAt, g.WeightKg, g.HeightCm, g.WaistCm, g.BodyFatPct, g.Notes)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+recordCols+` FROM growth_record WHERE id = $1`, id))
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM growth_record WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM growth_record WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+recordCols+` FROM growth_record
		WHERE patient_id = $1 ORDER BY recorded_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := r.scanRows(rows)
	return items, total, err
}

func (r *repoPG) Latest(ctx context.Context, patientID uuid.UUID) (*Record, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+recordCols+` FROM growth_record
		WHERE patient_id = $1 ORDER BY recorded_at DESC, id LIMIT 1`, patientID))
}

func (r *repoPG) RecentWeights(ctx context.Context, patientIDs []uuid.UUID, limit int) ([]*Record, error) {
	if len(patientIDs) == 0 {
		return nil, nil
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+recordCols+` FROM growth_record
		WHERE patient_id = ANY($1::uuid[]) ORDER BY recorded_at DESC LIMIT $2`, patientIDs, limit)
	if err != nil {
		return nil, err
	}
	return r.scanRows(rows)
}
