package recommendation

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

const recCols = `id, patient_id, nutritionist_id, title, rationale, confidence, status,
	decided_at, applied_at, created_at, updated_at`

func (r *repoPG) scan(row pgx.Row) (*Recommendation, error) {
	var rec Recommendation
	err := row.Scan(&rec.ID, &rec.PatientID, &rec.NutritionistID, &rec.Title, &rec.Rationale,
		&rec.Confidence, &rec.Status, &rec.DecidedAt, &rec.AppliedAt, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repoPG) Create(ctx context.Context, rec *Recommendation) error {
	rec.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO clinical_recommendation (id, patient_id, nutritionist_id, title, rationale,
			confidence, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		rec.ID, rec.PatientID, rec.NutritionistID, rec.Title, rec.Rationale, rec.Confidence, rec.Status,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Recommendation, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+recCols+` FROM clinical_recommendation WHERE id = $1`, id))
}

func (r *repoPG) UpdateStatus(ctx context.Context, rec *Recommendation) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE clinical_recommendation SET status=$2, decided_at=$3, applied_at=$4, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		rec.ID, rec.Status, rec.DecidedAt, rec.AppliedAt,
	).Scan(&rec.UpdatedAt)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, status string, limit, offset int) ([]*Recommendation, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM clinical_recommendation
		WHERE patient_id = $1 AND ($2 = '' OR status = $2)`, patientID, status).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `SELECT `+recCols+` FROM clinical_recommendation
		WHERE patient_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`, patientID, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Recommendation
	for rows.Next() {
		rec, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, total, rows.Err()
}
