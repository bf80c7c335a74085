package invitation

import (
	"context"
	"time"

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

const invitationCols = `id, nutritionist_id, patient_id, email, token, expires_at, accepted_at, created_at`

func (r *repoPG) scan(row pgx.Row) (*Invitation, error) {
	var inv Invitation
	err := row.Scan(&inv.ID, &inv.NutritionistID, &inv.PatientID, &inv.Email, &inv.Token,
		&inv.ExpiresAt, &inv.AcceptedAt, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *repoPG) Create(ctx context.Context, inv *Invitation) error {
	inv.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient_invitation (id, nutritionist_id, patient_id, email, token, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		inv.ID, inv.NutritionistID, inv.PatientID, inv.Email, inv.Token, inv.ExpiresAt,
	).Scan(&inv.CreatedAt)
}

func (r *repoPG) FindPending(ctx context.Context, email string, now time.Time) (*Invitation, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+invitationCols+` FROM patient_invitation
		WHERE lower(email) = lower($1) AND accepted_at IS NULL AND expires_at > $2
		ORDER BY created_at DESC LIMIT 1`, email, now))
}

func (r *repoPG) GetByToken(ctx context.Context, token string) (*Invitation, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+invitationCols+` FROM patient_invitation WHERE token = $1`, token))
}

func (r *repoPG) MarkAccepted(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE patient_invitation SET accepted_at = $2 WHERE id = $1 AND accepted_at IS NULL`, id, at)
	return err
}
