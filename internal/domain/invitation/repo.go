package invitation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, inv *Invitation) error
	// FindPending returns an unaccepted, unexpired invitation for email
	// (case-insensitive).
	FindPending(ctx context.Context, email string, now time.Time) (*Invitation, error)
	GetByToken(ctx context.Context, token string) (*Invitation, error)
	MarkAccepted(ctx context.Context, id uuid.UUID, at time.Time) error
}
