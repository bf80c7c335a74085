package notification

import (
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID        uuid.UUID      `db:"id" json:"id"`
	UserID    uuid.UUID      `db:"user_id" json:"user_id"`
	Type      string         `db:"type" json:"type"`
	Content   map[string]any `db:"content" json:"content"`
	Read      bool           `db:"read" json:"read"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}
