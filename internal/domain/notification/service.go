package notification

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nutrio/nutrio/internal/platform/auth"
	"github.com/nutrio/nutrio/internal/platform/websocket"
	"github.com/nutrio/nutrio/pkg/apperr"
)

// Service manages per-user inboxes. Every change publishes a content-free
// notifications.changed event on the owner's topic; clients refetch.
type Service struct {
	repo Repository
	pub  websocket.Publisher
}

func NewService(repo Repository, pub websocket.Publisher) *Service {
	if pub == nil {
		pub = websocket.Nop{}
	}
	return &Service{repo: repo, pub: pub}
}

func (s *Service) changed(ctx context.Context, userID uuid.UUID) {
	_ = s.pub.Publish(ctx, websocket.Event{
		Type:      websocket.EventNotificationsChanged,
		Topic:     websocket.NotificationsTopic(userID.String()),
		Table:     "notification",
		Timestamp: time.Now().UTC(),
	})
}

func (s *Service) Create(ctx context.Context, n *Notification) error {
	n.Type = strings.TrimSpace(n.Type)
	if n.Type == "" {
		return apperr.Invalid("type is required")
	}
	if n.UserID == uuid.Nil {
		return apperr.Invalid("user_id is required")
	}
	if n.Content == nil {
		n.Content = map[string]any{}
	}
	n.Read = false
	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}
	s.changed(ctx, n.UserID)
	return nil
}

// Notify creates an unread notification for userID.
func (s *Service) Notify(ctx context.Context, userID uuid.UUID, typ string, content map[string]any) error {
	return s.Create(ctx, &Notification{UserID: userID, Type: typ, Content: content})
}

func currentUser(ctx context.Context) (uuid.UUID, error) {
	uid := auth.UserIDFromContext(ctx)
	if uid == uuid.Nil {
		return uuid.Nil, apperr.Forbidden("authentication required")
	}
	return uid, nil
}

// List returns the caller's notifications, newest first.
func (s *Service) List(ctx context.Context, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	uid, err := currentUser(ctx)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, uid, unreadOnly, limit, offset)
}

func (s *Service) UnreadCount(ctx context.Context) (int, error) {
	uid, err := currentUser(ctx)
	if err != nil {
		return 0, err
	}
	return s.repo.UnreadCount(ctx, uid)
}

// MarkRead marks ids (all of the caller's rows when empty) as read.
func (s *Service) MarkRead(ctx context.Context, ids []uuid.UUID) (int64, error) {
	uid, err := currentUser(ctx)
	if err != nil {
		return 0, err
	}
	n, err := s.repo.MarkRead(ctx, uid, ids)
	if err != nil {
		return 0, err
	}
	s.changed(ctx, uid)
	return n, nil
}

func (s *Service) DeleteRead(ctx context.Context) (int64, error) {
	uid, err := currentUser(ctx)
	if err != nil {
		return 0, err
	}
	n, err := s.repo.DeleteRead(ctx, uid)
	if err != nil {
		return 0, err
	}
	s.changed(ctx, uid)
	return n, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	uid, err := currentUser(ctx)
	if err != nil {
		return err
	}
	n, err := s.repo.Delete(ctx, uid, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("notification")
	}
	s.changed(ctx, uid)
	return nil
}
