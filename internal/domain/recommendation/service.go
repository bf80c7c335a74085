package recommendation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nutrio/nutrio/internal/domain/patient"
	"github.com/nutrio/nutrio/internal/platform/auth"
	"github.com/nutrio/nutrio/internal/platform/db"
	"github.com/nutrio/nutrio/pkg/apperr"
)

const NotificationCreated = "recommendation_created"

// Patients is the slice of the patient service recommendations depend on.
type Patients interface {
	Authorize(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	AuthorizeOwner(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// Notifier delivers an inbox notification to a user.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, typ string, content map[string]any) error
}

type Service struct {
	repo     Repository
	patients Patients
	notifier Notifier
	now      func() time.Time
}

func NewService(repo Repository, patients Patients, notifier Notifier) *Service {
	return &Service{repo: repo, patients: patients, notifier: notifier, now: time.Now}
}

// Create records a pending recommendation and notifies the patient's user,
// when the patient has one.
func (s *Service) Create(ctx context.Context, r *Recommendation) error {
	p, err := s.patients.AuthorizeOwner(ctx, r.PatientID)
	if err != nil {
		return err
	}
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return apperr.Invalid("title is required")
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return apperr.Invalid("confidence must be between 0 and 1")
	}
	r.NutritionistID = p.NutritionistID
	r.Status = StatusPending
	r.DecidedAt, r.AppliedAt = nil, nil

	if err := s.repo.Create(ctx, r); err != nil {
		return err
	}

	if p.UserID != nil && s.notifier != nil {
		content := map[string]any{
			"recommendation_id": r.ID,
			"patient_id":        p.ID,
			"title":             r.Title,
		}
		if err := s.notifier.Notify(ctx, *p.UserID, NotificationCreated, content); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("recommendation_id", r.ID.String()).Msg("recommendation notification failed")
		}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Recommendation, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.NotFound("recommendation")
		}
		return nil, err
	}
	if _, err := s.patients.Authorize(ctx, r.PatientID); err != nil {
		return nil, apperr.NotFound("recommendation")
	}
	return r, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, status string, limit, offset int) ([]*Recommendation, int, error) {
	if status != "" && status != StatusPending && status != StatusAccepted &&
		status != StatusDismissed && status != StatusApplied {
		return nil, 0, apperr.Invalid("invalid status: %s", status)
	}
	if _, err := s.patients.Authorize(ctx, patientID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListByPatient(ctx, patientID, status, limit, offset)
}

// Transition moves a recommendation along its lifecycle:
// pending -> accepted | dismissed, accepted -> applied.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, to string) (*Recommendation, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if auth.RoleFromContext(ctx) == auth.RolePatient {
		return nil, apperr.Forbidden("only the nutritionist can decide on a recommendation")
	}
	if !CanTransition(r.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, to)
	}

	now := s.now().UTC()
	switch to {
	case StatusAccepted, StatusDismissed:
		r.DecidedAt = &now
	case StatusApplied:
		r.AppliedAt = &now
	}
	r.Status = to
	if err := s.repo.UpdateStatus(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) Accept(ctx context.Context, id uuid.UUID) (*Recommendation, error) {
	return s.Transition(ctx, id, StatusAccepted)
}

func (s *Service) Dismiss(ctx context.Context, id uuid.UUID) (*Recommendation, error) {
	return s.Transition(ctx, id, StatusDismissed)
}

func (s *Service) Apply(ctx context.Context, id uuid.UUID) (*Recommendation, error) {
	return s.Transition(ctx, id, StatusApplied)
}
