package patient

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/nutrio/nutrio/internal/platform/auth"
	"github.com/nutrio/nutrio/internal/platform/db"
	"github.com/nutrio/nutrio/pkg/apperr"
)

var validSexes = map[string]bool{"female": true, "male": true, "other": true}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func normalize(p *Patient) error {
	p.FullName = strings.TrimSpace(p.FullName)
	if p.FullName == "" {
		return apperr.Invalid("full_name is required")
	}
	if p.Email != nil {
		e := strings.ToLower(strings.TrimSpace(*p.Email))
		if e == "" {
			p.Email = nil
		} else {
			p.Email = &e
		}
	}
	if p.Sex != nil && !validSexes[*p.Sex] {
		return apperr.Invalid("invalid sex: %s", *p.Sex)
	}
	if p.HeightCm != nil && (*p.HeightCm <= 0 || *p.HeightCm > 300) {
		return apperr.Invalid("height_cm must be between 0 and 300")
	}
	if p.WeightKg != nil && (*p.WeightKg <= 0 || *p.WeightKg > 700) {
		return apperr.Invalid("weight_kg must be between 0 and 700")
	}
	return nil
}

// Create registers a patient under the calling nutritionist.
func (s *Service) Create(ctx context.Context, p *Patient) error {
	owner := auth.UserIDFromContext(ctx)
	if owner == uuid.Nil {
		return apperr.Forbidden("authentication required")
	}
	if err := normalize(p); err != nil {
		return err
	}
	p.NutritionistID = owner
	p.Active = true
	return s.repo.Create(ctx, p)
}

// Authorize loads a patient the caller may access: its nutritionist, the
// patient's own user, or an admin.
func (s *Service) Authorize(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.NotFound("patient")
		}
		return nil, err
	}

	uid := auth.UserIDFromContext(ctx)
	switch auth.RoleFromContext(ctx) {
	case auth.RoleAdmin:
		return p, nil
	case auth.RoleNutritionist:
		if p.NutritionistID == uid {
			return p, nil
		}
	case auth.RolePatient:
		if p.UserID != nil && *p.UserID == uid {
			return p, nil
		}
	}
	return nil, apperr.NotFound("patient")
}

// AuthorizeOwner is Authorize restricted to the owning nutritionist (or admin).
func (s *Service) AuthorizeOwner(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.Authorize(ctx, id)
	if err != nil {
		return nil, err
	}
	if auth.RoleFromContext(ctx) == auth.RolePatient {
		return nil, apperr.Forbidden("only the nutritionist can change this patient")
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.Authorize(ctx, id)
}

// GetMine returns the patient record linked to the calling user.
func (s *Service) GetMine(ctx context.Context) (*Patient, error) {
	p, err := s.repo.GetByUserID(ctx, auth.UserIDFromContext(ctx))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.NotFound("patient")
		}
		return nil, err
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	existing, err := s.AuthorizeOwner(ctx, p.ID)
	if err != nil {
		return err
	}
	if err := normalize(p); err != nil {
		return err
	}
	p.NutritionistID = existing.NutritionistID
	p.UserID = existing.UserID
	p.CreatedAt = existing.CreatedAt
	return s.repo.Update(ctx, p)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.AuthorizeOwner(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Patient, int, error) {
	f.Search = strings.TrimSpace(f.Search)
	return s.repo.ListByNutritionist(ctx, auth.UserIDFromContext(ctx), f, limit, offset)
}

// ListRoster returns the active patients of a nutritionist. Unpaginated.
func (s *Service) ListRoster(ctx context.Context, nutritionistID uuid.UUID) ([]RosterEntry, error) {
	if nutritionistID == uuid.Nil {
		return nil, nil
	}
	return s.repo.ListRoster(ctx, nutritionistID)
}

func (s *Service) SetWeight(ctx context.Context, id uuid.UUID, weightKg float64) error {
	return s.repo.SetWeight(ctx, id, weightKg)
}

func (s *Service) LinkUser(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.LinkUser(ctx, id, userID)
}
