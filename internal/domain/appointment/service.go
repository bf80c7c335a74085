package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nutrio/nutrio/internal/domain/patient"
	"github.com/nutrio/nutrio/internal/platform/auth"
	"github.com/nutrio/nutrio/internal/platform/db"
	"github.com/nutrio/nutrio/internal/platform/websocket"
	"github.com/nutrio/nutrio/pkg/apperr"
)

const tableName = "appointment"

// Patients is the slice of the patient service appointments depend on.
type Patients interface {
	Authorize(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	AuthorizeOwner(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	GetMine(ctx context.Context) (*patient.Patient, error)
}

type Service struct {
	repo     Repository
	patients Patients
	pub      websocket.Publisher
}

func NewService(repo Repository, patients Patients, pub websocket.Publisher) *Service {
	if pub == nil {
		pub = websocket.Nop{}
	}
	return &Service{repo: repo, patients: patients, pub: pub}
}

func normalize(a *Appointment) error {
	if a.ScheduledAt.IsZero() {
		return apperr.Invalid("scheduled_at is required")
	}
	if !validTypes[a.Type] {
		return apperr.Invalid("invalid appointment type: %s", a.Type)
	}
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if !validStatuses[a.Status] {
		return apperr.Invalid("invalid appointment status: %s", a.Status)
	}
	if a.DurationMinutes == 0 {
		a.DurationMinutes = DefaultDurationMinutes
	}
	if a.DurationMinutes < 0 || a.DurationMinutes > 24*60 {
		return apperr.Invalid("duration_minutes must be between 1 and 1440")
	}
	a.ScheduledAt = a.ScheduledAt.UTC()
	return nil
}

func (s *Service) publish(ctx context.Context, action string, a *Appointment) {
	_ = websocket.PublishTableChange(ctx, s.pub, action, tableName, "nutritionist_id", a.NutritionistID.String(), a.ID.String())
	_ = websocket.PublishTableChange(ctx, s.pub, action, tableName, "patient_id", a.PatientID.String(), a.ID.String())
}

func (s *Service) Create(ctx context.Context, a *Appointment) error {
	p, err := s.patients.AuthorizeOwner(ctx, a.PatientID)
	if err != nil {
		return err
	}
	if err := normalize(a); err != nil {
		return err
	}
	a.NutritionistID = p.NutritionistID
	if err := s.repo.Create(ctx, a); err != nil {
		return err
	}
	s.publish(ctx, websocket.EventInsert, a)
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.NotFound("appointment")
		}
		return nil, err
	}
	if _, err := s.patients.Authorize(ctx, a.PatientID); err != nil {
		return nil, apperr.NotFound("appointment")
	}
	return a, nil
}

func (s *Service) getOwned(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.patients.AuthorizeOwner(ctx, a.PatientID); err != nil {
		return nil, err
	}
	return a, nil
}

// Update rewrites schedule, type and notes. Status changes of a terminal
// appointment are rejected.
func (s *Service) Update(ctx context.Context, a *Appointment) error {
	existing, err := s.getOwned(ctx, a.ID)
	if err != nil {
		return err
	}
	if err := normalize(a); err != nil {
		return err
	}
	if existing.IsTerminal() && a.Status != existing.Status {
		return apperr.Conflict("appointment is %s and cannot change status", existing.Status)
	}
	a.NutritionistID = existing.NutritionistID
	a.PatientID = existing.PatientID
	a.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, a); err != nil {
		return err
	}
	s.publish(ctx, websocket.EventUpdate, a)
	return nil
}

// UpdateStatus moves an appointment to status. Completed, cancelled and
// no-show appointments are final.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*Appointment, error) {
	if !validStatuses[status] {
		return nil, apperr.Invalid("invalid appointment status: %s", status)
	}
	a, err := s.getOwned(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == status {
		return a, nil
	}
	if a.IsTerminal() {
		return nil, apperr.Conflict("appointment is %s and cannot change status", a.Status)
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	a.Status = status
	a.UpdatedAt = time.Now().UTC()
	s.publish(ctx, websocket.EventUpdate, a)
	return a, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	a, err := s.getOwned(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, websocket.EventDelete, a)
	return nil
}

// ListForNutritionist lists the calling nutritionist's agenda in [from, to).
func (s *Service) ListForNutritionist(ctx context.Context, from, to time.Time, limit, offset int) ([]*Appointment, int, error) {
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return nil, 0, apperr.Invalid("from must be before to")
	}
	return s.repo.ListByNutritionist(ctx, auth.UserIDFromContext(ctx), from, to, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	if _, err := s.patients.Authorize(ctx, patientID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// ListMine lists the appointments of the calling patient user.
func (s *Service) ListMine(ctx context.Context, limit, offset int) ([]*Appointment, int, error) {
	p, err := s.patients.GetMine(ctx)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.ListByPatient(ctx, p.ID, limit, offset)
}
