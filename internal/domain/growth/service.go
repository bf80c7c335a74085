package growth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nutrio/nutrio/internal/domain/patient"
	"github.com/nutrio/nutrio/internal/platform/db"
	"github.com/nutrio/nutrio/internal/platform/websocket"
	"github.com/nutrio/nutrio/pkg/apperr"
)

const tableName = "growth_record"

// Patients is the slice of the patient service growth records depend on.
type Patients interface {
	Authorize(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	SetWeight(ctx context.Context, id uuid.UUID, weightKg float64) error
}

type Service struct {
	repo     Repository
	patients Patients
	tx       db.Transactor
	pub      websocket.Publisher
	now      func() time.Time
}

func NewService(repo Repository, patients Patients, tx db.Transactor, pub websocket.Publisher) *Service {
	if pub == nil {
		pub = websocket.Nop{}
	}
	return &Service{repo: repo, patients: patients, tx: tx, pub: pub, now: time.Now}
}

func validate(r *Record) error {
	if r.WeightKg <= 0 || r.WeightKg > 700 {
		return apperr.Invalid("weight_kg must be greater than 0")
	}
	if r.HeightCm != nil && (*r.HeightCm <= 0 || *r.HeightCm > 300) {
		return apperr.Invalid("height_cm must be between 0 and 300")
	}
	if r.WaistCm != nil && *r.WaistCm <= 0 {
		return apperr.Invalid("waist_cm must be greater than 0")
	}
	if r.BodyFatPct != nil && (*r.BodyFatPct < 0 || *r.BodyFatPct > 100) {
		return apperr.Invalid("body_fat_pct must be between 0 and 100")
	}
	return nil
}

// Create stores a measurement. When it is the patient's most recent one the
// patient's current weight follows it.
func (s *Service) Create(ctx context.Context, r *Record) error {
	if _, err := s.patients.Authorize(ctx, r.PatientID); err != nil {
		return err
	}
	if err := validate(r); err != nil {
		return err
	}
	if r.RecordedAt.IsZero() {
		r.RecordedAt = s.now().UTC()
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, r); err != nil {
			return err
		}
		return s.syncWeight(ctx, r.PatientID)
	})
	if err != nil {
		return err
	}
	_ = websocket.PublishTableChange(ctx, s.pub, websocket.EventInsert, tableName, "patient_id", r.PatientID.String(), r.ID.String())
	return nil
}

func (s *Service) syncWeight(ctx context.Context, patientID uuid.UUID) error {
	latest, err := s.repo.Latest(ctx, patientID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil
		}
		return err
	}
	return s.patients.SetWeight(ctx, patientID, latest.WeightKg)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.NotFound("growth record")
		}
		return nil, err
	}
	if _, err := s.patients.Authorize(ctx, r.PatientID); err != nil {
		return nil, apperr.NotFound("growth record")
	}
	return r, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	r, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}
		return s.syncWeight(ctx, r.PatientID)
	})
	if err != nil {
		return err
	}
	_ = websocket.PublishTableChange(ctx, s.pub, websocket.EventDelete, tableName, "patient_id", r.PatientID.String(), r.ID.String())
	return nil
}

// ListByPatient returns the patient's records, newest first.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	if _, err := s.patients.Authorize(ctx, patientID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// RecentWeights is the weight feed of the activity aggregator. Callers scope
// patientIDs themselves.
func (s *Service) RecentWeights(ctx context.Context, patientIDs []uuid.UUID, limit int) ([]*Record, error) {
	return s.repo.RecentWeights(ctx, patientIDs, limit)
}
