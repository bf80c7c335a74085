package demo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const insertBatchSize = 500

// Open connects gorm to the same database the pgx pool uses.
func Open(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	return db, nil
}

// Seeder writes generated batches and removes them again.
type Seeder struct {
	db     *gorm.DB
	domain string
	logger zerolog.Logger
	now    func() time.Time
}

func NewSeeder(db *gorm.DB, domain string, log zerolog.Logger) *Seeder {
	return &Seeder{
		db:     db,
		domain: strings.ToLower(strings.TrimSpace(domain)),
		logger: log.With().Str("component", "demo").Logger(),
		now:    time.Now,
	}
}

// Seed generates a batch for the nutritionist and persists it in one
// transaction.
func (s *Seeder) Seed(ctx context.Context, nutritionistID uuid.UUID, p Profile) (Result, error) {
	if nutritionistID == uuid.Nil {
		return Result{}, errors.New("nutritionist id is required")
	}
	p = p.withDefaults()
	if err := p.Validate(); err != nil {
		return Result{}, err
	}

	start := s.now()
	batch := NewGenerator(p.Seed, s.domain, start).Generate(nutritionistID, p)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := insert(tx, len(batch.Patients), &batch.Patients); err != nil {
			return fmt.Errorf("insert patients: %w", err)
		}
		if err := insert(tx, len(batch.Meals), &batch.Meals); err != nil {
			return fmt.Errorf("insert meals: %w", err)
		}
		if err := insert(tx, len(batch.Items), &batch.Items); err != nil {
			return fmt.Errorf("insert meal items: %w", err)
		}
		if err := insert(tx, len(batch.Audits), &batch.Audits); err != nil {
			return fmt.Errorf("insert meal audits: %w", err)
		}
		if err := insert(tx, len(batch.Weights), &batch.Weights); err != nil {
			return fmt.Errorf("insert growth records: %w", err)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	res := batch.result()
	res.Duration = time.Since(start)
	s.logger.Info().
		Str("nutritionist_id", nutritionistID.String()).
		Int("patients", res.Patients).
		Int("meals", res.Meals).
		Int("weights", res.Weights).
		Dur("duration", res.Duration).
		Msg("demo data seeded")
	return res, nil
}

// gorm rejects empty slices.
func insert(tx *gorm.DB, n int, rows any) error {
	if n == 0 {
		return nil
	}
	return tx.CreateInBatches(rows, insertBatchSize).Error
}

// emailPattern matches any address under the demo domain. The domain is
// stored lowercased, so seeded e-mails and the pattern agree.
func (s *Seeder) emailPattern() string {
	return "%@" + escapeLike(s.domain)
}

func escapeLike(v string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(v)
}

// Purge deletes the nutritionist's patients under the demo domain along with
// their meals, audits and weight records. It returns the number of patients
// removed.
func (s *Seeder) Purge(ctx context.Context, nutritionistID uuid.UUID) (int64, error) {
	if nutritionistID == uuid.Nil {
		return 0, errors.New("nutritionist id is required")
	}

	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ghosts := tx.Model(&PatientRow{}).
			Select("id").
			Where("nutritionist_id = ? AND lower(email) LIKE ?", nutritionistID, s.emailPattern())
		meals := tx.Model(&MealRow{}).Select("id").Where("patient_id IN (?)", ghosts)

		if err := tx.Where("meal_id IN (?)", meals).Delete(&MealItemRow{}).Error; err != nil {
			return fmt.Errorf("delete meal items: %w", err)
		}
		for _, model := range []any{&MealAuditRow{}, &MealRow{}, &GrowthRow{}} {
			if err := tx.Where("patient_id IN (?)", ghosts).Delete(model).Error; err != nil {
				return fmt.Errorf("delete demo rows: %w", err)
			}
		}

		res := tx.Where("nutritionist_id = ? AND lower(email) LIKE ?", nutritionistID, s.emailPattern()).
			Delete(&PatientRow{})
		if res.Error != nil {
			return fmt.Errorf("delete patients: %w", res.Error)
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info().
		Str("nutritionist_id", nutritionistID.String()).
		Int64("patients", deleted).
		Msg("demo data purged")
	return deleted, nil
}
