package programs

import (
	"context"
	"errors"
	"strings"

	"certhub-backend/internal/application/ledger"
	"certhub-backend/internal/application/policies"
	"certhub-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Service struct {
	DB     *gorm.DB
	Policy policies.Policy
}

type CreateInput struct {
	Name          map[string]string `json:"name"`
	DurationHours int               `json:"duration_hours"`
	DefaultPrice  decimal.Decimal   `json:"default_price"`
}

func (s *Service) Create(ctx context.Context, actor policies.Actor, in CreateInput) (*domain.TrainingProgram, error) {
	if !s.Policy.CanManageCatalog(actor) {
		return nil, domain.ErrForbidden
	}
	name := domain.LocalizedName{}
	for lang, v := range in.Name {
		lang = strings.ToLower(strings.TrimSpace(lang))
		v = strings.TrimSpace(v)
		if lang != "" && v != "" {
			name[lang] = v
		}
	}
	if len(name) == 0 {
		return nil, domain.Invalid("name", "at least one language entry required")
	}
	if in.DurationHours < 0 {
		return nil, domain.Invalid("duration_hours", "must not be negative")
	}
	price, err := normalizePrice(in.DefaultPrice)
	if err != nil {
		return nil, err
	}

	p := &domain.TrainingProgram{Name: name, DurationHours: in.DurationHours, DefaultPrice: price, IsActive: true}
	if err := s.DB.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	log.Info().Str("program_id", p.ProgramID.String()).Str("price", price.StringFixed(2)).Msg("training program created")
	return p, nil
}

// UpdatePrice changes the price charged by future issuances. Issued
// certificates keep their cost snapshot.
func (s *Service) UpdatePrice(ctx context.Context, actor policies.Actor, programID uuid.UUID, price decimal.Decimal) (*domain.TrainingProgram, error) {
	if !s.Policy.CanManageCatalog(actor) {
		return nil, domain.ErrForbidden
	}
	price, err := normalizePrice(price)
	if err != nil {
		return nil, err
	}
	var p domain.TrainingProgram
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("program_id = ?", programID).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		p.DefaultPrice = price
		return tx.Model(&p).Update("default_price", price).Error
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("program_id", programID.String()).Str("price", price.StringFixed(2)).Msg("training program price updated")
	return &p, nil
}

// List returns active programs. Admins also see inactive ones.
func (s *Service) List(ctx context.Context, actor policies.Actor) ([]domain.TrainingProgram, error) {
	q := s.DB.WithContext(ctx).Model(&domain.TrainingProgram{})
	if !actor.IsAdmin() {
		q = q.Where("is_active = ?", true)
	}
	var out []domain.TrainingProgram
	if err := q.Order(`"createdAt" ASC`).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Zero is allowed for free programs.
func normalizePrice(p decimal.Decimal) (decimal.Decimal, error) {
	if p.IsNegative() {
		return decimal.Zero, domain.Invalid("default_price", "must not be negative")
	}
	if p.IsZero() {
		return decimal.Zero, nil
	}
	return ledger.NormalizeAmount(p)
}
