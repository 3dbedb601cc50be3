package dealers

import (
	"context"
	"errors"
	"strings"

	"certhub-backend/internal/application/policies"
	"certhub-backend/internal/domain"
	"certhub-backend/internal/infrastructure/database"
	"certhub-backend/internal/pkg/constants"
	"certhub-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Service struct {
	DB     *gorm.DB
	Policy policies.Policy
}

type RegisterInput struct {
	Fullname    string `json:"fullname"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	CompanyName string `json:"company_name"`
	Phone       string `json:"phone"`
}

// UpdateInput carries the admin-controlled account fields. Nil fields are left alone.
type UpdateInput struct {
	IsApproved   *bool `json:"is_approved"`
	IsActive     *bool `json:"is_active"`
	StudentQuota *int  `json:"student_quota"`
}

// Register creates a dealer account awaiting approval with a zero balance and quota.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	fullname := strings.Join(strings.Fields(in.Fullname), " ")
	if !validation.IsValidEmail(email) {
		return nil, domain.Invalid("email", "invalid email format")
	}
	if !validation.IsValidPassword(in.Password) {
		return nil, domain.Invalid("password", "at least 8 characters with a letter, a number and a symbol")
	}
	if !validation.IsValidFullname(fullname) {
		return nil, domain.Invalid("fullname", "only letters, spaces, hyphens and apostrophes allowed")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), 10)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		Fullname:     fullname,
		Email:        email,
		PasswordHash: string(hash),
		Role:         constants.Dealer,
		CompanyName:  strings.TrimSpace(in.CompanyName),
		Phone:        strings.TrimSpace(in.Phone),
		IsApproved:   false,
		IsActive:     true,
	}
	if err := s.DB.WithContext(ctx).Create(u).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, domain.Invalid("email", "already registered")
		}
		return nil, err
	}
	log.Info().Str("user_id", u.UserID.String()).Msg("dealer registered, awaiting approval")
	return u, nil
}

func (s *Service) Approve(ctx context.Context, actor policies.Actor, dealerID uuid.UUID) (*domain.User, error) {
	approved := true
	return s.Update(ctx, actor, dealerID, UpdateInput{IsApproved: &approved})
}

func (s *Service) SetQuota(ctx context.Context, actor policies.Actor, dealerID uuid.UUID, quota int) (*domain.User, error) {
	return s.Update(ctx, actor, dealerID, UpdateInput{StudentQuota: &quota})
}

func (s *Service) SetActive(ctx context.Context, actor policies.Actor, dealerID uuid.UUID, active bool) (*domain.User, error) {
	return s.Update(ctx, actor, dealerID, UpdateInput{IsActive: &active})
}

// Update applies in to a dealer. Balance is never touched here.
func (s *Service) Update(ctx context.Context, actor policies.Actor, dealerID uuid.UUID, in UpdateInput) (*domain.User, error) {
	if !s.canManage(actor) {
		return nil, domain.ErrForbidden
	}
	fields := map[string]interface{}{}
	if in.IsApproved != nil {
		fields["is_approved"] = *in.IsApproved
	}
	if in.IsActive != nil {
		fields["is_active"] = *in.IsActive
	}
	if in.StudentQuota != nil {
		if *in.StudentQuota < 0 {
			return nil, domain.Invalid("student_quota", "must not be negative")
		}
		fields["student_quota"] = *in.StudentQuota
	}
	if len(fields) == 0 {
		return nil, domain.Invalid("", "nothing to update")
	}

	var u domain.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND role = ?", dealerID, constants.Dealer).First(&u).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if err := tx.Model(&u).Updates(fields).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", dealerID).First(&u).Error
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("user_id", dealerID.String()).Interface("fields", fields).Str("by", actor.UserID.String()).Msg("dealer updated")
	return &u, nil
}

// List returns every dealer, pending approvals first.
func (s *Service) List(ctx context.Context, actor policies.Actor) ([]domain.User, error) {
	if !s.canManage(actor) {
		return nil, domain.ErrForbidden
	}
	var out []domain.User
	err := s.DB.WithContext(ctx).Where("role = ?", constants.Dealer).Order("is_approved ASC").Order(`"createdAt" DESC`).Find(&out).Error
	return out, err
}

func (s *Service) canManage(actor policies.Actor) bool {
	return s.Policy.CanManageCatalog(actor) && constants.AllowedRole(constants.ManageDealers, actor.Role)
}
