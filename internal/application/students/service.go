package students

import (
	"context"
	"fmt"
	"strings"

	"certhub-backend/internal/application/ledger"
	"certhub-backend/internal/application/policies"
	"certhub-backend/internal/domain"
	"certhub-backend/internal/infrastructure/database"
	"certhub-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type Service struct {
	DB     *gorm.DB
	Policy policies.Policy
}

type CreateInput struct {
	// OwnerID lets an admin enroll on a dealer's behalf. Ignored for dealers.
	OwnerID    *uuid.UUID `json:"owner_id"`
	NationalID string     `json:"national_id" validate:"required"`
	FirstName  string     `json:"first_name" validate:"required,max=100"`
	LastName   string     `json:"last_name" validate:"required,max=100"`
	Email      string     `json:"email" validate:"omitempty,email"`
	Phone      string     `json:"phone" validate:"omitempty,max=32"`
}

// Create enrolls a student under the actor (or the given owner for admins).
// Dealers are capped at their student_quota.
func (s *Service) Create(ctx context.Context, actor policies.Actor, in CreateInput) (*domain.Student, error) {
	in.NationalID = strings.TrimSpace(in.NationalID)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if !validation.IsValidNationalID(in.NationalID) {
		return nil, domain.Invalid("national_id", "must be 11 digits")
	}

	ownerID := actor.UserID
	if in.OwnerID != nil && *in.OwnerID != uuid.Nil {
		if !s.Policy.CanAccessOwnedBy(actor, *in.OwnerID) {
			return nil, domain.ErrForbidden
		}
		ownerID = *in.OwnerID
	}

	st := &domain.Student{
		UserID:     ownerID,
		NationalID: in.NationalID,
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		Email:      in.Email,
		Phone:      strings.TrimSpace(in.Phone),
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owner, err := ledger.LockUser(tx, ownerID)
		if err != nil {
			return err
		}
		if !s.Policy.BalanceExempt(policies.Actor{UserID: owner.UserID, Role: owner.Role}) {
			var n int64
			if err := tx.Model(&domain.Student{}).Where("user_id = ?", ownerID).Count(&n).Error; err != nil {
				return err
			}
			if n >= int64(owner.StudentQuota) {
				return fmt.Errorf("%d of %d students: %w", n, owner.StudentQuota, domain.ErrQuotaExceeded)
			}
		}
		if err := tx.Create(st).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return domain.Invalid("national_id", "already registered")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("student_id", st.StudentID.String()).Str("owner_id", ownerID.String()).Msg("student created")
	return st, nil
}

// List returns the actor's students; admins see every student.
func (s *Service) List(ctx context.Context, actor policies.Actor) ([]domain.Student, error) {
	q := s.DB.WithContext(ctx).Model(&domain.Student{})
	if !actor.IsAdmin() {
		q = q.Where("user_id = ?", actor.UserID)
	}
	var out []domain.Student
	if err := q.Order(`"createdAt" DESC`).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
