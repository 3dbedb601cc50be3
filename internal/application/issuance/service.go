package issuance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"certhub-backend/internal/application/ledger"
	"certhub-backend/internal/application/policies"
	"certhub-backend/internal/domain"
	"certhub-backend/internal/infrastructure/database"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const maxInsertAttempts = 5

type Service struct {
	DB     *gorm.DB
	Ledger *ledger.Service
	Policy policies.Policy

	NewNumber NumberFunc
	NewHash   HashFunc
}

func New(db *gorm.DB, l *ledger.Service, policy policies.Policy) *Service {
	if policy == nil {
		policy = policies.RolePolicy{}
	}
	return &Service{DB: db, Ledger: l, Policy: policy, NewNumber: NewCertificateNo, NewHash: NewQRHash}
}

type IssueInput struct {
	StudentID         uuid.UUID
	TrainingProgramID uuid.UUID
	TemplateID        uuid.UUID
	IssueDate         time.Time
	Language          string
	StartDate         *time.Time
	EndDate           *time.Time
	DurationHours     *int
}

type ListPage struct {
	Items []domain.Certificate `json:"items"`
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}

func (in *IssueInput) validate() error {
	if in.StudentID == uuid.Nil {
		return domain.Invalid("student_id", "required")
	}
	if in.TrainingProgramID == uuid.Nil {
		return domain.Invalid("training_program_id", "required")
	}
	if in.TemplateID == uuid.Nil {
		return domain.Invalid("template_id", "required")
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return domain.Invalid("end_date", "must not be before start_date")
	}
	if in.DurationHours != nil && *in.DurationHours < 0 {
		return domain.Invalid("duration_hours", "must not be negative")
	}
	in.Language = strings.ToLower(strings.TrimSpace(in.Language))
	if in.Language == "" {
		in.Language = domain.FallbackLanguage
	}
	if in.IssueDate.IsZero() {
		in.IssueDate = time.Now().UTC()
	}
	return nil
}

// Issue charges the program's current price and writes the certificate in one
// DB transaction. Either both happen or neither does.
func (s *Service) Issue(ctx context.Context, actor policies.Actor, in IssueInput) (*domain.Certificate, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var cert *domain.Certificate
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var program domain.TrainingProgram
		if err := tx.Where("program_id = ?", in.TrainingProgramID).First(&program).Error; err != nil {
			return notFound(err, "training program")
		}
		if !program.IsActive {
			return domain.Invalid("training_program_id", "training program is not active")
		}
		cost := program.DefaultPrice.Round(2)

		var student domain.Student
		if err := tx.Where("student_id = ?", in.StudentID).First(&student).Error; err != nil {
			return notFound(err, "student")
		}
		if !s.Policy.CanAccessOwnedBy(actor, student.UserID) {
			return domain.ErrForbidden
		}

		var tpl domain.CertificateTemplate
		if err := tx.Preload("Dealers").Where("template_id = ?", in.TemplateID).First(&tpl).Error; err != nil {
			return notFound(err, "template")
		}
		if !s.Policy.CanUseTemplate(actor, &tpl) {
			return domain.ErrForbidden
		}

		if !s.Policy.BalanceExempt(actor) && cost.IsPositive() {
			if _, err := s.Ledger.DebitForExpense(tx, actor, actor.UserID, cost, "Certificate issuance", map[string]interface{}{
				"student_id":          student.StudentID.String(),
				"training_program_id": program.ProgramID.String(),
			}); err != nil {
				return err
			}
		}

		c := &domain.Certificate{
			StudentID:           student.StudentID,
			TrainingProgramID:   program.ProgramID,
			TemplateID:          tpl.TemplateID,
			IssuedBy:            actor.UserID,
			IssueDate:           in.IssueDate,
			Status:              domain.CertStatusApproved,
			Cost:                cost,
			CertificateLanguage: in.Language,
			StartDate:           in.StartDate,
			EndDate:             in.EndDate,
			DurationHours:       in.DurationHours,
		}
		if err := s.insertWithRetry(tx, c); err != nil {
			return err
		}
		cert = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("certificate_no", cert.CertificateNo).
		Str("issued_by", actor.UserID.String()).
		Str("cost", cert.Cost.StringFixed(2)).
		Msg("certificate issued")
	return cert, nil
}

// insertWithRetry runs each attempt in a savepoint so a unique violation
// does not abort the enclosing transaction.
func (s *Service) insertWithRetry(tx *gorm.DB, c *domain.Certificate) error {
	for attempt := 1; attempt <= maxInsertAttempts; attempt++ {
		no, err := s.NewNumber(c.IssueDate)
		if err != nil {
			return err
		}
		hash, err := s.NewHash()
		if err != nil {
			return err
		}
		c.CertificateID = uuid.Nil
		c.CertificateNo = no
		c.QRCodeHash = hash

		err = tx.Transaction(func(sp *gorm.DB) error {
			return sp.Create(c).Error
		})
		if err == nil {
			return nil
		}
		if !database.IsUniqueViolation(err) {
			return err
		}
		log.Warn().Int("attempt", attempt).Str("certificate_no", no).Msg("certificate key collision, retrying")
	}
	return domain.ErrDuplicateKeyCollision
}

// Get returns a certificate with its student and program when the actor may see it.
func (s *Service) Get(ctx context.Context, actor policies.Actor, id uuid.UUID) (*domain.Certificate, error) {
	var c domain.Certificate
	if err := s.DB.WithContext(ctx).Preload("Student").Preload("Program").Where("certificate_id = ?", id).First(&c).Error; err != nil {
		return nil, notFound(err, "certificate")
	}
	if !s.Policy.CanAccessOwnedBy(actor, c.IssuedBy) && (c.Student == nil || !s.Policy.CanAccessOwnedBy(actor, c.Student.UserID)) {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

// List returns the actor's certificates, newest first. Admins see all.
func (s *Service) List(ctx context.Context, actor policies.Actor, page, limit int) (*ListPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	q := s.DB.WithContext(ctx).Model(&domain.Certificate{})
	if !actor.IsAdmin() {
		q = q.Where("issued_by = ?", actor.UserID)
	}

	out := &ListPage{Items: []domain.Certificate{}, Page: page, Limit: limit}
	if err := q.Session(&gorm.Session{}).Count(&out.Total).Error; err != nil {
		return nil, err
	}
	if err := q.Preload("Student").Preload("Program").Order(`"createdAt" DESC`).Offset((page - 1) * limit).Limit(limit).Find(&out.Items).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return err
}
