package verification

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"certhub-backend/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	cachePrefix = "verify:"
	cacheTTL    = 5 * time.Minute
)

// VerifiedCertificate is the public view of an issued certificate.
type VerifiedCertificate struct {
	CertificateNo string               `json:"certificate_no"`
	Status        string               `json:"status"`
	IssueDate     time.Time            `json:"issue_date"`
	StartDate     *time.Time           `json:"start_date,omitempty"`
	EndDate       *time.Time           `json:"end_date,omitempty"`
	DurationHours int                  `json:"duration_hours"`
	Language      string               `json:"certificate_language"`
	StudentName   string               `json:"student_name"`
	TrainingName  string               `json:"training_name"`
	TrainingNames domain.LocalizedName `json:"training_names"`
}

// Service resolves a QR hash to certificate data. It never writes to the database.
// Rdb is optional.
type Service struct {
	DB  *gorm.DB
	Rdb *redis.Client
}

func (s *Service) Verify(ctx context.Context, hash string) (*VerifiedCertificate, error) {
	hash = strings.ToLower(strings.TrimSpace(hash))
	if hash == "" || len(hash) > 128 {
		return nil, domain.ErrNotFound
	}

	if s.Rdb != nil {
		if b, err := s.Rdb.Get(ctx, cachePrefix+hash).Bytes(); err == nil {
			var v VerifiedCertificate
			if json.Unmarshal(b, &v) == nil {
				return &v, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Msg("verification cache read failed")
		}
	}

	var c domain.Certificate
	err := s.DB.WithContext(ctx).Preload("Student").Preload("Program").Where("qr_code_hash = ?", hash).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if c.Student == nil || c.Program == nil {
		return nil, domain.ErrNotFound
	}

	v := &VerifiedCertificate{
		CertificateNo: c.CertificateNo,
		Status:        c.Status,
		IssueDate:     c.IssueDate,
		StartDate:     c.StartDate,
		EndDate:       c.EndDate,
		DurationHours: c.Program.DurationHours,
		Language:      c.CertificateLanguage,
		StudentName:   c.Student.FullName(),
		TrainingName:  c.Program.Name.Resolve(c.CertificateLanguage),
		TrainingNames: c.Program.Name,
	}
	if c.DurationHours != nil {
		v.DurationHours = *c.DurationHours
	}

	if s.Rdb != nil {
		if b, err := json.Marshal(v); err == nil {
			if err := s.Rdb.Set(ctx, cachePrefix+hash, b, cacheTTL).Err(); err != nil {
				log.Warn().Err(err).Msg("verification cache write failed")
			}
		}
	}
	return v, nil
}
