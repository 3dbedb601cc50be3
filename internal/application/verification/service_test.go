package verification

import (
	"context"
	"testing"
	"time"

	"certhub-backend/internal/domain"
	"certhub-backend/internal/infrastructure/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedCertificate(t *testing.T, db *gorm.DB, hash string) domain.Certificate {
	student := domain.Student{UserID: uuid.New(), NationalID: uuid.NewString()[:11], FirstName: "Ayse", LastName: "Yilmaz"}
	require.NoError(t, db.Create(&student).Error)
	program := domain.TrainingProgram{Name: domain.LocalizedName{"tr": "Ilk Yardim", "en": "First Aid"}, DurationHours: 16, DefaultPrice: decimal.NewFromInt(300), IsActive: true}
	require.NoError(t, db.Create(&program).Error)
	c := domain.Certificate{
		CertificateNo: "CERT-2024" + uuid.NewString()[:8], QRCodeHash: hash, StudentID: student.StudentID,
		TrainingProgramID: program.ProgramID, TemplateID: uuid.New(), IssuedBy: student.UserID,
		IssueDate: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), Status: domain.CertStatusApproved,
		Cost: decimal.NewFromInt(300), CertificateLanguage: "fr",
	}
	require.NoError(t, db.Create(&c).Error)
	return c
}

func setupVerify(t *testing.T) (*Service, *gorm.DB, *miniredis.Miniredis) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return &Service{DB: db, Rdb: rdb}, db, mr
}

func TestVerify_ReturnsCertificateAndCaches(t *testing.T) {
	s, db, mr := setupVerify(t)
	c := seedCertificate(t, db, "abc123")

	v, err := s.Verify(context.Background(), " ABC123 ")
	require.NoError(t, err)
	assert.Equal(t, c.CertificateNo, v.CertificateNo)
	assert.Equal(t, "Ayse Yilmaz", v.StudentName)
	assert.Equal(t, "Ilk Yardim", v.TrainingName)
	assert.Equal(t, 16, v.DurationHours)

	assert.True(t, mr.Exists(cachePrefix+"abc123"))
	ttl := mr.TTL(cachePrefix + "abc123")
	assert.Equal(t, cacheTTL, ttl)

	// served from cache after the row is gone
	require.NoError(t, db.Where("certificate_id = ?", c.CertificateID).Delete(&domain.Certificate{}).Error)
	v, err = s.Verify(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, c.CertificateNo, v.CertificateNo)
}

func TestVerify_UnknownHash(t *testing.T) {
	s, _, mr := setupVerify(t)
	_, err := s.Verify(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Verify(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, mr.Exists(cachePrefix+"nope"))
}

func TestVerify_WithoutRedis(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	seedCertificate(t, db, "feed")

	v, err := (&Service{DB: db}).Verify(context.Background(), "feed")
	require.NoError(t, err)
	assert.Equal(t, "Ayse Yilmaz", v.StudentName)
}
