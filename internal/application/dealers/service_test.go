package dealers

import (
	"context"
	"testing"

	"certhub-backend/internal/application/policies"
	"certhub-backend/internal/domain"
	"certhub-backend/internal/infrastructure/database"
	"certhub-backend/internal/pkg/constants"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var admin = policies.Actor{UserID: uuid.New(), Role: constants.Admin}

func setupDealers(t *testing.T) *Service {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return &Service{DB: db, Policy: policies.RolePolicy{}}
}

func TestRegister(t *testing.T) {
	s := setupDealers(t)
	ctx := context.Background()

	u, err := s.Register(ctx, RegisterInput{Fullname: "  Ayşe   Yılmaz ", Email: "Ayse@Example.com", Password: "Secret123!", CompanyName: "ACME"})
	require.NoError(t, err)
	assert.Equal(t, "ayse@example.com", u.Email)
	assert.Equal(t, "Ayşe Yılmaz", u.Fullname)
	assert.Equal(t, constants.Dealer, u.Role)
	assert.False(t, u.IsApproved)
	assert.True(t, u.Balance.IsZero())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("Secret123!")))

	_, err = s.Register(ctx, RegisterInput{Fullname: "Other", Email: "ayse@example.com", Password: "Secret123!"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = s.Register(ctx, RegisterInput{Fullname: "Other", Email: "bad", Password: "Secret123!"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = s.Register(ctx, RegisterInput{Fullname: "Other", Email: "o@example.com", Password: "short"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdate(t *testing.T) {
	s := setupDealers(t)
	ctx := context.Background()
	u, err := s.Register(ctx, RegisterInput{Fullname: "Dealer", Email: "d@example.com", Password: "Secret123!"})
	require.NoError(t, err)

	_, err = s.Approve(ctx, policies.Actor{UserID: u.UserID, Role: constants.Dealer}, u.UserID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	got, err := s.Approve(ctx, admin, u.UserID)
	require.NoError(t, err)
	assert.True(t, got.IsApproved)

	got, err = s.SetQuota(ctx, admin, u.UserID, 25)
	require.NoError(t, err)
	assert.Equal(t, 25, got.StudentQuota)

	_, err = s.SetQuota(ctx, admin, u.UserID, -1)
	assert.ErrorIs(t, err, domain.ErrValidation)

	got, err = s.SetActive(ctx, admin, u.UserID, false)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.True(t, got.IsApproved)

	_, err = s.Approve(ctx, admin, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := s.List(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
