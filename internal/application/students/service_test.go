package students

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
	"gorm.io/gorm"
)

func setupStudents(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return &Service{DB: db, Policy: policies.RolePolicy{}}, db
}

func seedUser(t *testing.T, db *gorm.DB, role string, quota int) policies.Actor {
	u := domain.User{Fullname: role, Email: uuid.NewString() + "@example.com", PasswordHash: "x", Role: role, StudentQuota: quota, IsApproved: true, IsActive: true}
	require.NoError(t, db.Create(&u).Error)
	return policies.Actor{UserID: u.UserID, Role: role}
}

func TestCreateRespectsQuota(t *testing.T) {
	s, _ := setupStudents(t)
	dealer := seedUser(t, s.DB, constants.Dealer, 2)
	ctx := context.Background()

	for _, id := range []string{"10000000001", "10000000002"} {
		_, err := s.Create(ctx, dealer, CreateInput{NationalID: id, FirstName: "Ali", LastName: "Veli"})
		require.NoError(t, err)
	}
	_, err := s.Create(ctx, dealer, CreateInput{NationalID: "10000000003", FirstName: "Ali", LastName: "Veli"})
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)

	list, err := s.List(ctx, dealer)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestCreateValidation(t *testing.T) {
	s, _ := setupStudents(t)
	dealer := seedUser(t, s.DB, constants.Dealer, 10)
	ctx := context.Background()

	_, err := s.Create(ctx, dealer, CreateInput{NationalID: "123", FirstName: "Ali", LastName: "Veli"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = s.Create(ctx, dealer, CreateInput{NationalID: "10000000001", LastName: "Veli"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.Create(ctx, dealer, CreateInput{NationalID: "10000000001", FirstName: "Ali", LastName: "Veli"})
	require.NoError(t, err)
	_, err = s.Create(ctx, dealer, CreateInput{NationalID: "10000000001", FirstName: "Ayşe", LastName: "Kaya"})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "national_id", verr.Field)
}

func TestAdminEnrollsForDealer(t *testing.T) {
	s, _ := setupStudents(t)
	admin := seedUser(t, s.DB, constants.Admin, 0)
	dealer := seedUser(t, s.DB, constants.Dealer, 1)
	other := seedUser(t, s.DB, constants.Dealer, 5)
	ctx := context.Background()

	st, err := s.Create(ctx, admin, CreateInput{OwnerID: &dealer.UserID, NationalID: "10000000001", FirstName: "Ali", LastName: "Veli"})
	require.NoError(t, err)
	assert.Equal(t, dealer.UserID, st.UserID)

	// the dealer's quota still applies when an admin enrolls on their behalf
	_, err = s.Create(ctx, admin, CreateInput{OwnerID: &dealer.UserID, NationalID: "10000000002", FirstName: "Ali", LastName: "Veli"})
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)

	_, err = s.Create(ctx, other, CreateInput{OwnerID: &dealer.UserID, NationalID: "10000000003", FirstName: "Ali", LastName: "Veli"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	for i := 0; i < 3; i++ {
		_, err = s.Create(ctx, admin, CreateInput{NationalID: "2000000000" + string(rune('0'+i)), FirstName: "Ali", LastName: "Veli"})
		require.NoError(t, err)
	}
	all, err := s.List(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	mine, err := s.List(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, mine)
}
