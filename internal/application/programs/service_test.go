package programs

import (
	"context"
	"testing"

	"certhub-backend/internal/application/policies"
	"certhub-backend/internal/domain"
	"certhub-backend/internal/infrastructure/database"
	"certhub-backend/internal/pkg/constants"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	admin  = policies.Actor{UserID: uuid.New(), Role: constants.Admin}
	dealer = policies.Actor{UserID: uuid.New(), Role: constants.Dealer}
)

func setupPrograms(t *testing.T) *Service {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return &Service{DB: db, Policy: policies.RolePolicy{}}
}

func TestCreateAndList(t *testing.T) {
	s := setupPrograms(t)
	ctx := context.Background()

	p, err := s.Create(ctx, admin, CreateInput{
		Name:          map[string]string{"TR": " İş Güvenliği ", "en": "Work Safety", "de": ""},
		DurationHours: 16,
		DefaultPrice:  decimal.RequireFromString("300.004"),
	})
	require.NoError(t, err)
	assert.Equal(t, "300.00", p.DefaultPrice.StringFixed(2))
	assert.Equal(t, domain.LocalizedName{"tr": "İş Güvenliği", "en": "Work Safety"}, p.Name)
	assert.True(t, p.IsActive)

	_, err = s.Create(ctx, dealer, CreateInput{Name: map[string]string{"tr": "x"}})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = s.Create(ctx, admin, CreateInput{Name: map[string]string{"tr": " "}})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = s.Create(ctx, admin, CreateInput{Name: map[string]string{"tr": "x"}, DefaultPrice: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, s.DB.Create(&domain.TrainingProgram{Name: domain.LocalizedName{"tr": "Eski"}, DefaultPrice: decimal.Zero}).Error)

	list, err := s.List(ctx, dealer)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Work Safety", list[0].Name.Resolve("en"))

	all, err := s.List(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdatePrice(t *testing.T) {
	s := setupPrograms(t)
	ctx := context.Background()
	p, err := s.Create(ctx, admin, CreateInput{Name: map[string]string{"tr": "Yangın"}, DefaultPrice: decimal.NewFromInt(100)})
	require.NoError(t, err)

	got, err := s.UpdatePrice(ctx, admin, p.ProgramID, decimal.RequireFromString("150.5"))
	require.NoError(t, err)
	assert.Equal(t, "150.50", got.DefaultPrice.StringFixed(2))

	var stored domain.TrainingProgram
	require.NoError(t, s.DB.Where("program_id = ?", p.ProgramID).First(&stored).Error)
	assert.Equal(t, "150.50", stored.DefaultPrice.StringFixed(2))

	_, err = s.UpdatePrice(ctx, dealer, p.ProgramID, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = s.UpdatePrice(ctx, admin, uuid.New(), decimal.NewFromInt(1))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
