package auth

import (
	"testing"

	"certhub-backend/internal/domain"
	"certhub-backend/internal/pkg/constants"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func setupAuthDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}))
	return db
}

func seed(t *testing.T, db *gorm.DB, email, role string, approved, active bool) {
	hash, err := bcrypt.GenerateFromPassword([]byte("Secret123!"), bcrypt.MinCost)
	require.NoError(t, err)
	u := domain.User{Fullname: "X", Email: email, PasswordHash: string(hash), Role: role, IsApproved: approved, IsActive: active}
	require.NoError(t, db.Create(&u).Error)
}

func TestLoginUser(t *testing.T) {
	db := setupAuthDB(t)
	seed(t, db, "ok@example.com", constants.Dealer, true, true)
	seed(t, db, "pending@example.com", constants.Dealer, false, true)
	seed(t, db, "off@example.com", constants.Dealer, true, false)
	seed(t, db, "admin@example.com", constants.Admin, false, true)

	u, err := LoginUser(db, LoginInput{Email: " OK@example.com ", Password: "Secret123!"})
	require.NoError(t, err)
	assert.Equal(t, "ok@example.com", u.Email)

	_, err = LoginUser(db, LoginInput{Email: "ok@example.com", Password: "wrong"})
	assert.Equal(t, ErrInvalidCredentials, err)
	_, err = LoginUser(db, LoginInput{Email: "missing@example.com", Password: "Secret123!"})
	assert.Equal(t, ErrInvalidCredentials, err)
	_, err = LoginUser(db, LoginInput{Email: "", Password: ""})
	assert.Equal(t, ErrEmailPasswordRequired, err)
	_, err = LoginUser(db, LoginInput{Email: "pending@example.com", Password: "Secret123!"})
	assert.Equal(t, ErrPendingApproval, err)
	_, err = LoginUser(db, LoginInput{Email: "off@example.com", Password: "Secret123!"})
	assert.Equal(t, ErrAccountDisabled, err)

	_, err = LoginUser(db, LoginInput{Email: "admin@example.com", Password: "Secret123!"})
	assert.NoError(t, err)
}

func TestVerifyUser(t *testing.T) {
	_, err := VerifyUser(nil)
	assert.Equal(t, ErrNotAuthenticated, err)
	_, err = VerifyUser(map[string]interface{}{"role": "dealer"})
	assert.Equal(t, ErrNotAuthenticated, err)

	u, err := VerifyUser(map[string]interface{}{"user_id": "u1", "role": "dealer", "email": "a@b.co"})
	require.NoError(t, err)
	assert.Equal(t, "u1", u.UserID)
	assert.Equal(t, "dealer", u.Role)
}
