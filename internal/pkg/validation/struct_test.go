package validation

import (
	"errors"
	"testing"

	"certhub-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	CardNumber  string `validate:"required,credit_card"`
	ExpiryMonth int    `validate:"min=1,max=12"`
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(sample{CardNumber: "4111111111111111", ExpiryMonth: 12}))

	err := Struct(sample{CardNumber: "4111111111111112", ExpiryMonth: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "card_number", ve.Field)
	assert.Equal(t, "invalid card number", ve.Message)

	err = Struct(sample{CardNumber: "4111111111111111", ExpiryMonth: 13})
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "expiry_month", ve.Field)
	assert.Equal(t, "must be at most 12", ve.Message)
}

func TestFieldValidators(t *testing.T) {
	assert.True(t, IsValidEmail("a@b.co"))
	assert.False(t, IsValidEmail("a@b"))
	assert.True(t, IsValidPassword("abcdef1!"))
	assert.False(t, IsValidPassword("abcdefgh"))
	assert.True(t, IsValidFullname("Ayşe Yılmaz"))
	assert.False(t, IsValidFullname("R2D2"))
	assert.True(t, IsValidNationalID("12345678901"))
	assert.False(t, IsValidNationalID("1234"))
}
