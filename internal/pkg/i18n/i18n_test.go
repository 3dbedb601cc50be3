package i18n

import (
	"fmt"
	"testing"

	"certhub-backend/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestLang(t *testing.T) {
	assert.Equal(t, "tr", Lang(""))
	assert.Equal(t, "en", Lang("en-US,en;q=0.9"))
	assert.Equal(t, "tr", Lang("tr-TR"))
	assert.Equal(t, "tr", Lang("fr-FR"))
	assert.Equal(t, "en", Lang("fr;q=0.9, en;q=0.8"))
}

func TestMessage(t *testing.T) {
	wrapped := fmt.Errorf("issue: %w", domain.ErrInsufficientBalance)
	assert.Equal(t, "Insufficient balance. Please top up your account.", Message(wrapped, "en"))
	assert.Equal(t, "Yetersiz bakiye. Lütfen bakiye yükleyin.", Message(wrapped, "tr"))

	assert.Contains(t, Message(domain.Invalid("student_id", "required"), "en"), "student_id: required")
	assert.Equal(t, fallback.en, Message(fmt.Errorf("boom"), "en"))
}
