package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalizedNameResolve(t *testing.T) {
	n := LocalizedName{"tr": "İlk Yardım", "en": "First Aid"}
	assert.Equal(t, "First Aid", n.Resolve("en"))
	assert.Equal(t, "İlk Yardım", n.Resolve("fr"))

	onlyOthers := LocalizedName{"en": "First Aid", "de": "Erste Hilfe"}
	assert.Equal(t, "Erste Hilfe", onlyOthers.Resolve("fr"))

	assert.Equal(t, "", LocalizedName{}.Resolve("tr"))
}

func TestLocalizedNameScanValue(t *testing.T) {
	v, err := LocalizedName{"tr": "Kurs"}.Value()
	require.NoError(t, err)

	var n LocalizedName
	require.NoError(t, n.Scan(v))
	assert.Equal(t, "Kurs", n["tr"])

	require.NoError(t, n.Scan(nil))
	assert.Empty(t, n)
	assert.Error(t, n.Scan(42))
}

func TestCertificateTransition(t *testing.T) {
	c := &Certificate{Status: CertStatusDraft}
	require.NoError(t, c.Transition(CertStatusPending, ""))

	err := c.Transition(CertStatusRejected, "")
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, CertStatusPending, c.Status)

	require.NoError(t, c.Transition(CertStatusRejected, "blurry photo"))
	require.NotNil(t, c.RejectionReason)
	assert.Equal(t, "blurry photo", *c.RejectionReason)

	assert.ErrorIs(t, c.Transition(CertStatusApproved, ""), ErrInvalidTransition)
	assert.False(t, CanTransition(CertStatusApproved, CertStatusDraft))
}

func TestTransactionKinds(t *testing.T) {
	assert.True(t, (&Transaction{Type: TxTypeRefund}).Credits())
	assert.False(t, (&Transaction{Type: TxTypeExpense}).Credits())

	assert.True(t, IsFinalOutcome(TxStatusFailed))
	assert.False(t, IsFinalOutcome(TxStatusPending))
	assert.False(t, IsValidTxType("bonus"))
	assert.True(t, IsValidTxMethod(TxMethodWireTransfer))
}
