package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TxTypeDeposit = "deposit"
	TxTypeExpense = "expense"
	TxTypeRefund  = "refund"

	TxMethodCreditCard   = "credit_card"
	TxMethodWireTransfer = "wire_transfer"
	TxMethodSystem       = "system"
	TxMethodPackage      = "package"

	TxStatusPending  = "pending"
	TxStatusApproved = "approved"
	TxStatusRejected = "rejected"
	TxStatusFailed   = "failed"
)

// Metadata keys written on transactions.
const (
	MetaExternalOrderID = "external_order_id"
	MetaPackageID       = "package_id"
	MetaPrice           = "price"
	MetaGatewayMessage  = "gateway_message"
	MetaGatewayError    = "gateway_error"
	MetaCertificateNo   = "certificate_no"
)

// Transaction is an immutable ledger entry. Only Status and FinalizedAt change, once.
type Transaction struct {
	TxID        uuid.UUID         `gorm:"column:tx_id;type:uuid;primaryKey" json:"tx_id"`
	UserID      uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Amount      decimal.Decimal   `gorm:"column:amount;type:decimal(12,2);not null" json:"amount"`
	Type        string            `gorm:"column:type;type:varchar(20);not null" json:"type"`
	Method      string            `gorm:"column:method;type:varchar(20);not null" json:"method"`
	Status      string            `gorm:"column:status;type:varchar(20);not null;default:pending;index" json:"status"`
	Description string            `gorm:"column:description" json:"description"`
	Metadata    datatypes.JSONMap `gorm:"column:metadata;type:jsonb" json:"metadata"`
	FinalizedAt *time.Time        `gorm:"column:finalized_at" json:"finalized_at"`
	CreatedAt   time.Time         `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt   time.Time         `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Transaction) TableName() string {
	return "Transactions"
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.TxID == uuid.Nil {
		t.TxID = uuid.New()
	}
	return nil
}

// IsValidTxType reports whether t is a known transaction type.
func IsValidTxType(t string) bool {
	switch t {
	case TxTypeDeposit, TxTypeExpense, TxTypeRefund:
		return true
	}
	return false
}

func IsValidTxMethod(m string) bool {
	switch m {
	case TxMethodCreditCard, TxMethodWireTransfer, TxMethodSystem, TxMethodPackage:
		return true
	}
	return false
}

// IsFinalOutcome reports whether s is a status a pending transaction may move to.
func IsFinalOutcome(s string) bool {
	switch s {
	case TxStatusApproved, TxStatusRejected, TxStatusFailed:
		return true
	}
	return false
}

// Credits reports whether approving this transaction increases the owner's balance.
func (t *Transaction) Credits() bool {
	return t.Type == TxTypeDeposit || t.Type == TxTypeRefund
}
