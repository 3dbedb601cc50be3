package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreditPackage is a priced bundle: Price is charged, CreditAmount is deposited.
type CreditPackage struct {
	PackageID    uuid.UUID       `gorm:"column:package_id;type:uuid;primaryKey" json:"package_id"`
	Name         string          `gorm:"column:name;not null" json:"name"`
	Price        decimal.Decimal `gorm:"column:price;type:decimal(12,2);not null" json:"price"`
	CreditAmount decimal.Decimal `gorm:"column:credit_amount;type:decimal(12,2);not null" json:"credit_amount"`
	IsActive     bool            `gorm:"column:is_active;not null" json:"is_active"`
	CreatedAt    time.Time       `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt    time.Time       `gorm:"column:updatedAt" json:"updatedAt"`
}

func (CreditPackage) TableName() string {
	return "CreditPackages"
}

func (p *CreditPackage) BeforeCreate(tx *gorm.DB) error {
	if p.PackageID == uuid.Nil {
		p.PackageID = uuid.New()
	}
	return nil
}
