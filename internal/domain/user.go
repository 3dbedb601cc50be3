package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// User is an admin or a dealer. Balance is only written by the ledger.
type User struct {
	UserID       uuid.UUID       `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	Fullname     string          `gorm:"column:fullname;not null" json:"fullname"`
	Email        string          `gorm:"column:email;not null;uniqueIndex" json:"email"`
	PasswordHash string          `gorm:"column:password_hash;not null" json:"-"`
	Role         string          `gorm:"column:role;type:varchar(20);not null;default:dealer" json:"role"`
	CompanyName  string          `gorm:"column:company_name" json:"company_name"`
	Phone        string          `gorm:"column:phone" json:"phone"`
	Balance      decimal.Decimal `gorm:"column:balance;type:decimal(12,2);not null;default:0" json:"balance"`
	StudentQuota int             `gorm:"column:student_quota;not null;default:0" json:"student_quota"`
	IsApproved   bool            `gorm:"column:is_approved;not null;default:false" json:"is_approved"`
	IsActive     bool            `gorm:"column:is_active;not null" json:"is_active"`
	CreatedAt    time.Time       `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt    time.Time       `gorm:"column:updatedAt" json:"updatedAt"`
}

func (User) TableName() string {
	return "Users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UserID == uuid.Nil {
		u.UserID = uuid.New()
	}
	return nil
}
