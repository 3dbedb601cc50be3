package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	CertStatusDraft    = "draft"
	CertStatusPending  = "pending"
	CertStatusApproved = "approved"
	CertStatusRejected = "rejected"
)

var certTransitions = map[string][]string{
	CertStatusDraft:   {CertStatusPending, CertStatusApproved, CertStatusRejected},
	CertStatusPending: {CertStatusApproved, CertStatusRejected},
}

type Certificate struct {
	CertificateID       uuid.UUID       `gorm:"column:certificate_id;type:uuid;primaryKey" json:"certificate_id"`
	CertificateNo       string          `gorm:"column:certificate_no;not null;uniqueIndex" json:"certificate_no"`
	QRCodeHash          string          `gorm:"column:qr_code_hash;not null;uniqueIndex" json:"qr_code_hash"`
	StudentID           uuid.UUID       `gorm:"column:student_id;type:uuid;not null;index" json:"student_id"`
	TrainingProgramID   uuid.UUID       `gorm:"column:training_program_id;type:uuid;not null" json:"training_program_id"`
	TemplateID          uuid.UUID       `gorm:"column:template_id;type:uuid;not null" json:"template_id"`
	IssuedBy            uuid.UUID       `gorm:"column:issued_by;type:uuid;not null;index" json:"issued_by"`
	IssueDate           time.Time       `gorm:"column:issue_date;not null" json:"issue_date"`
	Status              string          `gorm:"column:status;type:varchar(20);not null;default:approved" json:"status"`
	RejectionReason     *string         `gorm:"column:rejection_reason" json:"rejection_reason"`
	Cost                decimal.Decimal `gorm:"column:cost;type:decimal(12,2);not null" json:"cost"`
	CertificateLanguage string          `gorm:"column:certificate_language;type:varchar(8);not null;default:tr" json:"certificate_language"`
	StartDate           *time.Time      `gorm:"column:start_date" json:"start_date"`
	EndDate             *time.Time      `gorm:"column:end_date" json:"end_date"`
	DurationHours       *int            `gorm:"column:duration_hours" json:"duration_hours"`
	CreatedAt           time.Time       `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt           time.Time       `gorm:"column:updatedAt" json:"updatedAt"`

	Student  *Student             `gorm:"foreignKey:StudentID;references:StudentID" json:"student,omitempty"`
	Program  *TrainingProgram     `gorm:"foreignKey:TrainingProgramID;references:ProgramID" json:"training_program,omitempty"`
	Template *CertificateTemplate `gorm:"foreignKey:TemplateID;references:TemplateID" json:"template,omitempty"`
}

func (Certificate) TableName() string {
	return "Certificates"
}

func (c *Certificate) BeforeCreate(tx *gorm.DB) error {
	if c.CertificateID == uuid.Nil {
		c.CertificateID = uuid.New()
	}
	return nil
}

// CanTransition reports whether a certificate may move from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range certTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition moves the certificate to status. A rejection needs a non-empty reason.
// Manual review flows call this before saving; issuance sets approved directly.
func (c *Certificate) Transition(to, reason string) error {
	if !CanTransition(c.Status, to) {
		return ErrInvalidTransition
	}
	if to == CertStatusRejected {
		if reason == "" {
			return Invalid("rejection_reason", "required when rejecting")
		}
		c.RejectionReason = &reason
	}
	c.Status = to
	return nil
}
