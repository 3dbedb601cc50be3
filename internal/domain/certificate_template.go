package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TemplateTypeStandard = "standard"
	TemplateTypeCard     = "card"
)

// ElementKind names a layout element kind. Kinds without a resolver render their label.
type ElementKind string

const (
	ElementStudentName   ElementKind = "student_name"
	ElementCertificateNo ElementKind = "certificate_no"
	ElementIssueDate     ElementKind = "issue_date"
	ElementTrainingName  ElementKind = "training_name"
	ElementQRCode        ElementKind = "qr_code"
	ElementLabel         ElementKind = "label"
)

// Element is one positioned item on a certificate. X/Y are the top-left corner in canvas pixels.
type Element struct {
	Type       ElementKind `json:"type"`
	X          float64     `json:"x"`
	Y          float64     `json:"y"`
	FontSize   float64     `json:"font_size,omitempty"`
	Color      string      `json:"color,omitempty"`
	FontFamily string      `json:"font_family,omitempty"`
	Width      float64     `json:"width,omitempty"`
	Height     float64     `json:"height,omitempty"`
	Label      string      `json:"label,omitempty"`
}

// LayoutConfig is stored in certificate_templates.layout_config.
type LayoutConfig struct {
	Elements     []Element `json:"elements"`
	CanvasWidth  int       `json:"canvasWidth,omitempty"`
	CanvasHeight int       `json:"canvasHeight,omitempty"`
}

type CertificateTemplate struct {
	TemplateID    uuid.UUID                        `gorm:"column:template_id;type:uuid;primaryKey" json:"template_id"`
	Name          string                           `gorm:"column:name;not null" json:"name"`
	BackgroundRef string                           `gorm:"column:background_ref;not null" json:"background_ref"`
	Type          string                           `gorm:"column:type;type:varchar(20);not null;default:standard" json:"type"`
	LayoutConfig  datatypes.JSONType[LayoutConfig] `gorm:"column:layout_config;type:jsonb" json:"layout_config"`
	IsActive      bool                             `gorm:"column:is_active;not null" json:"is_active"`
	Dealers       []User                           `gorm:"many2many:template_dealers;joinForeignKey:TemplateID;joinReferences:UserID" json:"dealers,omitempty"`
	CreatedAt     time.Time                        `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt     time.Time                        `gorm:"column:updatedAt" json:"updatedAt"`
}

func (CertificateTemplate) TableName() string {
	return "CertificateTemplates"
}

func (t *CertificateTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.TemplateID == uuid.Nil {
		t.TemplateID = uuid.New()
	}
	return nil
}

// Layout returns the decoded layout config.
func (t *CertificateTemplate) Layout() LayoutConfig {
	return t.LayoutConfig.Data()
}

// ScopedTo reports whether the template is restricted to dealers and, if so, whether userID is one of them.
// Dealers must be preloaded.
func (t *CertificateTemplate) ScopedTo(userID uuid.UUID) bool {
	if len(t.Dealers) == 0 {
		return true
	}
	for _, d := range t.Dealers {
		if d.UserID == userID {
			return true
		}
	}
	return false
}
