package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FallbackLanguage is used when a name has no entry for the requested language.
const FallbackLanguage = "tr"

// LocalizedName maps a language code to a display string. Stored as a JSON object.
type LocalizedName map[string]string

// Resolve returns the entry for lang, then the "tr" entry, then the first
// entry by sorted key. Empty when the map has no entries.
func (n LocalizedName) Resolve(lang string) string {
	if v, ok := n[lang]; ok && v != "" {
		return v
	}
	if v, ok := n[FallbackLanguage]; ok && v != "" {
		return v
	}
	keys := make([]string, 0, len(n))
	for k := range n {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if n[k] != "" {
			return n[k]
		}
	}
	return ""
}

// Scan implements sql.Scanner for json/jsonb and text columns.
func (n *LocalizedName) Scan(value interface{}) error {
	if value == nil {
		*n = LocalizedName{}
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("unsupported type for LocalizedName")
	}
	m := map[string]string{}
	if len(b) > 0 {
		if err := json.Unmarshal(b, &m); err != nil {
			return err
		}
	}
	*n = m
	return nil
}

// Value implements driver.Valuer.
func (n LocalizedName) Value() (driver.Value, error) {
	if n == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]string(n))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

type TrainingProgram struct {
	ProgramID     uuid.UUID       `gorm:"column:program_id;type:uuid;primaryKey" json:"program_id"`
	Name          LocalizedName   `gorm:"column:name;type:jsonb;not null" json:"name"`
	DurationHours int             `gorm:"column:duration_hours;not null;default:0" json:"duration_hours"`
	DefaultPrice  decimal.Decimal `gorm:"column:default_price;type:decimal(12,2);not null" json:"default_price"`
	IsActive      bool            `gorm:"column:is_active;not null" json:"is_active"`
	CreatedAt     time.Time       `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt     time.Time       `gorm:"column:updatedAt" json:"updatedAt"`
}

func (TrainingProgram) TableName() string {
	return "TrainingPrograms"
}

func (p *TrainingProgram) BeforeCreate(tx *gorm.DB) error {
	if p.ProgramID == uuid.Nil {
		p.ProgramID = uuid.New()
	}
	return nil
}
