package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Student struct {
	StudentID  uuid.UUID `gorm:"column:student_id;type:uuid;primaryKey" json:"student_id"`
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	NationalID string    `gorm:"column:national_id;not null;uniqueIndex" json:"national_id"`
	FirstName  string    `gorm:"column:first_name;not null" json:"first_name"`
	LastName   string    `gorm:"column:last_name;not null" json:"last_name"`
	Email      string    `gorm:"column:email" json:"email"`
	Phone      string    `gorm:"column:phone" json:"phone"`
	CreatedAt  time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Student) TableName() string {
	return "Students"
}

func (s *Student) BeforeCreate(tx *gorm.DB) error {
	if s.StudentID == uuid.Nil {
		s.StudentID = uuid.New()
	}
	return nil
}

// FullName is first and last name joined by a single space.
func (s *Student) FullName() string {
	switch {
	case s.FirstName == "":
		return s.LastName
	case s.LastName == "":
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}
