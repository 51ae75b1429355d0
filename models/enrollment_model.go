package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Enrollment struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_user_course" json:"user_id"`
	CourseID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_user_course" json:"course_id"`
	PaymentID *uuid.UUID `gorm:"type:uuid" json:"payment_id"`
	Status    string     `gorm:"size:20;not null;default:'active'" json:"status"`

	User   User   `gorm:"foreignkey:UserID" json:"-"`
	Course Course `gorm:"foreignkey:CourseID" json:"course,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e *Enrollment) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
