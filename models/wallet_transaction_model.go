package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	WalletSourceCourseSale    = "COURSE_SALE"
	WalletSourceTeacherPayout = "TEACHER_PAYOUT"
	WalletSourceAdminAdjust   = "ADMIN_ADJUST"
)

// WalletTransaction is one append-only row in a user's wallet log.
// AmountCents is signed (credit positive, debit negative) so that summing a
// user's rows in creation order reproduces the cached balance exactly.
type WalletTransaction struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	AmountCents       int64 `gorm:"not null" json:"amount_cents"`
	BalanceAfterCents int64 `gorm:"not null" json:"balance_after_cents"`

	Source      string     `gorm:"size:20;not null" json:"source"`
	CourseID    *uuid.UUID `gorm:"type:uuid" json:"course_id"`
	Description string     `gorm:"type:text" json:"description"`
	CreatedBy   *uuid.UUID `gorm:"type:uuid" json:"created_by"`

	CreatedAt time.Time `json:"created_at"`
}

func (t *WalletTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
