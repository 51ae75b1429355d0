package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RevenueEntry is one ledger row: the teacher/platform split for one course
// within one payment. The (payment_id, course_id) unique index is the
// idempotency key; a webhook redelivery degrades to a duplicate-key
// rejection instead of a double-posted entry.
//
// Rows are created once by the posting engine and never deleted or re-split;
// only the payout fields are ever mutated, by the payout batch.
type RevenueEntry struct {
	ID uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`

	PaymentID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_revenue_payment_course" json:"payment_id"`
	CourseID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_revenue_payment_course" json:"course_id"`
	TeacherID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_revenue_teacher_period" json:"teacher_id"`
	EnrollmentID *uuid.UUID `gorm:"type:uuid" json:"enrollment_id"`

	// Settlement bucket in canonical YYYY-MM form, derived from the
	// payment's paid-at time in the reporting timezone. Immutable: a later
	// payout never moves an entry to a different period.
	YearMonth string `gorm:"size:7;not null;index:idx_revenue_teacher_period" json:"year_month"`

	TotalAmountCents        int64 `gorm:"not null" json:"total_amount_cents"`
	CoursePriceCents        int64 `gorm:"not null" json:"course_price_cents"`
	TeacherRevenueCents     int64 `gorm:"not null" json:"teacher_revenue_cents"`
	PlatformCommissionCents int64 `gorm:"not null" json:"platform_commission_cents"`

	IsPaid         bool       `gorm:"not null;default:false" json:"is_paid"`
	PayoutDate     *time.Time `json:"payout_date"`
	PayoutByUserID *uuid.UUID `gorm:"type:uuid" json:"payout_by_user_id"`
	PayoutNote     *string    `gorm:"type:text" json:"payout_note"`

	Course  Course `gorm:"foreignkey:CourseID" json:"course,omitempty"`
	Teacher User   `gorm:"foreignkey:TeacherID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e *RevenueEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// CourseAmountCents is this course's share of the payment total: the amount
// the teacher/platform split was computed from.
func (e *RevenueEntry) CourseAmountCents() int64 {
	return e.TeacherRevenueCents + e.PlatformCommissionCents
}
