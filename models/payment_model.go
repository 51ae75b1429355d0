package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusSucceeded = "succeeded"
	PaymentStatusFailed    = "failed"
)

type Payment struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	// Total amount actually collected, in minor units.
	AmountCents int64  `gorm:"not null" json:"amount_cents"`
	Currency    string `gorm:"size:3;not null;default:'VND'" json:"currency"`

	// Comma-separated course ids covered by this payment.
	CourseIDs string `gorm:"type:text;not null" json:"course_ids"`

	Provider      string  `gorm:"size:50;not null" json:"provider"`
	ProviderTxnID *string `gorm:"size:255;unique" json:"provider_txn_id"`
	Status        string  `gorm:"size:20;not null" json:"status"`
	PaidAt        *time.Time `json:"paid_at"`

	User User `gorm:"foreignkey:UserID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ParseCourseIDs returns the purchased course ids. An unparsable list is an
// error: revenue for a paid transaction must never be silently dropped.
func (p *Payment) ParseCourseIDs() ([]uuid.UUID, error) {
	raw := strings.TrimSpace(p.CourseIDs)
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]uuid.UUID, 0, len(parts))
	for _, part := range parts {
		id, err := uuid.Parse(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// JoinCourseIDs builds the stored representation of a course id list.
func JoinCourseIDs(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}
