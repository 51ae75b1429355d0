package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Course struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	TeacherID   uuid.UUID `gorm:"type:uuid;not null;index" json:"teacher_id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description *string   `gorm:"type:text" json:"description"`

	PriceCents           int64  `gorm:"not null" json:"price_cents"`
	DiscountedPriceCents *int64 `json:"discounted_price_cents"`

	ThumbnailURL *string `gorm:"size:255" json:"thumbnail_url"`
	IsPublished  bool    `gorm:"default:false" json:"is_published"`

	Teacher User `gorm:"foreignkey:TeacherID" json:"teacher,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// EffectivePriceCents is the price a buyer actually pays: the discounted
// price when one is set, the list price otherwise.
func (c *Course) EffectivePriceCents() int64 {
	if c.DiscountedPriceCents != nil {
		return *c.DiscountedPriceCents
	}
	return c.PriceCents
}
