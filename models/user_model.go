package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	FullName string    `gorm:"size:255;not null" json:"full_name"`
	Email    string    `gorm:"size:255;not null;unique" json:"email"`
	Password string    `gorm:"not null" json:"-"`
	Role     string    `gorm:"size:20;not null;default:'student'" json:"role"`

	// Cached wallet balance in minor units. Written only by the wallet
	// service; always reconstructible by replaying wallet_transactions.
	WalletBalanceCents int64 `gorm:"not null;default:0" json:"wallet_balance_cents"`

	// Payout destination, owned by the profile flow and echoed in the
	// teacher revenue summary.
	BankName          *string `gorm:"size:100" json:"bank_name"`
	BankAccountNumber *string `gorm:"size:50" json:"bank_account_number"`
	BankAccountName   *string `gorm:"size:255" json:"bank_account_name"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
