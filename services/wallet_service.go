package services

import (
	"errors"
	"fmt"

	"github.com/nqhuy1905/course_market/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrWalletConflict      = errors.New("wallet balance changed concurrently, retry the operation")
	ErrInvalidAmount       = errors.New("amount must be a positive number of minor units")
)

// The wallet ledger is the single place balances are ever mutated. Every
// change appends one wallet_transactions row with a balance_after_cents
// snapshot and updates the cached users.wallet_balance_cents in the same
// transaction, so replaying the log always reproduces the cached value.
//
// All three entry points expect to run inside the caller's transaction; the
// row append and the balance update commit together or not at all.

// CreditWallet adds a positive amount to a user's wallet.
func CreditWallet(tx *gorm.DB, userID uuid.UUID, amountCents int64, source, description string, courseID, createdBy *uuid.UUID) (*models.WalletTransaction, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	return applyWalletChange(tx, userID, amountCents, source, description, courseID, createdBy)
}

// DebitWallet removes a positive amount from a user's wallet. A debit that
// would drive the balance below zero is rejected before any write.
func DebitWallet(tx *gorm.DB, userID uuid.UUID, amountCents int64, source, description string, createdBy *uuid.UUID) (*models.WalletTransaction, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	return applyWalletChange(tx, userID, -amountCents, source, description, nil, createdBy)
}

// AdjustWallet applies a signed manual correction by an operator.
func AdjustWallet(tx *gorm.DB, userID uuid.UUID, signedAmountCents int64, description string, operatorID uuid.UUID) (*models.WalletTransaction, error) {
	if signedAmountCents == 0 {
		return nil, ErrInvalidAmount
	}
	return applyWalletChange(tx, userID, signedAmountCents, models.WalletSourceAdminAdjust, description, nil, &operatorID)
}

func applyWalletChange(tx *gorm.DB, userID uuid.UUID, signedAmountCents int64, source, description string, courseID, createdBy *uuid.UUID) (*models.WalletTransaction, error) {
	var user models.User
	if err := tx.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("wallet user %s not found", userID)
		}
		return nil, err
	}

	newBalance := user.WalletBalanceCents + signedAmountCents
	if newBalance < 0 {
		return nil, ErrInsufficientBalance
	}

	// Guarded update: only moves the balance if nobody else has since we
	// read it, so a concurrent change surfaces as a conflict instead of a
	// lost update.
	res := tx.Model(&models.User{}).
		Where("id = ? AND wallet_balance_cents = ?", userID, user.WalletBalanceCents).
		Update("wallet_balance_cents", newBalance)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrWalletConflict
	}

	txn := models.WalletTransaction{
		UserID:            userID,
		AmountCents:       signedAmountCents,
		BalanceAfterCents: newBalance,
		Source:            source,
		CourseID:          courseID,
		Description:       description,
		CreatedBy:         createdBy,
	}
	if err := tx.Create(&txn).Error; err != nil {
		return nil, err
	}

	return &txn, nil
}
