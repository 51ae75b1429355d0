package services

import (
	"errors"
	"testing"

	"github.com/nqhuy1905/course_market/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func TestCreditAndDebitWallet(t *testing.T) {
	db := setupTestDB(t)
	teacher := createUser(t, db, "teacher")
	admin := createUser(t, db, "admin")

	err := db.Transaction(func(tx *gorm.DB) error {
		txn, err := CreditWallet(tx, teacher.ID, 50000, models.WalletSourceCourseSale, "course sale", nil, nil)
		if err != nil {
			return err
		}
		if txn.BalanceAfterCents != 50000 {
			t.Errorf("credit snapshot: got %d, want 50000", txn.BalanceAfterCents)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		txn, err := DebitWallet(tx, teacher.ID, 30000, models.WalletSourceTeacherPayout, "payout", &admin.ID)
		if err != nil {
			return err
		}
		if txn.AmountCents != -30000 {
			t.Errorf("debit amount: got %d, want -30000", txn.AmountCents)
		}
		if txn.BalanceAfterCents != 20000 {
			t.Errorf("debit snapshot: got %d, want 20000", txn.BalanceAfterCents)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("debit: %v", err)
	}

	if got := walletBalance(t, db, teacher.ID); got != 20000 {
		t.Errorf("cached balance: got %d, want 20000", got)
	}
}

func TestDebitWalletInsufficientBalance(t *testing.T) {
	db := setupTestDB(t)
	teacher := createUser(t, db, "teacher")

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := CreditWallet(tx, teacher.ID, 500, models.WalletSourceCourseSale, "small sale", nil, nil)
		return err
	})
	if err != nil {
		t.Fatalf("seed credit: %v", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := DebitWallet(tx, teacher.ID, 1000, models.WalletSourceTeacherPayout, "too much", nil)
		return err
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("overdraw: got %v, want ErrInsufficientBalance", err)
	}

	// The rejected debit left no trace: balance unchanged, no ledger row.
	if got := walletBalance(t, db, teacher.ID); got != 500 {
		t.Errorf("balance after rejected debit: got %d, want 500", got)
	}
	var count int64
	if err := db.Model(&models.WalletTransaction{}).Where("user_id = ?", teacher.ID).Count(&count).Error; err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	if count != 1 {
		t.Errorf("ledger rows: got %d, want only the seed credit", count)
	}
}

func TestWalletRejectsInvalidAmounts(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, "teacher")
	admin := createUser(t, db, "admin")

	for _, amount := range []int64{0, -100} {
		if _, err := CreditWallet(db, user.ID, amount, models.WalletSourceCourseSale, "", nil, nil); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("credit %d: got %v, want ErrInvalidAmount", amount, err)
		}
		if _, err := DebitWallet(db, user.ID, amount, models.WalletSourceTeacherPayout, "", nil); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("debit %d: got %v, want ErrInvalidAmount", amount, err)
		}
	}
	if _, err := AdjustWallet(db, user.ID, 0, "noop", admin.ID); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero adjustment: got %v, want ErrInvalidAmount", err)
	}
}

func TestAdjustWalletSignedCorrections(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, "teacher")
	admin := createUser(t, db, "admin")

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := AdjustWallet(tx, user.ID, 10000, "goodwill credit", admin.ID); err != nil {
			return err
		}
		_, err := AdjustWallet(tx, user.ID, -2500, "clawback", admin.ID)
		return err
	})
	if err != nil {
		t.Fatalf("adjustments: %v", err)
	}

	if got := walletBalance(t, db, user.ID); got != 7500 {
		t.Errorf("balance after adjustments: got %d, want 7500", got)
	}

	var txns []models.WalletTransaction
	if err := db.Where("user_id = ?", user.ID).Order("created_at asc").Find(&txns).Error; err != nil {
		t.Fatalf("load transactions: %v", err)
	}
	for _, txn := range txns {
		if txn.Source != models.WalletSourceAdminAdjust {
			t.Errorf("source: got %q, want ADMIN_ADJUST", txn.Source)
		}
		if txn.CreatedBy == nil || *txn.CreatedBy != admin.ID {
			t.Errorf("operator attribution: got %v, want %s", txn.CreatedBy, admin.ID)
		}
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := AdjustWallet(tx, user.ID, -10000, "over-clawback", admin.ID)
		return err
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("negative-driving adjustment: got %v, want ErrInsufficientBalance", err)
	}
}

func TestWalletUnknownUser(t *testing.T) {
	db := setupTestDB(t)

	_, err := CreditWallet(db, uuid.New(), 1000, models.WalletSourceCourseSale, "", nil, nil)
	if err == nil {
		t.Fatal("credit to unknown user must fail")
	}
}

// The ledger replays: summing the signed amounts reproduces the cached
// balance, and every row's snapshot equals the previous snapshot plus its
// amount.
func TestWalletLedgerReplaysToBalance(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, "teacher")
	admin := createUser(t, db, "admin")

	steps := []int64{40000, 25000, -30000, 15000, -5000}
	for _, amount := range steps {
		amount := amount
		err := db.Transaction(func(tx *gorm.DB) error {
			if amount > 0 {
				_, err := CreditWallet(tx, user.ID, amount, models.WalletSourceCourseSale, "sale", nil, nil)
				return err
			}
			_, err := DebitWallet(tx, user.ID, -amount, models.WalletSourceTeacherPayout, "payout", &admin.ID)
			return err
		})
		if err != nil {
			t.Fatalf("step %d: %v", amount, err)
		}
	}

	var txns []models.WalletTransaction
	if err := db.Where("user_id = ?", user.ID).Order("created_at asc").Find(&txns).Error; err != nil {
		t.Fatalf("load transactions: %v", err)
	}
	if len(txns) != len(steps) {
		t.Fatalf("ledger rows: got %d, want %d", len(txns), len(steps))
	}

	var running int64
	for i, txn := range txns {
		running += txn.AmountCents
		if txn.BalanceAfterCents != running {
			t.Errorf("row %d snapshot: got %d, want running total %d", i, txn.BalanceAfterCents, running)
		}
	}
	if got := walletBalance(t, db, user.ID); got != running {
		t.Errorf("cached balance %d does not match ledger replay %d", got, running)
	}
}
