package services

import (
	"testing"
	"time"

	"github.com/nqhuy1905/course_market/models"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens a fresh in-memory database per test. A single
// connection keeps sqlite's :memory: store alive and shared across the
// test's transactions.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Enrollment{},
		&models.Payment{},
		&models.RevenueEntry{},
		&models.WalletTransaction{},
	)
	if err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

func testConfig() RevenueConfig {
	return RevenueConfig{PlatformCommissionRate: 0.20, ReportingLocation: time.UTC}
}

func createUser(t *testing.T, db *gorm.DB, role string) models.User {
	t.Helper()
	user := models.User{
		FullName: role + " " + uuid.NewString()[:8],
		Email:    uuid.NewString()[:8] + "@example.com",
		Password: "not-a-real-hash",
		Role:     role,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create %s: %v", role, err)
	}
	return user
}

func createCourse(t *testing.T, db *gorm.DB, teacherID uuid.UUID, priceCents int64, discounted *int64) models.Course {
	t.Helper()
	course := models.Course{
		TeacherID:            teacherID,
		Title:                "Course " + uuid.NewString()[:8],
		PriceCents:           priceCents,
		DiscountedPriceCents: discounted,
		IsPublished:          true,
	}
	if err := db.Create(&course).Error; err != nil {
		t.Fatalf("create course: %v", err)
	}
	return course
}

func createSucceededPayment(t *testing.T, db *gorm.DB, buyerID uuid.UUID, amountCents int64, paidAt time.Time, courseIDs ...uuid.UUID) models.Payment {
	t.Helper()
	payment := models.Payment{
		UserID:      buyerID,
		AmountCents: amountCents,
		CourseIDs:   models.JoinCourseIDs(courseIDs),
		Provider:    "test",
		Status:      models.PaymentStatusSucceeded,
		PaidAt:      &paidAt,
	}
	if err := db.Create(&payment).Error; err != nil {
		t.Fatalf("create payment: %v", err)
	}
	return payment
}

func countEntries(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.RevenueEntry{}).Count(&n).Error; err != nil {
		t.Fatalf("count revenue entries: %v", err)
	}
	return n
}

func walletBalance(t *testing.T, db *gorm.DB, userID uuid.UUID) int64 {
	t.Helper()
	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	return user.WalletBalanceCents
}
