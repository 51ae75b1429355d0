package services

import (
	"errors"
	"testing"
	"time"

	"github.com/nqhuy1905/course_market/models"
	"github.com/google/uuid"
)

var march10 = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func TestPostRevenueSingleCourse(t *testing.T) {
	db := setupTestDB(t)
	teacher := createUser(t, db, "teacher")
	buyer := createUser(t, db, "student")
	course := createCourse(t, db, teacher.ID, 100000, nil)
	payment := createSucceededPayment(t, db, buyer.ID, 100000, march10, course.ID)

	if err := PostRevenueForPayment(db, testConfig(), &payment); err != nil {
		t.Fatalf("PostRevenueForPayment: %v", err)
	}

	var entry models.RevenueEntry
	if err := db.First(&entry, "payment_id = ? AND course_id = ?", payment.ID, course.ID).Error; err != nil {
		t.Fatalf("load entry: %v", err)
	}
	if entry.TeacherRevenueCents != 80000 {
		t.Errorf("teacher revenue: got %d, want 80000", entry.TeacherRevenueCents)
	}
	if entry.PlatformCommissionCents != 20000 {
		t.Errorf("platform commission: got %d, want 20000", entry.PlatformCommissionCents)
	}
	if entry.IsPaid {
		t.Error("new entry must start unpaid")
	}
	if entry.YearMonth != "2025-03" {
		t.Errorf("period: got %q, want 2025-03", entry.YearMonth)
	}
	if entry.TeacherID != teacher.ID {
		t.Errorf("teacher attribution: got %s, want %s", entry.TeacherID, teacher.ID)
	}

	// Posting auto-credits the teacher's wallet with their share.
	if got := walletBalance(t, db, teacher.ID); got != 80000 {
		t.Errorf("teacher wallet after posting: got %d, want 80000", got)
	}
}

func TestPostRevenueIdempotent(t *testing.T) {
	db := setupTestDB(t)
	teacher := createUser(t, db, "teacher")
	buyer := createUser(t, db, "student")
	c1 := createCourse(t, db, teacher.ID, 60000, nil)
	c2 := createCourse(t, db, teacher.ID, 40000, nil)
	payment := createSucceededPayment(t, db, buyer.ID, 100000, march10, c1.ID, c2.ID)

	for i := 0; i < 3; i++ {
		if err := PostRevenueForPayment(db, testConfig(), &payment); err != nil {
			t.Fatalf("posting attempt %d: %v", i+1, err)
		}
	}

	if got := countEntries(t, db); got != 2 {
		t.Errorf("entries after redelivery: got %d, want 2", got)
	}
	// Wallet credited once, not three times: 80% of the full payment.
	if got := walletBalance(t, db, teacher.ID); got != 80000 {
		t.Errorf("teacher wallet after redelivery: got %d, want 80000", got)
	}
}

func TestPostRevenueProportionalSplit(t *testing.T) {
	db := setupTestDB(t)
	t1 := createUser(t, db, "teacher")
	t2 := createUser(t, db, "teacher")
	buyer := createUser(t, db, "student")
	c1 := createCourse(t, db, t1.ID, 60000, nil)
	c2 := createCourse(t, db, t2.ID, 40000, nil)

	// Collected less than list total, e.g. a cart-level discount.
	payment := createSucceededPayment(t, db, buyer.ID, 90000, march10, c1.ID, c2.ID)
	if err := PostRevenueForPayment(db, testConfig(), &payment); err != nil {
		t.Fatalf("PostRevenueForPayment: %v", err)
	}

	var e1, e2 models.RevenueEntry
	if err := db.First(&e1, "course_id = ?", c1.ID).Error; err != nil {
		t.Fatalf("load entry 1: %v", err)
	}
	if err := db.First(&e2, "course_id = ?", c2.ID).Error; err != nil {
		t.Fatalf("load entry 2: %v", err)
	}

	// c1's share: round(60000/100000 * 90000) = 54000, split 80/20.
	if e1.CourseAmountCents() != 54000 || e1.TeacherRevenueCents != 43200 {
		t.Errorf("course 1 split: amount %d teacher %d, want 54000/43200", e1.CourseAmountCents(), e1.TeacherRevenueCents)
	}
	// c2's share: round(40000/100000 * 90000) = 36000.
	if e2.CourseAmountCents() != 36000 || e2.TeacherRevenueCents != 28800 {
		t.Errorf("course 2 split: amount %d teacher %d, want 36000/28800", e2.CourseAmountCents(), e2.TeacherRevenueCents)
	}

	// Split-sum invariant inside each entry.
	for _, e := range []models.RevenueEntry{e1, e2} {
		if e.TeacherRevenueCents+e.PlatformCommissionCents != e.CourseAmountCents() {
			t.Errorf("entry %s: split does not sum to course amount", e.ID)
		}
	}
}

func TestPostRevenueUsesDiscountedPrice(t *testing.T) {
	db := setupTestDB(t)
	teacher := createUser(t, db, "teacher")
	buyer := createUser(t, db, "student")
	discounted := int64(75000)
	course := createCourse(t, db, teacher.ID, 100000, &discounted)
	payment := createSucceededPayment(t, db, buyer.ID, 75000, march10, course.ID)

	if err := PostRevenueForPayment(db, testConfig(), &payment); err != nil {
		t.Fatalf("PostRevenueForPayment: %v", err)
	}

	var entry models.RevenueEntry
	if err := db.First(&entry, "payment_id = ?", payment.ID).Error; err != nil {
		t.Fatalf("load entry: %v", err)
	}
	if entry.CoursePriceCents != 75000 {
		t.Errorf("course price: got %d, want discounted 75000", entry.CoursePriceCents)
	}
	if entry.TeacherRevenueCents != 60000 {
		t.Errorf("teacher revenue: got %d, want 60000", entry.TeacherRevenueCents)
	}
}

func TestPostRevenueSkipsFreeAndMissingCourses(t *testing.T) {
	db := setupTestDB(t)
	teacher := createUser(t, db, "teacher")
	buyer := createUser(t, db, "student")
	paid := createCourse(t, db, teacher.ID, 50000, nil)
	free := createCourse(t, db, teacher.ID, 0, nil)
	missing := uuid.New()

	payment := createSucceededPayment(t, db, buyer.ID, 50000, march10, paid.ID, free.ID, missing)
	if err := PostRevenueForPayment(db, testConfig(), &payment); err != nil {
		t.Fatalf("PostRevenueForPayment: %v", err)
	}

	if got := countEntries(t, db); got != 1 {
		t.Errorf("entries: got %d, want only the paid course's", got)
	}
	var entry models.RevenueEntry
	if err := db.First(&entry, "course_id = ?", paid.ID).Error; err != nil {
		t.Fatalf("paid course entry missing: %v", err)
	}
	if entry.CourseAmountCents() != 50000 {
		t.Errorf("paid course amount: got %d, want full 50000", entry.CourseAmountCents())
	}
}

func TestPostRevenueRejectsPendingPayment(t *testing.T) {
	db := setupTestDB(t)
	teacher := createUser(t, db, "teacher")
	buyer := createUser(t, db, "student")
	course := createCourse(t, db, teacher.ID, 50000, nil)

	payment := models.Payment{
		UserID:      buyer.ID,
		AmountCents: 50000,
		CourseIDs:   course.ID.String(),
		Provider:    "test",
		Status:      models.PaymentStatusPending,
	}
	if err := db.Create(&payment).Error; err != nil {
		t.Fatalf("create payment: %v", err)
	}

	if err := PostRevenueForPayment(db, testConfig(), &payment); !errors.Is(err, ErrPaymentNotConfirmed) {
		t.Errorf("got %v, want ErrPaymentNotConfirmed", err)
	}
	if got := countEntries(t, db); got != 0 {
		t.Errorf("entries after rejected posting: got %d, want 0", got)
	}
}

func TestPostRevenueAbortsOnBadCourseList(t *testing.T) {
	db := setupTestDB(t)
	buyer := createUser(t, db, "student")

	payment := models.Payment{
		UserID:      buyer.ID,
		AmountCents: 50000,
		CourseIDs:   "not-a-uuid,also-bad",
		Provider:    "test",
		Status:      models.PaymentStatusSucceeded,
	}
	if err := db.Create(&payment).Error; err != nil {
		t.Fatalf("create payment: %v", err)
	}

	if err := PostRevenueForPayment(db, testConfig(), &payment); !errors.Is(err, ErrBadCourseIDList) {
		t.Errorf("got %v, want ErrBadCourseIDList", err)
	}
	if got := countEntries(t, db); got != 0 {
		t.Errorf("entries after aborted posting: got %d, want 0", got)
	}
}

func TestPostRevenueConfigurableSplit(t *testing.T) {
	db := setupTestDB(t)
	teacher := createUser(t, db, "teacher")
	buyer := createUser(t, db, "student")
	course := createCourse(t, db, teacher.ID, 100000, nil)
	payment := createSucceededPayment(t, db, buyer.ID, 100000, march10, course.ID)

	cfg := RevenueConfig{PlatformCommissionRate: 0.30, ReportingLocation: time.UTC}
	if err := PostRevenueForPayment(db, cfg, &payment); err != nil {
		t.Fatalf("PostRevenueForPayment: %v", err)
	}

	var entry models.RevenueEntry
	if err := db.First(&entry, "payment_id = ?", payment.ID).Error; err != nil {
		t.Fatalf("load entry: %v", err)
	}
	if entry.TeacherRevenueCents != 70000 || entry.PlatformCommissionCents != 30000 {
		t.Errorf("70/30 split: got %d/%d", entry.TeacherRevenueCents, entry.PlatformCommissionCents)
	}
}

func TestPostRevenueLinksEnrollment(t *testing.T) {
	db := setupTestDB(t)
	teacher := createUser(t, db, "teacher")
	buyer := createUser(t, db, "student")
	course := createCourse(t, db, teacher.ID, 50000, nil)
	payment := createSucceededPayment(t, db, buyer.ID, 50000, march10, course.ID)

	enrollment := models.Enrollment{UserID: buyer.ID, CourseID: course.ID, PaymentID: &payment.ID}
	if err := db.Create(&enrollment).Error; err != nil {
		t.Fatalf("create enrollment: %v", err)
	}

	if err := PostRevenueForPayment(db, testConfig(), &payment); err != nil {
		t.Fatalf("PostRevenueForPayment: %v", err)
	}

	var entry models.RevenueEntry
	if err := db.First(&entry, "payment_id = ?", payment.ID).Error; err != nil {
		t.Fatalf("load entry: %v", err)
	}
	if entry.EnrollmentID == nil || *entry.EnrollmentID != enrollment.ID {
		t.Errorf("enrollment link: got %v, want %s", entry.EnrollmentID, enrollment.ID)
	}
}
