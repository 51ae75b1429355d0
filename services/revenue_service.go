package services

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	config "github.com/nqhuy1905/course_market/configs"
	"github.com/nqhuy1905/course_market/models"
	"github.com/nqhuy1905/course_market/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrPaymentNotConfirmed = errors.New("revenue can only be posted for a succeeded payment")
	ErrBadCourseIDList     = errors.New("payment carries an unparsable course id list")
)

// RevenueConfig carries the split parameters for the posting engine. It is
// passed in rather than read from package state so tests can exercise other
// splits.
type RevenueConfig struct {
	// PlatformCommissionRate is the platform's cut, e.g. 0.20. The teacher
	// keeps the rest.
	PlatformCommissionRate float64

	// ReportingLocation fixes the timezone used to bucket payments into
	// YYYY-MM settlement periods.
	ReportingLocation *time.Location
}

func (c RevenueConfig) TeacherShare() float64 {
	return 1 - c.PlatformCommissionRate
}

// LoadRevenueConfig reads PLATFORM_COMMISSION_RATE (default 0.20) and
// REPORTING_TIMEZONE (default Asia/Ho_Chi_Minh) from the environment.
func LoadRevenueConfig() RevenueConfig {
	rate := 0.20
	if raw := config.Config("PLATFORM_COMMISSION_RATE"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed >= 1 {
			log.Printf("⚠️ Invalid PLATFORM_COMMISSION_RATE %q, using default 0.20", raw)
		} else {
			rate = parsed
		}
	}

	zone := config.Config("REPORTING_TIMEZONE")
	if zone == "" {
		zone = "Asia/Ho_Chi_Minh"
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		log.Printf("⚠️ Unknown REPORTING_TIMEZONE %q, using UTC", zone)
		loc = time.UTC
	}

	return RevenueConfig{PlatformCommissionRate: rate, ReportingLocation: loc}
}

// PostRevenueForPayment writes one RevenueEntry per purchased course of a
// confirmed payment and credits each owning teacher's wallet, all in one
// transaction. Safe to invoke any number of times for the same payment:
// existing (payment, course) entries are skipped, and a duplicate-key
// rejection from a racing redelivery is absorbed as success.
//
// Courses that cannot be resolved are logged and skipped rather than failing
// the whole posting; blocking attribution for unrelated teachers over one
// bad course would be worse. An unparsable course id list, in contrast,
// aborts loudly so the webhook retries.
func PostRevenueForPayment(db *gorm.DB, cfg RevenueConfig, payment *models.Payment) error {
	if payment.Status != models.PaymentStatusSucceeded {
		return ErrPaymentNotConfirmed
	}

	courseIDs, err := payment.ParseCourseIDs()
	if err != nil {
		return fmt.Errorf("%w: payment %s: %v", ErrBadCourseIDList, payment.ID, err)
	}
	if len(courseIDs) == 0 {
		return nil
	}

	var courses []models.Course
	if err := db.Where("id IN ?", courseIDs).Find(&courses).Error; err != nil {
		return err
	}
	byID := make(map[uuid.UUID]models.Course, len(courses))
	for _, course := range courses {
		byID[course.ID] = course
	}

	// Proportional base: effective prices of the courses that resolve.
	// Unresolvable courses are excluded from both the base and the entries.
	var totalOfParts int64
	for _, id := range courseIDs {
		if course, ok := byID[id]; ok {
			totalOfParts += course.EffectivePriceCents()
		}
	}

	paidAt := payment.CreatedAt
	if payment.PaidAt != nil {
		paidAt = *payment.PaidAt
	}
	period := utils.CanonicalPeriod(paidAt, cfg.ReportingLocation)

	err = db.Transaction(func(tx *gorm.DB) error {
		for _, courseID := range courseIDs {
			course, ok := byID[courseID]
			if !ok {
				log.Printf("⚠️ Skipping revenue for payment %s: course %s not found", payment.ID, courseID)
				continue
			}
			if course.TeacherID == uuid.Nil {
				log.Printf("⚠️ Skipping revenue for payment %s: course %s has no owner", payment.ID, course.ID)
				continue
			}

			price := course.EffectivePriceCents()
			if price <= 0 {
				// Free course: nothing to attribute.
				continue
			}

			courseAmount := utils.SplitProportional(payment.AmountCents, price, totalOfParts)
			if courseAmount <= 0 {
				continue
			}
			teacherCents, platformCents := utils.SplitCommission(courseAmount, cfg.TeacherShare())

			var existing models.RevenueEntry
			err := tx.Where("payment_id = ? AND course_id = ?", payment.ID, course.ID).First(&existing).Error
			if err == nil {
				continue // already posted, e.g. webhook redelivery
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			entry := models.RevenueEntry{
				PaymentID:               payment.ID,
				CourseID:                course.ID,
				TeacherID:               course.TeacherID,
				EnrollmentID:            findEnrollmentID(tx, payment.UserID, course.ID),
				YearMonth:               period,
				TotalAmountCents:        payment.AmountCents,
				CoursePriceCents:        price,
				TeacherRevenueCents:     teacherCents,
				PlatformCommissionCents: platformCents,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}

			if teacherCents > 0 {
				description := fmt.Sprintf("Sale of %q (payment %s, period %s)", course.Title, payment.ID, period)
				if _, err := CreditWallet(tx, course.TeacherID, teacherCents, models.WalletSourceCourseSale, description, &course.ID, nil); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// A concurrent redelivery won the race; its posting is ours.
		log.Printf("Revenue for payment %s already posted by a concurrent delivery", payment.ID)
		return nil
	}
	return err
}

// findEnrollmentID links a revenue entry to the buyer's enrollment when one
// exists. Best effort only; the ledger is correct without it.
func findEnrollmentID(tx *gorm.DB, userID, courseID uuid.UUID) *uuid.UUID {
	var enrollment models.Enrollment
	if err := tx.Where("user_id = ? AND course_id = ?", userID, courseID).First(&enrollment).Error; err != nil {
		return nil
	}
	return &enrollment.ID
}
