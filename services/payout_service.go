package services

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/nqhuy1905/course_market/models"
	"github.com/nqhuy1905/course_market/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PayoutStatusPending       = "PENDING"
	PayoutStatusPartiallyPaid = "PARTIALLY_PAID"
	PayoutStatusFullyPaid     = "FULLY_PAID"
)

var (
	ErrCourseNotOwned     = errors.New("course does not belong to this teacher")
	ErrTeacherNotFound    = errors.New("teacher not found")
	ErrNoEntriesSelected  = errors.New("no revenue entries selected")
	ErrNothingToMark      = errors.New("no unpaid revenue entries to mark")
	ErrEntriesNotFound    = errors.New("some revenue entry ids do not exist")
)

type CourseRevenueSummary struct {
	CourseID           uuid.UUID `json:"course_id"`
	CourseTitle        string    `json:"course_title"`
	TotalRevenueCents  int64     `json:"total_revenue_cents"`
	PaidRevenueCents   int64     `json:"paid_revenue_cents"`
	UnpaidRevenueCents int64     `json:"unpaid_revenue_cents"`
	TotalEntries       int       `json:"total_entries"`
	PaidEntries        int       `json:"paid_entries"`
	UnpaidEntries      int       `json:"unpaid_entries"`
	Status             string    `json:"status"`
}

type TeacherPeriodSummary struct {
	TeacherID          uuid.UUID  `json:"teacher_id"`
	YearMonth          string     `json:"year_month"`
	TotalRevenueCents  int64      `json:"total_revenue_cents"`
	PaidRevenueCents   int64      `json:"paid_revenue_cents"`
	UnpaidRevenueCents int64      `json:"unpaid_revenue_cents"`
	TotalEntries       int        `json:"total_entries"`
	PaidEntries        int        `json:"paid_entries"`
	UnpaidEntries      int        `json:"unpaid_entries"`
	LastPayoutDate     *time.Time `json:"last_payout_date"`
	LastPayoutNote     *string    `json:"last_payout_note"`
	Status             string     `json:"status"`
	Courses            []CourseRevenueSummary `json:"courses"`
}

type PendingTeacherPayout struct {
	TeacherID          uuid.UUID `json:"teacher_id"`
	TeacherName        string    `json:"teacher_name"`
	TeacherEmail       string    `json:"teacher_email"`
	UnpaidRevenueCents int64     `json:"unpaid_revenue_cents"`
	UnpaidEntries      int       `json:"unpaid_entries"`
	Courses            []CourseRevenueSummary `json:"courses"`
}

// derivePayoutStatus maps totals onto the three-state payout status.
// FULLY_PAID requires at least one entry; an empty scope is PENDING.
func derivePayoutStatus(totalCents, unpaidCents int64) string {
	switch {
	case totalCents <= 0:
		return PayoutStatusPending
	case unpaidCents == 0:
		return PayoutStatusFullyPaid
	case unpaidCents == totalCents:
		return PayoutStatusPending
	default:
		return PayoutStatusPartiallyPaid
	}
}

// GetTeacherPeriodSummary aggregates a teacher's revenue entries for one
// settlement period, optionally restricted to a single course. The course
// filter is ownership-checked: asking for somebody else's course is a
// permission error, not a silent empty result. No entries is a valid result
// with zero totals and PENDING status.
func GetTeacherPeriodSummary(db *gorm.DB, teacherID uuid.UUID, yearMonth string, courseFilter *uuid.UUID) (*TeacherPeriodSummary, error) {
	if !utils.ValidPeriod(yearMonth) {
		return nil, utils.ErrInvalidPeriod
	}

	query := db.Preload("Course").Where("teacher_id = ? AND year_month = ?", teacherID, yearMonth)
	if courseFilter != nil {
		var course models.Course
		if err := db.First(&course, "id = ?", courseFilter).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrCourseNotOwned
			}
			return nil, err
		}
		if course.TeacherID != teacherID {
			return nil, ErrCourseNotOwned
		}
		query = query.Where("course_id = ?", courseFilter)
	}

	var entries []models.RevenueEntry
	if err := query.Order("created_at asc").Find(&entries).Error; err != nil {
		return nil, err
	}

	summary := &TeacherPeriodSummary{TeacherID: teacherID, YearMonth: yearMonth}
	byCourse := make(map[uuid.UUID]*CourseRevenueSummary)

	for i := range entries {
		entry := &entries[i]
		course, ok := byCourse[entry.CourseID]
		if !ok {
			course = &CourseRevenueSummary{CourseID: entry.CourseID, CourseTitle: entry.Course.Title}
			byCourse[entry.CourseID] = course
		}

		summary.TotalRevenueCents += entry.TeacherRevenueCents
		summary.TotalEntries++
		course.TotalRevenueCents += entry.TeacherRevenueCents
		course.TotalEntries++

		if entry.IsPaid {
			summary.PaidRevenueCents += entry.TeacherRevenueCents
			summary.PaidEntries++
			course.PaidRevenueCents += entry.TeacherRevenueCents
			course.PaidEntries++

			if entry.PayoutDate != nil && (summary.LastPayoutDate == nil || entry.PayoutDate.After(*summary.LastPayoutDate)) {
				summary.LastPayoutDate = entry.PayoutDate
				summary.LastPayoutNote = entry.PayoutNote
			}
		} else {
			summary.UnpaidRevenueCents += entry.TeacherRevenueCents
			summary.UnpaidEntries++
			course.UnpaidRevenueCents += entry.TeacherRevenueCents
			course.UnpaidEntries++
		}
	}

	summary.Status = derivePayoutStatus(summary.TotalRevenueCents, summary.UnpaidRevenueCents)
	for _, course := range byCourse {
		course.Status = derivePayoutStatus(course.TotalRevenueCents, course.UnpaidRevenueCents)
		summary.Courses = append(summary.Courses, *course)
	}
	sort.Slice(summary.Courses, func(i, j int) bool {
		return summary.Courses[i].CourseTitle < summary.Courses[j].CourseTitle
	})

	return summary, nil
}

// GetPendingPayouts is the operator's "who do I owe money to this month"
// view: all unpaid entries for the period grouped by teacher, with per-course
// detail. Teachers whose unpaid total is zero are dropped.
func GetPendingPayouts(db *gorm.DB, yearMonth string) ([]PendingTeacherPayout, error) {
	if !utils.ValidPeriod(yearMonth) {
		return nil, utils.ErrInvalidPeriod
	}

	var entries []models.RevenueEntry
	err := db.Preload("Course").Preload("Teacher").
		Where("year_month = ? AND is_paid = ?", yearMonth, false).
		Order("created_at asc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	byTeacher := make(map[uuid.UUID]*PendingTeacherPayout)
	courseIdx := make(map[uuid.UUID]map[uuid.UUID]*CourseRevenueSummary)

	for i := range entries {
		entry := &entries[i]
		payout, ok := byTeacher[entry.TeacherID]
		if !ok {
			payout = &PendingTeacherPayout{
				TeacherID:    entry.TeacherID,
				TeacherName:  entry.Teacher.FullName,
				TeacherEmail: entry.Teacher.Email,
			}
			byTeacher[entry.TeacherID] = payout
			courseIdx[entry.TeacherID] = make(map[uuid.UUID]*CourseRevenueSummary)
		}

		payout.UnpaidRevenueCents += entry.TeacherRevenueCents
		payout.UnpaidEntries++

		course, ok := courseIdx[entry.TeacherID][entry.CourseID]
		if !ok {
			course = &CourseRevenueSummary{
				CourseID:    entry.CourseID,
				CourseTitle: entry.Course.Title,
				Status:      PayoutStatusPending,
			}
			courseIdx[entry.TeacherID][entry.CourseID] = course
		}
		course.TotalRevenueCents += entry.TeacherRevenueCents
		course.UnpaidRevenueCents += entry.TeacherRevenueCents
		course.TotalEntries++
		course.UnpaidEntries++
	}

	payouts := make([]PendingTeacherPayout, 0, len(byTeacher))
	for teacherID, payout := range byTeacher {
		if payout.UnpaidRevenueCents == 0 {
			continue
		}
		for _, course := range courseIdx[teacherID] {
			payout.Courses = append(payout.Courses, *course)
		}
		sort.Slice(payout.Courses, func(i, j int) bool {
			return payout.Courses[i].CourseTitle < payout.Courses[j].CourseTitle
		})
		payouts = append(payouts, *payout)
	}
	sort.Slice(payouts, func(i, j int) bool {
		return payouts[i].UnpaidRevenueCents > payouts[j].UnpaidRevenueCents
	})

	return payouts, nil
}

// MarkEntriesPaid marks an explicit set of revenue entries as settled,
// recording who, when and why, and debits each affected teacher's wallet in
// the same transaction. This is the exception path: marking a strict subset
// of a teacher's unpaid entries deliberately leaves the period
// PARTIALLY_PAID. Already-paid entries in the set are skipped and logged,
// never re-processed; once paid, an entry's payout metadata is never cleared.
//
// Returns the number of entries actually marked.
func MarkEntriesPaid(db *gorm.DB, entryIDs []uuid.UUID, operatorID uuid.UUID, note string) (int, error) {
	if len(entryIDs) == 0 {
		return 0, ErrNoEntriesSelected
	}

	marked := 0
	err := db.Transaction(func(tx *gorm.DB) error {
		var entries []models.RevenueEntry
		if err := tx.Where("id IN ?", entryIDs).Find(&entries).Error; err != nil {
			return err
		}
		if len(entries) != len(entryIDs) {
			return fmt.Errorf("%w: requested %d, found %d", ErrEntriesNotFound, len(entryIDs), len(entries))
		}

		now := time.Now()
		debits := make(map[uuid.UUID]int64)

		for i := range entries {
			entry := &entries[i]
			if entry.IsPaid {
				log.Printf("Skipping revenue entry %s: already paid on %v", entry.ID, entry.PayoutDate)
				continue
			}

			entry.IsPaid = true
			entry.PayoutDate = &now
			entry.PayoutByUserID = &operatorID
			if note != "" {
				entry.PayoutNote = &note
			}
			if err := tx.Save(entry).Error; err != nil {
				return err
			}

			debits[entry.TeacherID] += entry.TeacherRevenueCents
			marked++
		}

		if marked == 0 {
			return ErrNothingToMark
		}

		for teacherID, amount := range debits {
			if amount == 0 {
				continue
			}
			description := fmt.Sprintf("Payout of %d entries by operator %s", marked, operatorID)
			if note != "" {
				description += ": " + note
			}
			if _, err := DebitWallet(tx, teacherID, amount, models.WalletSourceTeacherPayout, description, &operatorID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return marked, nil
}

// MarkTeacherPeriodPaid settles every currently-unpaid entry for one teacher
// and period through the same code path as MarkEntriesPaid, guaranteeing
// zero unpaid revenue for the scope when it returns. An entry posted
// concurrently with the batch is simply not included and stays unpaid for
// the next run. This is the normal operator path.
func MarkTeacherPeriodPaid(db *gorm.DB, teacherID uuid.UUID, yearMonth string, operatorID uuid.UUID, note string) (int, error) {
	if !utils.ValidPeriod(yearMonth) {
		return 0, utils.ErrInvalidPeriod
	}

	var teacher models.User
	if err := db.First(&teacher, "id = ?", teacherID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrTeacherNotFound
		}
		return 0, err
	}

	var entryIDs []uuid.UUID
	err := db.Model(&models.RevenueEntry{}).
		Where("teacher_id = ? AND year_month = ? AND is_paid = ?", teacherID, yearMonth, false).
		Pluck("id", &entryIDs).Error
	if err != nil {
		return 0, err
	}
	if len(entryIDs) == 0 {
		return 0, ErrNothingToMark
	}

	return MarkEntriesPaid(db, entryIDs, operatorID, note)
}
