package handlers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nqhuy1905/course_market/database"
	"github.com/nqhuy1905/course_market/models"
	"github.com/nqhuy1905/course_market/services"
	"github.com/nqhuy1905/course_market/utils"
	"github.com/nqhuy1905/course_market/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetPendingPayouts lists every teacher with outstanding unpaid revenue for
// a period, with per-course detail.
func GetPendingPayouts(c *fiber.Ctx) error {
	yearMonth := c.Query("year_month")

	payouts, err := services.GetPendingPayouts(database.DB, yearMonth)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidPeriod) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "year_month must be in YYYY-MM form"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to aggregate pending payouts"})
	}

	return c.JSON(fiber.Map{"year_month": yearMonth, "payouts": payouts})
}

type MarkPayoutRequest struct {
	// Normal path: settle everything unpaid for one teacher and period.
	TeacherID *string `json:"teacher_id" validate:"omitempty,uuid"`
	YearMonth *string `json:"year_month"`

	// Exception path: settle exactly these entries. Can leave a teacher
	// partially settled for the period.
	RevenueEntryIDs []string `json:"revenue_entry_ids" validate:"omitempty,dive,uuid"`

	Note string `json:"note"`
}

// MarkPayout records that money was sent to a teacher out-of-band. It does
// not move money or call a banking API; it only flips ledger rows to paid
// and debits the teacher's wallet.
func MarkPayout(c *fiber.Ctx) error {
	operatorID := currentUserID(c)

	var req MarkPayoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	byPeriod := req.TeacherID != nil && req.YearMonth != nil
	byIDs := len(req.RevenueEntryIDs) > 0
	if byPeriod == byIDs {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Provide either teacher_id with year_month, or revenue_entry_ids, not both",
		})
	}

	var marked int
	var err error
	if byPeriod {
		teacherID := uuid.MustParse(*req.TeacherID)
		marked, err = services.MarkTeacherPeriodPaid(database.DB, teacherID, *req.YearMonth, operatorID, req.Note)
		if err == nil {
			go sendPayoutStatement(teacherID, *req.YearMonth)
			notifyPayoutMarked(teacherID, *req.YearMonth)
		}
	} else {
		entryIDs := make([]uuid.UUID, len(req.RevenueEntryIDs))
		for i, raw := range req.RevenueEntryIDs {
			entryIDs[i] = uuid.MustParse(raw)
		}
		marked, err = services.MarkEntriesPaid(database.DB, entryIDs, operatorID, req.Note)
		if err == nil {
			var entry models.RevenueEntry
			if database.DB.First(&entry, "id = ?", entryIDs[0]).Error == nil {
				notifyPayoutMarked(entry.TeacherID, entry.YearMonth)
			}
		}
	}

	if err != nil {
		switch {
		case errors.Is(err, utils.ErrInvalidPeriod):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "year_month must be in YYYY-MM form"})
		case errors.Is(err, services.ErrTeacherNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Teacher not found"})
		case errors.Is(err, services.ErrEntriesNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, services.ErrNothingToMark), errors.Is(err, services.ErrNoEntriesSelected):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Nothing to mark as paid for this selection"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to mark payout"})
		}
	}

	return c.JSON(fiber.Map{"message": "Payout recorded successfully", "entries_marked": marked})
}

func sendPayoutStatement(teacherID uuid.UUID, yearMonth string) {
	var teacher models.User
	if err := database.DB.First(&teacher, "id = ?", teacherID).Error; err != nil {
		return
	}
	summary, err := services.GetTeacherPeriodSummary(database.DB, teacherID, yearMonth, nil)
	if err != nil {
		return
	}
	services.GeneratePayoutStatement(teacher, *summary)
}

func notifyPayoutMarked(teacherID uuid.UUID, yearMonth string) {
	summary, err := services.GetTeacherPeriodSummary(database.DB, teacherID, yearMonth, nil)
	if err != nil {
		return
	}
	websocket.Publish(websocket.Event{
		Type:        websocket.EventPayoutMarked,
		TeacherID:   teacherID,
		YearMonth:   yearMonth,
		AmountCents: summary.PaidRevenueCents,
	})
}

type AdjustWalletRequest struct {
	UserID      string `json:"user_id" validate:"required,uuid"`
	AmountCents int64  `json:"amount_cents" validate:"required"`
	Description string `json:"description" validate:"required"`
}

// AdjustUserWallet applies a signed manual correction to a user's wallet.
func AdjustUserWallet(c *fiber.Ctx) error {
	operatorID := currentUserID(c)

	var req AdjustWalletRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var txn *models.WalletTransaction
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var innerErr error
		txn, innerErr = services.AdjustWallet(tx, uuid.MustParse(req.UserID), req.AmountCents, req.Description, operatorID)
		return innerErr
	})
	if err != nil {
		if errors.Is(err, services.ErrInsufficientBalance) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Adjustment would drive the balance below zero"})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(txn)
}

// GetDashboardAnalytics summarizes the platform's side of the ledger.
func GetDashboardAnalytics(c *fiber.Ctx) error {
	var totalStudents, totalTeachers, entriesTotal int64
	var platformRevenue, teacherRevenue, unpaidRevenue int64

	database.DB.Model(&models.User{}).Where("role = ?", "student").Count(&totalStudents)
	database.DB.Model(&models.User{}).Where("role = ?", "teacher").Count(&totalTeachers)
	database.DB.Model(&models.RevenueEntry{}).Count(&entriesTotal)

	database.DB.Model(&models.RevenueEntry{}).Select("COALESCE(SUM(platform_commission_cents), 0)").Row().Scan(&platformRevenue)
	database.DB.Model(&models.RevenueEntry{}).Select("COALESCE(SUM(teacher_revenue_cents), 0)").Row().Scan(&teacherRevenue)
	database.DB.Model(&models.RevenueEntry{}).Where("is_paid = ?", false).Select("COALESCE(SUM(teacher_revenue_cents), 0)").Row().Scan(&unpaidRevenue)

	var recent []models.RevenueEntry
	database.DB.Preload("Course").Order("created_at desc").Limit(5).Find(&recent)

	return c.JSON(fiber.Map{
		"total_students":                totalStudents,
		"total_teachers":                totalTeachers,
		"total_revenue_entries":         entriesTotal,
		"platform_commission_cents":     platformRevenue,
		"teacher_revenue_cents":         teacherRevenue,
		"outstanding_unpaid_cents":      unpaidRevenue,
		"recent_entries":                recent,
	})
}

// GenerateRevenueReport exports a period's revenue entries as CSV.
func GenerateRevenueReport(c *fiber.Ctx) error {
	yearMonth := c.Query("year_month", utils.CanonicalPeriod(time.Now(), time.UTC))
	if !utils.ValidPeriod(yearMonth) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "year_month must be in YYYY-MM form"})
	}

	var entries []models.RevenueEntry
	database.DB.
		Preload("Course").
		Preload("Teacher").
		Where("year_month = ?", yearMonth).
		Order("created_at asc").
		Find(&entries)

	b := new(bytes.Buffer)
	w := csv.NewWriter(b)

	headers := []string{"Entry ID", "Date", "Teacher", "Course", "Course Amount", "Teacher Revenue", "Platform Commission", "Paid", "Payout Date"}
	if err := w.Write(headers); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to write CSV header"})
	}

	for i := range entries {
		e := &entries[i]
		payoutDate := ""
		if e.PayoutDate != nil {
			payoutDate = e.PayoutDate.Format("2006-01-02 15:04")
		}
		row := []string{
			e.ID.String(),
			e.CreatedAt.Format("2006-01-02 15:04"),
			e.Teacher.FullName,
			e.Course.Title,
			strconv.FormatInt(e.CourseAmountCents(), 10),
			strconv.FormatInt(e.TeacherRevenueCents, 10),
			strconv.FormatInt(e.PlatformCommissionCents, 10),
			strconv.FormatBool(e.IsPaid),
			payoutDate,
		}
		if err := w.Write(row); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to write CSV row"})
		}
	}
	w.Flush()

	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"revenue_%s.csv\"", yearMonth))

	return c.Send(b.Bytes())
}

// PromoteToTeacher flips a user into the teacher role so they can publish
// courses and receive revenue.
func PromoteToTeacher(c *fiber.Ctx) error {
	userID := c.Params("userId")

	result := database.DB.Model(&models.User{}).Where("id = ?", userID).Update("role", "teacher")
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update user role"})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	return c.JSON(fiber.Map{"message": "User promoted to teacher"})
}
