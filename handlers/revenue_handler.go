package handlers

import (
	"errors"

	"github.com/nqhuy1905/course_market/database"
	"github.com/nqhuy1905/course_market/models"
	"github.com/nqhuy1905/course_market/services"
	"github.com/nqhuy1905/course_market/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// GetMyRevenueSummary returns a teacher's revenue for one settlement period,
// with per-course breakdown, payout status and the bank destination on file.
func GetMyRevenueSummary(c *fiber.Ctx) error {
	teacherID := currentUserID(c)

	yearMonth := c.Query("year_month")
	if !utils.ValidPeriod(yearMonth) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "year_month must be in YYYY-MM form"})
	}

	var courseFilter *uuid.UUID
	if raw := c.Query("course_id"); raw != "" {
		courseID, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid course_id"})
		}
		courseFilter = &courseID
	}

	summary, err := services.GetTeacherPeriodSummary(database.DB, teacherID, yearMonth, courseFilter)
	if err != nil {
		if errors.Is(err, services.ErrCourseNotOwned) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "This course does not belong to you"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to aggregate revenue"})
	}

	var teacher models.User
	if err := database.DB.First(&teacher, "id = ?", teacherID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Teacher profile not found"})
	}

	return c.JSON(fiber.Map{
		"summary": summary,
		"payout_destination": fiber.Map{
			"bank_name":           teacher.BankName,
			"bank_account_number": teacher.BankAccountNumber,
			"bank_account_name":   teacher.BankAccountName,
		},
	})
}

// GetMyWallet returns the cached balance and the transaction log behind it.
func GetMyWallet(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var user models.User
	if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	var transactions []models.WalletTransaction
	database.DB.Where("user_id = ?", userID).Order("created_at desc").Limit(100).Find(&transactions)

	return c.JSON(fiber.Map{
		"balance_cents": user.WalletBalanceCents,
		"transactions":  transactions,
	})
}
