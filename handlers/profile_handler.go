package handlers

import (
	"github.com/nqhuy1905/course_market/database"
	"github.com/nqhuy1905/course_market/models"
	"github.com/gofiber/fiber/v2"
)

type UpdateProfileRequest struct {
	FullName          *string `json:"full_name"`
	BankName          *string `json:"bank_name"`
	BankAccountNumber *string `json:"bank_account_number"`
	BankAccountName   *string `json:"bank_account_name"`
}

func GetProfile(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var user models.User
	if err := database.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	return c.JSON(user)
}

// UpdateProfile lets a user change their display name and payout
// destination. The bank fields are what the revenue summary echoes back to
// operators when they settle a period.
func UpdateProfile(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var user models.User
	if err := database.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}

	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.BankName != nil {
		user.BankName = req.BankName
	}
	if req.BankAccountNumber != nil {
		user.BankAccountNumber = req.BankAccountNumber
	}
	if req.BankAccountName != nil {
		user.BankAccountName = req.BankAccountName
	}

	if err := database.DB.Save(&user).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
	}

	return c.JSON(user)
}
