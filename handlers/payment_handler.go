package handlers

import (
	"log"
	"time"

	"github.com/nqhuy1905/course_market/database"
	"github.com/nqhuy1905/course_market/models"
	"github.com/nqhuy1905/course_market/notifications"
	"github.com/nqhuy1905/course_market/services"
	"github.com/nqhuy1905/course_market/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CheckoutRequest struct {
	CourseIDs []string `json:"course_ids" validate:"required,min=1,dive,uuid"`
	Provider  string   `json:"provider" validate:"required"`
}

// CreateCheckout builds a pending payment covering one or more courses. The
// gateway flow itself happens elsewhere; the record created here is what the
// confirmation webhook later resolves.
func CreateCheckout(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	courseIDs := make([]uuid.UUID, len(req.CourseIDs))
	for i, raw := range req.CourseIDs {
		courseIDs[i] = uuid.MustParse(raw)
	}

	var courses []models.Course
	if err := database.DB.Where("id IN ? AND is_published = ?", courseIDs, true).Find(&courses).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}
	if len(courses) != len(courseIDs) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "One or more courses are unavailable"})
	}

	var totalCents int64
	for i := range courses {
		totalCents += courses[i].EffectivePriceCents()
	}

	payment := models.Payment{
		UserID:      userID,
		AmountCents: totalCents,
		CourseIDs:   models.JoinCourseIDs(courseIDs),
		Provider:    req.Provider,
		Status:      models.PaymentStatusPending,
	}
	if err := database.DB.Create(&payment).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create payment"})
	}

	return c.Status(fiber.StatusCreated).JSON(payment)
}

type PaymentWebhookPayload struct {
	PaymentID     string `json:"payment_id"`
	ResultCode    int    `json:"result_code"`
	ResultDesc    string `json:"result_desc"`
	ProviderTxnID string `json:"provider_txn_id"`
}

// HandlePaymentWebhook consumes the gateway's already-verified confirmation.
// On success it confirms the payment, creates enrollments and posts revenue.
// Redeliveries are safe end to end: the posting engine is idempotent on
// (payment, course).
func HandlePaymentWebhook(c *fiber.Ctx) error {
	var payload PaymentWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse webhook payload"})
	}

	var payment models.Payment
	if err := database.DB.Where("id = ?", payload.PaymentID).First(&payment).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Payment record not found"})
	}

	if payment.Status == models.PaymentStatusSucceeded {
		// Redelivery after a crash may have left revenue unposted; the
		// posting engine is idempotent, so re-running it only fills gaps.
		if err := services.PostRevenueForPayment(database.DB, services.LoadRevenueConfig(), &payment); err != nil {
			log.Printf("🔥 CRITICAL: Revenue re-posting failed for payment %s: %v", payment.ID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to post revenue"})
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Webhook already processed"})
	}

	if payload.ResultCode != 0 {
		payment.Status = models.PaymentStatusFailed
		database.DB.Save(&payment)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Acknowledged failed payment"})
	}

	courseIDs, err := payment.ParseCourseIDs()
	if err != nil {
		log.Printf("🔥 CRITICAL: Payment %s carries an unparsable course list: %v", payment.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Corrupt course list on payment"})
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		payment.Status = models.PaymentStatusSucceeded
		payment.PaidAt = &now
		if payload.ProviderTxnID != "" {
			payment.ProviderTxnID = &payload.ProviderTxnID
		}
		if err := tx.Save(&payment).Error; err != nil {
			return err
		}

		for _, courseID := range courseIDs {
			var existing models.Enrollment
			err := tx.Where("user_id = ? AND course_id = ?", payment.UserID, courseID).First(&existing).Error
			if err == nil {
				continue
			}
			if err != gorm.ErrRecordNotFound {
				return err
			}
			enrollment := models.Enrollment{
				UserID:    payment.UserID,
				CourseID:  courseID,
				PaymentID: &payment.ID,
			}
			if err := tx.Create(&enrollment).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("🔥 CRITICAL: Error confirming payment %s: %v", payment.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process webhook"})
	}

	if err := services.PostRevenueForPayment(database.DB, services.LoadRevenueConfig(), &payment); err != nil {
		// Surface for retry: the webhook will be redelivered and posting
		// is idempotent, so nothing is double-counted.
		log.Printf("🔥 CRITICAL: Revenue posting failed for payment %s: %v", payment.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to post revenue"})
	}

	notifyRevenuePosted(&payment, courseIDs)

	go func() {
		var buyer models.User
		if err := database.DB.First(&buyer, "id = ?", payment.UserID).Error; err != nil {
			return
		}
		notifications.SendEmail(buyer.FullName, buyer.Email, "Your Purchase is Confirmed!",
			"<h1>Purchase Confirmed</h1><p>Your payment was successful and your courses are now available in your library.</p>")
	}()

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Webhook processed successfully"})
}

func notifyRevenuePosted(payment *models.Payment, courseIDs []uuid.UUID) {
	var entries []models.RevenueEntry
	if err := database.DB.Where("payment_id = ?", payment.ID).Find(&entries).Error; err != nil {
		return
	}
	for i := range entries {
		websocket.Publish(websocket.Event{
			Type:        websocket.EventRevenuePosted,
			TeacherID:   entries[i].TeacherID,
			YearMonth:   entries[i].YearMonth,
			AmountCents: entries[i].TeacherRevenueCents,
		})
	}
}
