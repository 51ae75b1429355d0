package routes

import (
	"github.com/nqhuy1905/course_market/handlers"
	"github.com/nqhuy1905/course_market/middleware"
	"github.com/gofiber/fiber/v2"
)

func PaymentRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	api.Post("/payments/webhook", handlers.HandlePaymentWebhook)
	api.Post("/payments/checkout", middleware.Protected(), handlers.CreateCheckout)
}
