package routes

import (
	"github.com/nqhuy1905/course_market/handlers"
	"github.com/nqhuy1905/course_market/middleware"
	"github.com/gofiber/fiber/v2"
)

func AdminRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	admin := api.Group("/admin", middleware.Protected(), middleware.AdminRequired())

	admin.Get("/dashboard-analytics", handlers.GetDashboardAnalytics)

	payouts := admin.Group("/payouts")
	payouts.Get("/pending", handlers.GetPendingPayouts)
	payouts.Post("/mark-paid", handlers.MarkPayout)

	admin.Post("/wallets/adjust", handlers.AdjustUserWallet)
	admin.Put("/users/:userId/promote-teacher", handlers.PromoteToTeacher)

	reports := admin.Group("/reports")
	reports.Get("/revenue", handlers.GenerateRevenueReport)
}
