package routes

import (
	"github.com/nqhuy1905/course_market/handlers"
	"github.com/nqhuy1905/course_market/middleware"
	"github.com/gofiber/fiber/v2"
)

func RevenueRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	teacher := api.Group("/teacher", middleware.Protected(), middleware.TeacherRequired())
	teacher.Get("/revenue/summary", handlers.GetMyRevenueSummary)

	api.Get("/dashboard/ws", middleware.Protected(), handlers.UpgradeRequired, handlers.DashboardSocket)
}
