package routes

import (
	"github.com/nqhuy1905/course_market/handlers"
	"github.com/nqhuy1905/course_market/middleware"
	"github.com/gofiber/fiber/v2"
)

func AuthRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	api.Post("/auth/register", handlers.RegisterUser)
	api.Post("/auth/login", handlers.LoginUser)

	profile := api.Group("/profile", middleware.Protected())
	profile.Get("/me", handlers.GetProfile)
	profile.Put("/me", handlers.UpdateProfile)
	profile.Get("/wallet", handlers.GetMyWallet)
}
