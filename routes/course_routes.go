package routes

import (
	"github.com/nqhuy1905/course_market/handlers"
	"github.com/nqhuy1905/course_market/middleware"
	"github.com/gofiber/fiber/v2"
)

func CourseRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	api.Get("/courses", handlers.ListPublishedCourses)
	api.Get("/courses/:courseId", handlers.GetCourse)

	enrollments := api.Group("/enrollments", middleware.Protected())
	enrollments.Get("/me", handlers.GetMyEnrollments)

	teacher := api.Group("/teacher", middleware.Protected(), middleware.TeacherRequired())
	teacher.Post("/courses", handlers.CreateCourse)
	teacher.Put("/courses/:courseId", handlers.UpdateCourse)
	teacher.Get("/courses/me", handlers.GetMyCourses)
	teacher.Post("/uploads/signature", handlers.GenerateUploadSignature)
}
