package handlers

import (
	"github.com/nqhuy1905/course_market/database"
	"github.com/nqhuy1905/course_market/models"
	"github.com/gofiber/fiber/v2"
)

type CourseRequest struct {
	Title                string  `json:"title" validate:"required,min=3"`
	Description          *string `json:"description"`
	PriceCents           int64   `json:"price_cents" validate:"gte=0"`
	DiscountedPriceCents *int64  `json:"discounted_price_cents" validate:"omitempty,gte=0"`
	ThumbnailURL         *string `json:"thumbnail_url" validate:"omitempty,url"`
	IsPublished          bool    `json:"is_published"`
}

func ListPublishedCourses(c *fiber.Ctx) error {
	var courses []models.Course
	query := database.DB.Preload("Teacher").Where("is_published = ?", true)

	if teacherID := c.Query("teacher_id"); teacherID != "" {
		query = query.Where("teacher_id = ?", teacherID)
	}

	if err := query.Order("created_at desc").Find(&courses).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve courses"})
	}
	return c.JSON(courses)
}

func GetCourse(c *fiber.Ctx) error {
	courseID := c.Params("courseId")

	var course models.Course
	if err := database.DB.Preload("Teacher").First(&course, "id = ? AND is_published = ?", courseID, true).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Course not found"})
	}
	return c.JSON(course)
}

func CreateCourse(c *fiber.Ctx) error {
	teacherID := currentUserID(c)

	var req CourseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	course := models.Course{
		TeacherID:            teacherID,
		Title:                req.Title,
		Description:          req.Description,
		PriceCents:           req.PriceCents,
		DiscountedPriceCents: req.DiscountedPriceCents,
		ThumbnailURL:         req.ThumbnailURL,
		IsPublished:          req.IsPublished,
	}
	if err := database.DB.Create(&course).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create course"})
	}

	return c.Status(fiber.StatusCreated).JSON(course)
}

func UpdateCourse(c *fiber.Ctx) error {
	teacherID := currentUserID(c)
	courseID := c.Params("courseId")

	var course models.Course
	if err := database.DB.First(&course, "id = ?", courseID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Course not found"})
	}
	if course.TeacherID != teacherID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "This is not your course to manage"})
	}

	var req CourseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	course.Title = req.Title
	course.Description = req.Description
	course.PriceCents = req.PriceCents
	course.DiscountedPriceCents = req.DiscountedPriceCents
	course.ThumbnailURL = req.ThumbnailURL
	course.IsPublished = req.IsPublished
	database.DB.Save(&course)

	return c.JSON(course)
}

func GetMyCourses(c *fiber.Ctx) error {
	teacherID := currentUserID(c)

	var courses []models.Course
	database.DB.Where("teacher_id = ?", teacherID).Order("created_at desc").Find(&courses)

	return c.JSON(courses)
}

func GetMyEnrollments(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var enrollments []models.Enrollment
	database.DB.Preload("Course").Where("user_id = ?", userID).Order("created_at desc").Find(&enrollments)

	return c.JSON(enrollments)
}
