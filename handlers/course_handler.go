package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/marketformation/mf-backend/cache"
)

// TrackCourseView bumps the view counter for a course page. Fire-and-forget
// semantics: a cache hiccup is logged, never surfaced to the storefront.
func TrackCourseView(views *cache.Cache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID := c.Params("courseId")
		if courseID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "missing_course_id"})
		}

		count, err := views.IncrementCourseView(c.Context(), courseID)
		if err != nil {
			log.Printf("Failed to increment views for course %s: %v", courseID, err)
			return c.JSON(fiber.Map{"ok": true})
		}
		return c.JSON(fiber.Map{"ok": true, "views": count})
	}
}

func GetCourseViews(views *cache.Cache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID := c.Params("courseId")
		if courseID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "missing_course_id"})
		}

		count, err := views.CourseViews(c.Context(), courseID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "cache_unavailable"})
		}
		return c.JSON(fiber.Map{"ok": true, "views": count})
	}
}
