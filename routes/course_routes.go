package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/marketformation/mf-backend/cache"
	"github.com/marketformation/mf-backend/handlers"
	"github.com/marketformation/mf-backend/middleware"
)

func CourseRoutes(app *fiber.App, views *cache.Cache) {
	api := app.Group("/api/v1")

	proxy := api.Group("/proxy", middleware.AppProxyVerified(middleware.AppProxyConfig{SoftFail: true}))
	proxy.Post("/courses/:courseId/views", handlers.TrackCourseView(views))
	proxy.Get("/courses/:courseId/views", handlers.GetCourseViews(views))
}
