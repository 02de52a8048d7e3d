package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/marketformation/mf-backend/handlers"
)

func PublicRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	api.Get("/currency/rate", handlers.GetConversionRate)
}
