package routes

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/marketformation/mf-backend/handlers"
	wshub "github.com/marketformation/mf-backend/websocket"
)

func NotificationRoutes(app *fiber.App, hub *wshub.Hub) {
	api := app.Group("/api/v1")

	api.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	api.Get("/ws", websocket.New(handlers.ServeWs(hub)))
}
