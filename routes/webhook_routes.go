package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/marketformation/mf-backend/handlers"
	"github.com/marketformation/mf-backend/ledger"
	"github.com/marketformation/mf-backend/websocket"
)

func WebhookRoutes(app *fiber.App, svc *ledger.Service, hub *websocket.Hub) {
	api := app.Group("/api/v1")

	api.Post("/webhooks/orders-paid", handlers.HandleOrderPaidWebhook(svc, hub))
}
