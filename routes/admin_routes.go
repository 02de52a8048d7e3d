package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/marketformation/mf-backend/handlers"
	"github.com/marketformation/mf-backend/ledger"
	"github.com/marketformation/mf-backend/middleware"
	"github.com/marketformation/mf-backend/websocket"
)

func AdminRoutes(app *fiber.App, svc *ledger.Service, hub *websocket.Hub) {
	api := app.Group("/api/v1")

	admin := api.Group("/admin", middleware.Protected(), middleware.AdminRequired())
	admin.Get("/trainers", handlers.TrainerOverview)
	admin.Get("/withdrawals", handlers.ListWithdrawalRequests)
	admin.Post("/withdrawals/:entryId/settle", handlers.SettleWithdrawal(svc, hub))
}
