package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/marketformation/mf-backend/handlers"
	"github.com/marketformation/mf-backend/ledger"
	"github.com/marketformation/mf-backend/middleware"
	"github.com/marketformation/mf-backend/websocket"
)

// PayoutRoutes are the trainer-facing endpoints reached through the
// storefront proxy. They soft-fail (HTTP 200 envelopes) on signature errors
// because the proxy renders its own error page on any non-200.
func PayoutRoutes(app *fiber.App, svc *ledger.Service, hub *websocket.Hub) {
	api := app.Group("/api/v1")

	proxy := api.Group("/proxy", middleware.AppProxyVerified(middleware.AppProxyConfig{SoftFail: true}))
	proxy.Get("/payouts", handlers.GetPayoutsSummary(svc))
	proxy.Post("/payouts/withdrawals", handlers.RequestWithdrawal(svc, hub))
	proxy.Put("/banking", handlers.UpdateBanking())
	proxy.Patch("/banking", handlers.UpdateBanking())
}
