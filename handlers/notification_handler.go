package handlers

import (
	"log"
	"net/url"

	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/marketformation/mf-backend/appproxy"
	config "github.com/marketformation/mf-backend/configs"
	"github.com/marketformation/mf-backend/utils"
	"github.com/marketformation/mf-backend/websocket"
)

// ServeWs upgrades a trainer dashboard connection. The dashboard is embedded
// behind the storefront proxy, so it authenticates by replaying its signed
// query string as the first message.
func ServeWs(hub *websocket.Hub) func(*websocketcontrib.Conn) {
	return func(c *websocketcontrib.Conn) {
		type AuthMessage struct {
			Type  string `json:"type"`
			Query string `json:"query"`
		}
		var authMsg AuthMessage
		if err := c.ReadJSON(&authMsg); err != nil || authMsg.Type != "auth" {
			_ = c.WriteJSON(fiber.Map{"error": "Invalid or missing auth message"})
			c.Close()
			return
		}

		secret := config.Config("SHOPIFY_APP_PROXY_SECRET")
		if err := appproxy.Verify("/?"+authMsg.Query, secret); err != nil {
			log.Printf("WebSocket auth failed: %v", err)
			_ = c.WriteJSON(fiber.Map{"error": err.Error()})
			c.Close()
			return
		}

		trainerID := appproxy.LoggedInCustomerID("/?" + authMsg.Query)
		if trainerID == "" {
			if values, err := url.ParseQuery(authMsg.Query); err == nil {
				trainerID = utils.NormalizeEmail(values.Get("email"))
			}
		}
		if trainerID == "" {
			_ = c.WriteJSON(fiber.Map{"error": "missing_identity"})
			c.Close()
			return
		}

		client := &websocket.Client{TrainerID: trainerID, Conn: c}
		hub.Register(client)
		defer func() {
			hub.Unregister(client)
			c.Close()
		}()

		// Dashboards only listen; drain until the peer goes away.
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				if !websocketcontrib.IsCloseError(err, websocketcontrib.CloseGoingAway, websocketcontrib.CloseNormalClosure) {
					log.Printf("WebSocket read error for trainer %s: %v", trainerID, err)
				}
				break
			}
		}
	}
}
