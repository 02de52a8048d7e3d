package handlers

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/marketformation/mf-backend/appproxy"
	config "github.com/marketformation/mf-backend/configs"
	"github.com/marketformation/mf-backend/database"
	"github.com/marketformation/mf-backend/ledger"
	"github.com/marketformation/mf-backend/models"
	"github.com/marketformation/mf-backend/utils"
	"github.com/marketformation/mf-backend/websocket"
	"gorm.io/gorm"
)

var errLineAlreadyCredited = errors.New("order line already credited")

type OrderLineItem struct {
	ID         int64  `json:"id"`
	Price      string `json:"price"`
	Quantity   int    `json:"quantity"`
	Vendor     string `json:"vendor"`
	Properties []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"properties"`
}

type OrderWebhookPayload struct {
	ID        int64           `json:"id"`
	Currency  string          `json:"currency"`
	Email     string          `json:"email"`
	LineItems []OrderLineItem `json:"line_items"`
}

// lineTrainerID resolves which trainer a line item belongs to: an explicit
// _trainer_id line property wins, then _trainer_email, then the product
// vendor field.
func lineTrainerID(line *OrderLineItem) string {
	for _, prop := range line.Properties {
		if prop.Name == "_trainer_id" && prop.Value != "" {
			return prop.Value
		}
	}
	for _, prop := range line.Properties {
		if prop.Name == "_trainer_email" && prop.Value != "" {
			return utils.NormalizeEmail(prop.Value)
		}
	}
	if strings.Contains(line.Vendor, "@") {
		return utils.NormalizeEmail(line.Vendor)
	}
	return strings.TrimSpace(line.Vendor)
}

// HandleOrderPaidWebhook credits trainers for each qualifying line item of a
// paid order. Delivery is at-least-once; idempotence lives here, in the
// processed_order_lines check, not in the ledger.
func HandleOrderPaidWebhook(svc *ledger.Service, hub *websocket.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		secret := config.Config("SHOPIFY_WEBHOOK_SECRET")

		body := c.Body()
		if err := appproxy.VerifyWebhook(body, c.Get("X-Shopify-Hmac-Sha256"), secret); err != nil {
			if errors.Is(err, appproxy.ErrMissingSecret) {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": err.Error()})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"ok": false, "error": err.Error()})
		}

		var payload OrderWebhookPayload
		if err := c.BodyParser(&payload); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "Cannot parse webhook payload"})
		}

		orderID := fmt.Sprintf("%d", payload.ID)
		credited := 0

		for i := range payload.LineItems {
			line := &payload.LineItems[i]
			trainerID := lineTrainerID(line)
			if trainerID == "" {
				continue
			}

			lineItemID := fmt.Sprintf("%d", line.ID)

			unitCents, err := utils.AmountToCents(line.Price)
			if err != nil || unitCents <= 0 {
				log.Printf("Skipping line %s of order %s: bad price %q", lineItemID, orderID, line.Price)
				continue
			}
			quantity := line.Quantity
			if quantity < 1 {
				quantity = 1
			}
			amountCents := unitCents * int64(quantity)

			// Provenance check, credit and marker commit or roll back as one
			// unit. Concurrent deliveries of the same line race on the unique
			// (order, line item) index; the loser rolls back, credit included.
			var entry *models.PayoutsHistory
			txErr := database.DB.Transaction(func(tx *gorm.DB) error {
				var existing models.ProcessedOrderLine
				err := tx.Where("order_id = ? AND line_item_id = ?", orderID, lineItemID).First(&existing).Error
				if err == nil {
					return errLineAlreadyCredited
				}
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return err
				}

				entry, err = svc.CreditSaleTx(tx, trainerID, amountCents, payload.Currency, map[string]any{
					"order_id":     orderID,
					"line_item_id": lineItemID,
					"quantity":     quantity,
				})
				if err != nil {
					return err
				}

				processed := models.ProcessedOrderLine{
					OrderID:    orderID,
					LineItemID: lineItemID,
					TrainerID:  trainerID,
				}
				return tx.Create(&processed).Error
			})
			if errors.Is(txErr, errLineAlreadyCredited) {
				continue
			}
			if txErr != nil {
				log.Printf("🔥 Failed to credit trainer %s for order %s line %s: %v", trainerID, orderID, lineItemID, txErr)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "credit_failed"})
			}

			hub.Publish(entry)
			credited++
		}

		return c.JSON(fiber.Map{"ok": true, "credited": credited})
	}
}
