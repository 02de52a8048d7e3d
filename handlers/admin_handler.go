package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/marketformation/mf-backend/database"
	"github.com/marketformation/mf-backend/ledger"
	"github.com/marketformation/mf-backend/models"
	"github.com/marketformation/mf-backend/notifications"
	"github.com/marketformation/mf-backend/services"
	"github.com/marketformation/mf-backend/utils"
	"github.com/marketformation/mf-backend/websocket"
)

func ListWithdrawalRequests(c *fiber.Ctx) error {
	var requests []models.PayoutsHistory
	err := database.DB.
		Where("type = ? AND status = ?", models.EntryTypeWithdraw, models.EntryStatusRequested).
		Order("date asc").
		Find(&requests).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve withdrawal requests"})
	}
	return c.JSON(requests)
}

// SettleWithdrawal marks one requested withdrawal as paid. The ledger
// transition is the transaction; email, statement PDF and the dashboard push
// are best-effort side effects after commit.
func SettleWithdrawal(svc *ledger.Service, hub *websocket.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		entryID, err := uuid.Parse(c.Params("entryId"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid entry ID format"})
		}

		entry, err := svc.Settle(entryID)
		if err != nil {
			if errors.Is(err, ledger.ErrEntryNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Payout entry not found"})
			}
			if errors.Is(err, ledger.ErrEntryNotRequested) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Payout entry is not in requested state"})
			}
			log.Printf("🔥 Failed to settle entry %s: %v", entryID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to settle withdrawal"})
		}

		hub.Publish(entry)

		var banking models.TrainerBanking
		if err := database.DB.Where("trainer_id = ?", entry.TrainerID).First(&banking).Error; err == nil {
			go func(entry models.PayoutsHistory, banking models.TrainerBanking) {
				statementURL, err := services.GenerateSettlementStatement(&entry, &banking, svc.AmountLabel(entry.AmountCents, entry.Currency))
				if err != nil {
					log.Printf("🔥 Failed to generate settlement statement for %s: %v", entry.ID, err)
				}

				name := banking.Email
				if banking.PayoutName != nil && *banking.PayoutName != "" {
					name = *banking.PayoutName
				}
				body := "<h1>Payout processed</h1><p>Your withdrawal of " + svc.AmountLabel(entry.AmountCents, entry.Currency) + " has been sent to your bank account.</p>"
				if statementURL != "" {
					body += "<p><a href=\"" + statementURL + "\">Download your settlement statement</a></p>"
				}
				notifications.SendEmail(name, banking.Email, "Your payout has been processed", body)
			}(*entry, banking)
		}

		return c.JSON(fiber.Map{
			"message": "Withdrawal settled.",
			"entry":   entry,
		})
	}
}

// TrainerOverview lists every trainer with the one authoritative earnings
// figure: available + pending, i.e. credited funds not yet disbursed.
func TrainerOverview(c *fiber.Ctx) error {
	var summaries []models.PayoutsSummary
	if err := database.DB.Order("trainer_id asc").Find(&summaries).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve trainers"})
	}

	overview := make([]fiber.Map, 0, len(summaries))
	for _, summary := range summaries {
		var banking models.TrainerBanking
		iban := ""
		hasBanking := false
		if err := database.DB.Where("trainer_id = ?", summary.TrainerID).First(&banking).Error; err == nil {
			hasBanking = banking.HasBanking()
			if banking.PayoutIBAN != nil {
				iban = utils.MaskIBAN(*banking.PayoutIBAN)
			}
		}

		overview = append(overview, fiber.Map{
			"trainer_id":  summary.TrainerID,
			"currency":    summary.Currency,
			"available":   summary.AvailableCents,
			"pending":     summary.PendingCents,
			"earnings":    summary.AvailableCents + summary.PendingCents,
			"has_banking": hasBanking,
			"payout_iban": iban,
		})
	}

	return c.JSON(overview)
}
