package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/marketformation/mf-backend/database"
	"github.com/marketformation/mf-backend/ledger"
	"github.com/marketformation/mf-backend/middleware"
	"github.com/marketformation/mf-backend/models"
	"github.com/marketformation/mf-backend/utils"
	"github.com/marketformation/mf-backend/websocket"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// resolveTrainerID derives the stable trainer key: the proxy-asserted
// customer id when present, else the caller-supplied one, else the normalized
// email. A caller id that disagrees with the proxy-asserted id is an identity
// mismatch, independent of signature validity.
func resolveTrainerID(c *fiber.Ctx) (string, string) {
	proxyID, _ := c.Locals(middleware.ProxyCustomerIDKey).(string)
	callerID := c.Query("customer_id")

	if proxyID != "" && callerID != "" && proxyID != callerID {
		return "", "identity_mismatch"
	}

	id := proxyID
	if id == "" {
		id = callerID
	}
	if id != "" {
		return id, ""
	}

	email := utils.NormalizeEmail(c.Query("email"))
	if email == "" {
		return "", "missing_identity"
	}
	return email, ""
}

// ensureBanking upserts the banking profile on first contact.
func ensureBanking(trainerID, email string) (*models.TrainerBanking, error) {
	row := models.TrainerBanking{TrainerID: trainerID, Email: email}
	err := database.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "trainer_id"}},
		DoNothing: true,
	}).Create(&row).Error
	if err != nil {
		return nil, err
	}

	var banking models.TrainerBanking
	if err := database.DB.Where("trainer_id = ?", trainerID).First(&banking).Error; err != nil {
		return nil, err
	}
	return &banking, nil
}

func maskedIBAN(banking *models.TrainerBanking) string {
	if banking.PayoutIBAN == nil || *banking.PayoutIBAN == "" {
		return ""
	}
	return utils.MaskIBAN(*banking.PayoutIBAN)
}

func GetPayoutsSummary(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		trainerID, reason := resolveTrainerID(c)
		if reason != "" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"ok": false, "error": reason})
		}

		banking, err := ensureBanking(trainerID, utils.NormalizeEmail(c.Query("email")))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "storage_unavailable"})
		}

		summary, entries, err := svc.Summary(trainerID, 20)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "storage_unavailable"})
		}

		return c.JSON(fiber.Map{
			"ok":          true,
			"currency":    summary.Currency,
			"available":   summary.AvailableCents,
			"pending":     summary.PendingCents,
			"min_payout":  svc.MinPayoutCents() / 100,
			"has_banking": banking.HasBanking(),
			"payout_iban": maskedIBAN(banking),
			"history":     entries,
		})
	}
}

type BankingUpdateRequest struct {
	Email         string `json:"email" validate:"omitempty,email"`
	PayoutName    string `json:"payout_name"`
	PayoutCountry string `json:"payout_country" validate:"omitempty,len=2"`
	PayoutIBAN    string `json:"payout_iban"`
	PayoutBIC     string `json:"payout_bic"`
	AutoPayout    *bool  `json:"auto_payout"`
}

// UpdateBanking handles PUT (full update: name, country and IBAN required)
// and PATCH (partial update: any subset).
func UpdateBanking() fiber.Handler {
	return func(c *fiber.Ctx) error {
		trainerID, reason := resolveTrainerID(c)
		if reason != "" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"ok": false, "error": reason})
		}

		var req BankingUpdateRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "Cannot parse JSON"})
		}
		if err := validate.Struct(req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": err.Error()})
		}

		fullUpdate := c.Method() != fiber.MethodPatch
		if fullUpdate && (req.PayoutName == "" || req.PayoutCountry == "" || req.PayoutIBAN == "") {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "payout_name, payout_country and payout_iban are required"})
		}

		banking, err := ensureBanking(trainerID, utils.NormalizeEmail(c.Query("email")))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "storage_unavailable"})
		}

		if req.Email != "" {
			banking.Email = utils.NormalizeEmail(req.Email)
		}
		if fullUpdate || req.PayoutName != "" {
			banking.PayoutName = &req.PayoutName
		}
		if fullUpdate || req.PayoutCountry != "" {
			banking.PayoutCountry = &req.PayoutCountry
		}
		if fullUpdate || req.PayoutIBAN != "" {
			banking.PayoutIBAN = &req.PayoutIBAN
		}
		if fullUpdate || req.PayoutBIC != "" {
			banking.PayoutBIC = &req.PayoutBIC
		}
		if req.AutoPayout != nil {
			banking.AutoPayout = *req.AutoPayout
		}

		if err := database.DB.Save(banking).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "storage_unavailable"})
		}

		return c.JSON(fiber.Map{
			"ok":             true,
			"trainer_id":     banking.TrainerID,
			"email":          banking.Email,
			"payout_name":    banking.PayoutName,
			"payout_country": banking.PayoutCountry,
			"payout_iban":    maskedIBAN(banking),
			"payout_bic":     banking.PayoutBIC,
			"auto_payout":    banking.AutoPayout,
		})
	}
}

type WithdrawalRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

func RequestWithdrawal(svc *ledger.Service, hub *websocket.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		trainerID, reason := resolveTrainerID(c)
		if reason != "" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"ok": false, "error": reason})
		}

		var req WithdrawalRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "Cannot parse JSON"})
		}
		if err := validate.Struct(req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": err.Error()})
		}

		var banking models.TrainerBanking
		if err := database.DB.Where("trainer_id = ?", trainerID).First(&banking).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "missing_banking_details"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "storage_unavailable"})
		}
		if !banking.HasBanking() {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "missing_banking_details"})
		}

		entry, err := svc.RequestWithdrawal(trainerID, req.Amount)
		if err != nil {
			if errors.Is(err, ledger.ErrInsufficientBalance) {
				return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"ok": false, "error": "insufficient_available_balance"})
			}
			if errors.Is(err, ledger.ErrInvalidAmount) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "invalid_amount"})
			}
			log.Printf("🔥 Withdrawal request failed for trainer %s: %v", trainerID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "storage_unavailable"})
		}

		hub.Publish(entry)

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"ok":     true,
			"id":     entry.ID,
			"status": entry.Status,
			"amount": entry.AmountCents,
		})
	}
}
