package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/marketformation/mf-backend/services"
)

func GetConversionRate(c *fiber.Ctx) error {
	target := c.Query("currency", "USD")

	rate, err := services.ConvertEUR(1.0, target)
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Could not fetch conversion rate"})
	}

	return c.JSON(fiber.Map{"base": "EUR", "currency": target, "rate": rate})
}
