package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/marketformation/mf-backend/appproxy"
	config "github.com/marketformation/mf-backend/configs"
)

const ProxyCustomerIDKey = "proxy_customer_id"

type AppProxyConfig struct {
	// SoftFail answers HTTP 200 with an embedded error payload instead of a
	// 401. The storefront proxy renders its own generic error page on any
	// non-200, so widget-facing endpoints opt into this.
	SoftFail bool
}

// AppProxyVerified guards a route group behind the shared proxy signature
// verifier. On success the proxy-asserted customer id is stored in locals for
// identity-mismatch checks downstream.
func AppProxyVerified(cfg ...AppProxyConfig) fiber.Handler {
	soft := len(cfg) > 0 && cfg[0].SoftFail

	return func(c *fiber.Ctx) error {
		secret := config.Config("SHOPIFY_APP_PROXY_SECRET")

		err := appproxy.Verify(c.OriginalURL(), secret)
		if err == nil {
			c.Locals(ProxyCustomerIDKey, appproxy.LoggedInCustomerID(c.OriginalURL()))
			return c.Next()
		}

		if errors.Is(err, appproxy.ErrMissingSecret) {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": err.Error()})
		}
		if soft {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": false, "error": err.Error()})
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"ok": false, "error": err.Error()})
	}
}
