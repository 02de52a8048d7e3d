package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/marketformation/mf-backend/database"
	"github.com/marketformation/mf-backend/ledger"
	"github.com/marketformation/mf-backend/middleware"
	"github.com/marketformation/mf-backend/models"
	"github.com/marketformation/mf-backend/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	webhookSecret = "test-webhook-secret"
	proxySecret   = "test-proxy-secret"
)

func setupTestApp(t *testing.T) (*fiber.App, *ledger.Service) {
	t.Setenv("SHOPIFY_WEBHOOK_SECRET", webhookSecret)
	t.Setenv("SHOPIFY_APP_PROXY_SECRET", proxySecret)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.TrainerBanking{},
		&models.PayoutsSummary{},
		&models.PayoutsHistory{},
		&models.ProcessedOrderLine{},
	))
	database.DB = db

	svc := ledger.NewService(db, ledger.Config{DefaultCurrency: "EUR"})
	hub := websocket.NewHub()

	app := fiber.New()
	app.Post("/webhooks/orders-paid", HandleOrderPaidWebhook(svc, hub))

	proxy := app.Group("/proxy", middleware.AppProxyVerified(middleware.AppProxyConfig{SoftFail: true}))
	proxy.Get("/payouts", GetPayoutsSummary(svc))

	return app, svc
}

func signWebhookBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func signProxyQuery(message string) string {
	mac := hmac.New(sha256.New, []byte(proxySecret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

func orderPayload() []byte {
	return []byte(`{
		"id": 9001,
		"currency": "EUR",
		"line_items": [
			{
				"id": 1,
				"price": "50.00",
				"quantity": 1,
				"vendor": "MarketFormation",
				"properties": [{"name": "_trainer_id", "value": "trainer-7"}]
			}
		]
	}`)
}

func TestOrderPaidWebhook_CreditsTrainerOnce(t *testing.T) {
	app, svc := setupTestApp(t)
	body := orderPayload()

	// At-least-once delivery: the same webhook arrives twice. The provenance
	// check must leave exactly one history row and one balance increment.
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/webhooks/orders-paid", strings.NewReader(string(body)))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Shopify-Hmac-Sha256", signWebhookBody(body))

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	var historyCount int64
	require.NoError(t, database.DB.Model(&models.PayoutsHistory{}).Where("trainer_id = ?", "trainer-7").Count(&historyCount).Error)
	assert.Equal(t, int64(1), historyCount)

	summary, _, err := svc.Summary("trainer-7", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), summary.AvailableCents)
	assert.Equal(t, int64(0), summary.PendingCents)
}

func TestOrderPaidWebhook_MarkerWriteFailureRollsBackCredit(t *testing.T) {
	app, svc := setupTestApp(t)

	// One transient storage failure on the provenance insert. The credit in
	// the same transaction must roll back with it, so the retry still credits
	// exactly once.
	failed := false
	err := database.DB.Callback().Create().Before("gorm:create").Register("flaky_marker", func(db *gorm.DB) {
		if failed || db.Statement.Schema == nil || db.Statement.Schema.Table != "processed_order_lines" {
			return
		}
		failed = true
		db.AddError(errors.New("storage flake"))
	})
	require.NoError(t, err)

	body := orderPayload()

	req := httptest.NewRequest("POST", "/webhooks/orders-paid", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Hmac-Sha256", signWebhookBody(body))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var historyCount int64
	require.NoError(t, database.DB.Model(&models.PayoutsHistory{}).Count(&historyCount).Error)
	assert.Equal(t, int64(0), historyCount, "failed delivery must not leave a committed credit")

	req = httptest.NewRequest("POST", "/webhooks/orders-paid", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Hmac-Sha256", signWebhookBody(body))

	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.NoError(t, database.DB.Model(&models.PayoutsHistory{}).Where("trainer_id = ?", "trainer-7").Count(&historyCount).Error)
	assert.Equal(t, int64(1), historyCount)

	summary, _, err := svc.Summary("trainer-7", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), summary.AvailableCents)
}

func TestOrderPaidWebhook_SkipsNegativePriceLine(t *testing.T) {
	app, _ := setupTestApp(t)

	body := []byte(`{
		"id": 9002,
		"currency": "EUR",
		"line_items": [
			{
				"id": 2,
				"price": "-0.50",
				"quantity": 1,
				"vendor": "MarketFormation",
				"properties": [{"name": "_trainer_id", "value": "trainer-7"}]
			}
		]
	}`)

	req := httptest.NewRequest("POST", "/webhooks/orders-paid", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Hmac-Sha256", signWebhookBody(body))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var historyCount int64
	require.NoError(t, database.DB.Model(&models.PayoutsHistory{}).Count(&historyCount).Error)
	assert.Equal(t, int64(0), historyCount)
}

func TestOrderPaidWebhook_RejectsBadSignature(t *testing.T) {
	app, _ := setupTestApp(t)
	body := orderPayload()

	req := httptest.NewRequest("POST", "/webhooks/orders-paid", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Hmac-Sha256", signWebhookBody([]byte("tampered")))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	var historyCount int64
	require.NoError(t, database.DB.Model(&models.PayoutsHistory{}).Count(&historyCount).Error)
	assert.Equal(t, int64(0), historyCount)
}

func TestProxyPayoutsSummary(t *testing.T) {
	app, svc := setupTestApp(t)

	_, err := svc.CreditSale("trainer-7", 3000, "EUR", nil)
	require.NoError(t, err)

	sig := signProxyQuery("customer_id=trainer-7")
	req := httptest.NewRequest("GET", "/proxy/payouts?customer_id=trainer-7&signature="+sig, nil)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		OK        bool            `json:"ok"`
		Currency  string          `json:"currency"`
		Available int64           `json:"available"`
		Pending   int64           `json:"pending"`
		MinPayout int64           `json:"min_payout"`
		History   json.RawMessage `json:"history"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.True(t, payload.OK)
	assert.Equal(t, "EUR", payload.Currency)
	assert.Equal(t, int64(3000), payload.Available)
	assert.Equal(t, int64(0), payload.Pending)
	assert.Equal(t, int64(50), payload.MinPayout)
	assert.NotEmpty(t, payload.History)
}

func TestProxyPayoutsSummary_SoftFailsOnBadSignature(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest("GET", "/proxy/payouts?customer_id=trainer-7&signature=deadbeef", nil)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.False(t, payload.OK)
	assert.Equal(t, "invalid_signature", payload.Error)
}

func TestProxyPayoutsSummary_IdentityMismatch(t *testing.T) {
	app, _ := setupTestApp(t)

	sig := signProxyQuery("customer_id=trainer-7logged_in_customer_id=trainer-8")
	req := httptest.NewRequest("GET", "/proxy/payouts?customer_id=trainer-7&logged_in_customer_id=trainer-8&signature="+sig, nil)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
