package main

import (
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/marketformation/mf-backend/cache"
	config "github.com/marketformation/mf-backend/configs"
	"github.com/marketformation/mf-backend/database"
	"github.com/marketformation/mf-backend/jobs"
	"github.com/marketformation/mf-backend/ledger"
	"github.com/marketformation/mf-backend/notifications"
	"github.com/marketformation/mf-backend/routes"
	"github.com/marketformation/mf-backend/websocket"
	"github.com/robfig/cron/v3"
)

func main() {
	database.ConnectDB()
	database.Migrate()
	database.SeedAdmin()
	notifications.InitEmailService()

	minPayoutCents, _ := strconv.ParseInt(config.Config("MIN_PAYOUT_CENTS"), 10, 64)
	ledgerService := ledger.NewService(database.DB, ledger.Config{
		DefaultCurrency: config.Config("DEFAULT_CURRENCY"),
		MinPayoutCents:  minPayoutCents,
		Locale:          config.Config("PAYOUT_LOCALE"),
	})

	hub := websocket.NewHub()
	go hub.Run()

	c := cron.New()
	c.AddFunc("0 3 * * *", func() { jobs.RunAutoPayouts(ledgerService) })
	go c.Start()
	log.Println("✅ Cron job for automatic payouts scheduled successfully.")

	app := fiber.New(fiber.Config{
		Prefork:           false,
		AppName:           "MarketFormation",
		CaseSensitive:     true,
		StrictRouting:     true,
		EnablePrintRoutes: true,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Printf("[ERROR] %v | Path: %s | Method: %s", err, c.Path(), c.Method())
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization",
		MaxAge:        86400,
	}))

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Welcome to MarketFormation API",
		})
	})

	routes.AuthRoutes(app)
	routes.PublicRoutes(app)
	routes.PayoutRoutes(app, ledgerService, hub)
	routes.WebhookRoutes(app, ledgerService, hub)
	routes.AdminRoutes(app, ledgerService, hub)
	routes.UploadRoutes(app)
	routes.NotificationRoutes(app, hub)

	if redisURL := config.Config("REDIS_URL"); redisURL != "" {
		views, err := cache.New(redisURL)
		if err != nil {
			log.Fatalf("🔥 Failed to connect to Redis: %v", err)
		}
		defer views.Close()
		routes.CourseRoutes(app, views)
		log.Println("✅ View counter cache connected successfully.")
	} else {
		log.Println("⚠️ REDIS_URL not set, course view counters disabled.")
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})

	log.Println("✅ Server is running on port 8080")
	err := app.Listen(":8080")
	if err != nil {
		log.Fatalf("🔥 Server failed to start: %v", err)
	}
}
