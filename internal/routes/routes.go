package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"

	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/handlers"
	"github.com/example/storefront/internal/metrics"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/services"
	"github.com/example/storefront/internal/store"
	"github.com/example/storefront/internal/utils"
)

// Dependencies are the collaborators the HTTP surface is built from.
type Dependencies struct {
	Config  *config.Config
	Store   store.Store
	Gateway services.Gateway
	Log     *logrus.Logger
}

// NewApp builds the fiber app with the shared middleware stack.
func NewApp(cfg *config.Config, log *logrus.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Storefront Backend",
		ErrorHandler: handlers.ErrorHandler(log),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${status} - ${latency} ${method} ${path} ${locals:requestid}\n",
		Output: log.WriterLevel(logrus.InfoLevel),
	}))
	app.Use(metrics.Middleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowOrigins(),
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type, " + middleware.InitDataHeader + ", " + middleware.LegacyInitDataHeader + ", " + middleware.WebhookSecretHeader,
	}))

	return app
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, deps Dependencies) {
	cfg := deps.Config
	log := deps.Log

	telegramService := services.NewTelegramService(deps.Gateway, cfg.AdminChatID, log)
	lifecycle := services.NewOrderLifecycle(deps.Store, cfg.OrderTerminalPolicy, log)
	replies := services.NewReplyConversation(deps.Store, telegramService, log)
	router := services.NewActionRouter(cfg.TelegramAdminID, lifecycle, replies, telegramService, log)

	catalogHandler := handlers.NewCatalogHandler(deps.Store)
	orderHandler := handlers.NewOrderHandler(deps.Store, telegramService, log)
	adminHandler := handlers.NewAdminHandler(cfg.TelegramAdminID, deps.Store, lifecycle, telegramService, log)
	webhookHandler := handlers.NewWebhookHandler(router, replies, log)
	logsHandler := handlers.NewLogsHandler(log)

	initData := middleware.InitDataMiddleware(utils.NewInitDataValidator(cfg.TelegramBotToken, cfg.InitDataMaxAge))
	adminOnly := middleware.RequireAdmin(cfg.TelegramAdminID)
	webhookSecret := middleware.WebhookSecret(cfg.TelegramWebhookSecret)
	orderLimiter := middleware.NewRateLimiter(cfg.OrderRateLimit, cfg.OrderRateBurst)

	app.Get("/health", handlers.Health)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	api := app.Group("/api")

	// Catalog
	api.Get("/products", catalogHandler.ListProducts)
	api.All("/products", handlers.MethodNotAllowed(fiber.MethodGet))
	api.Get("/categories", catalogHandler.ListCategories)
	api.All("/categories", handlers.MethodNotAllowed(fiber.MethodGet))

	// Customer orders
	api.Post("/orders", initData, orderLimiter.Handler(), orderHandler.CreateOrder)
	api.Get("/orders", initData, orderHandler.ListOrders)
	api.All("/orders", handlers.MethodNotAllowed(fiber.MethodGet, fiber.MethodPost))
	api.Get("/orders/:id", initData, orderHandler.GetOrder)
	api.All("/orders/:id", handlers.MethodNotAllowed(fiber.MethodGet))
	api.Get("/orders/:id/messages", initData, orderHandler.ListOrderMessages)
	api.All("/orders/:id/messages", handlers.MethodNotAllowed(fiber.MethodGet))

	// Admin panel
	admin := api.Group("/admin")
	admin.Get("/check", initData, adminHandler.Check)
	admin.All("/check", handlers.MethodNotAllowed(fiber.MethodGet))
	admin.Get("/orders", initData, adminOnly, adminHandler.ListOrders)
	admin.All("/orders", handlers.MethodNotAllowed(fiber.MethodGet))
	admin.Post("/orders/:id/status", initData, adminOnly, adminHandler.UpdateOrderStatus)
	admin.All("/orders/:id/status", handlers.MethodNotAllowed(fiber.MethodPost))
	admin.Post("/products", initData, adminOnly, adminHandler.CreateProduct)
	admin.All("/products", handlers.MethodNotAllowed(fiber.MethodPost))

	// Bot API webhooks
	api.Post("/admin-actions", webhookSecret, webhookHandler.AdminActions)
	api.All("/admin-actions", handlers.MethodNotAllowed(fiber.MethodPost))
	api.Post("/webhook", webhookSecret, webhookHandler.Messages)
	api.All("/webhook", handlers.MethodNotAllowed(fiber.MethodPost))
	api.Post("/telegram/webhook", webhookSecret, webhookHandler.Telegram)
	api.All("/telegram/webhook", handlers.MethodNotAllowed(fiber.MethodPost))

	// Client error sink
	api.Post("/logs", logsHandler.Record)
	api.All("/logs", handlers.MethodNotAllowed(fiber.MethodPost))
}
