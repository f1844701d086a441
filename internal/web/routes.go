package web

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/newzealection/new-zealection/internal/web/middleware"
)

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, webApp *WebApp) {
	app.Get("/health", HealthCheck(webApp))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "New Zealection API",
			"version": webApp.Version,
			"status":  "running",
		})
	})

	// Authentication
	authGroup := app.Group("/auth")
	authGroup.Use(middleware.AuthRateLimit())
	authGroup.Get("/login", Login(webApp))
	authGroup.Get("/callback", OAuthCallback(webApp))
	authGroup.Post("/logout", Logout(webApp))

	app.Get("/api/auth/validate", ValidateSession(webApp))

	// Public catalog. OptionalAuth attributes request logs to signed-in users
	// without gating access.
	cards := app.Group("/api/cards")
	cards.Use(middleware.APIRateLimit())
	cards.Use(middleware.OptionalAuth(webApp.Sessions))
	cards.Get("/", Catalog(webApp))
	cards.Get("/search", CatalogSearch(webApp))
	cards.Get("/recent", Recent(webApp))

	// User endpoints, session required
	api := app.Group("/api")
	api.Use(middleware.APIRateLimit())
	api.Use(middleware.AuthRequired(webApp.Sessions))
	api.Get("/collection", Collection(webApp))
	api.Get("/roll/status", RollStatus(webApp))
	api.Post("/roll", middleware.RollRateLimit(), RollCard(webApp))
	api.Post("/sell", SellCard(webApp))
	api.Get("/sales", SaleHistory(webApp))
	api.Get("/mana", ManaBalance(webApp))

	// Admin endpoints
	admin := app.Group("/admin/api")
	admin.Use(middleware.AuthRequired(webApp.Sessions))
	admin.Use(middleware.AdminRequired())
	admin.Post("/cards", middleware.AuditLogMiddleware("card_create"), CreateCard(webApp))
	admin.Post("/cards/bulk", middleware.AuditLogMiddleware("card_bulk_create"), BulkCreateCards(webApp))
	admin.Post("/cards/image", middleware.AuditLogMiddleware("card_image_upload"), UploadCardImage(webApp))

	// Global handler for unmatched routes
	app.Use(func(c *fiber.Ctx) error {
		slog.Warn("No route matched for request",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
		)
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested endpoint does not exist",
		})
	})
}
