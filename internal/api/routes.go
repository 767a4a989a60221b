/**
 * @description
 * API Route definitions.
 * Sets up the router groups and assigns handlers.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/api/handlers
 * - backend/internal/services
 * - backend/internal/tbo
 */

package api

import (
	"github.com/faredown/hotels-backend/internal/api/handlers"
	"github.com/faredown/hotels-backend/internal/config"
	"github.com/faredown/hotels-backend/internal/services"
	"github.com/faredown/hotels-backend/internal/tbo"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, db *gorm.DB, rdb *redis.Client, cfg *config.Config) error {
	// 1. Initialize Services
	tboClient, err := tbo.NewClient(cfg, rdb)
	if err != nil {
		return err
	}
	repo := services.NewBookingRepository(db)
	tracker := services.NewPriceTracker(repo, rdb)
	bookingService := services.NewBookingService(repo, tboClient, tracker)

	// 2. Initialize Handlers
	bookingHandler := handlers.NewBookingHandler(bookingService)
	analyticsHandler := handlers.NewAnalyticsHandler(repo)

	// 3. Define Routes
	api := app.Group("/api")
	v1 := api.Group("/v1")

	v1.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	hotels := v1.Group("/hotels")
	hotels.Post("/search", bookingHandler.SearchHotels)

	bookings := v1.Group("/bookings")
	bookings.Post("/", bookingHandler.CreateBooking)
	bookings.Get("/price-drift/stream", bookingHandler.StreamPriceDrifts)
	bookings.Get("/:id", bookingHandler.GetBooking)
	bookings.Get("/:id/price-history", bookingHandler.GetPriceHistory)

	analytics := v1.Group("/analytics")
	analytics.Get("/price-changes", analyticsHandler.GetPriceChanges)

	return nil
}
