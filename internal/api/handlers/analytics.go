/**
 * @description
 * Price analytics handlers.
 * Surfaces aggregate queries over the recorded price history.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 */

package handlers

import (
	"github.com/faredown/hotels-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AnalyticsHandler struct {
	Repo services.BookingRepository
}

func NewAnalyticsHandler(repo services.BookingRepository) *AnalyticsHandler {
	return &AnalyticsHandler{Repo: repo}
}

// GetPriceChanges lists hotels whose supplier prices moved between stages most
// often, with average and worst-case drift.
// GET /api/v1/analytics/price-changes
func (h *AnalyticsHandler) GetPriceChanges(c *fiber.Ctx) error {
	minChanges := c.QueryInt("min_changes", 2)
	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > 200 {
		limit = 20
	}

	stats, err := h.Repo.HotelsWithFrequentPriceChanges(c.Context(), minChanges, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch price change stats",
		})
	}
	return c.JSON(stats)
}
