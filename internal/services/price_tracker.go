/**
 * @description
 * Price Drift Tracker.
 * After Block and after Book, computes the delta between the price the previous
 * stage recorded and the price the current stage returned, persists an
 * append-only PriceHistoryEntry, and publishes a drift event for monitoring.
 *
 * @dependencies
 * - backend/internal/models
 * - github.com/redis/go-redis/v9: drift event pub/sub
 *
 * @notes
 * - The baseline is always the previous recorded stage's price, not the original
 *   search price, so each hop of a drifting price is individually auditable.
 *   Aggregate drift falls out of summing the entries for a trace.
 * - Zero-delta transitions are recorded too: the entry proves the price was
 *   checked and found stable at that stage.
 */

package services

import (
	"context"
	"encoding/json"

	"github.com/faredown/hotels-backend/internal/logger"
	"github.com/faredown/hotels-backend/internal/models"
	"github.com/redis/go-redis/v9"
)

// PriceDriftChannel carries drift events for monitoring consumers.
const PriceDriftChannel = "bookings:price_drift"

// PriceDrift is the observed movement between two consecutive pipeline stages.
type PriceDrift struct {
	BookingID     string            `json:"booking_id"`
	TraceID       string            `json:"trace_id"`
	HotelCode     string            `json:"hotel_code"`
	Stage         models.PriceStage `json:"stage"`
	PreviousPrice float64           `json:"previous_price"`
	NewPrice      float64           `json:"new_price"`
	PriceIncrease float64           `json:"price_increase"`
	ChangePct     float64           `json:"price_change_pct"`
	Currency      string            `json:"currency"`
	Changed       bool              `json:"changed"`
}

// PriceTracker records stage-to-stage drift against the booking attempt.
type PriceTracker struct {
	Repo  BookingRepository
	Redis *redis.Client
}

func NewPriceTracker(repo BookingRepository, rdb *redis.Client) *PriceTracker {
	return &PriceTracker{Repo: repo, Redis: rdb}
}

// Record persists the drift for one stage transition and returns it.
// previous is the price the prior stage recorded; observed is what the current
// stage returned. Recording never skips, even when the delta is zero.
func (t *PriceTracker) Record(ctx context.Context, attempt *models.BookingAttempt, stage models.PriceStage, previous, observed float64, currency string) (*PriceDrift, error) {
	increase := observed - previous
	var pct float64
	if previous != 0 {
		pct = increase / previous * 100
	}

	entry := &models.PriceHistoryEntry{
		BookingAttemptID: attempt.ID,
		Stage:            stage,
		TraceID:          attempt.TraceID,
		HotelCode:        attempt.HotelCode,
		Price:            observed,
		PreviousPrice:    previous,
		Currency:         currency,
		PriceIncrease:    increase,
		PriceChangePct:   pct,
	}
	if err := t.Repo.AppendPriceHistory(ctx, entry); err != nil {
		return nil, err
	}

	drift := &PriceDrift{
		BookingID:     attempt.BookingID,
		TraceID:       attempt.TraceID,
		HotelCode:     attempt.HotelCode,
		Stage:         stage,
		PreviousPrice: previous,
		NewPrice:      observed,
		PriceIncrease: increase,
		ChangePct:     pct,
		Currency:      currency,
		Changed:       increase != 0,
	}
	t.publish(ctx, drift)
	return drift, nil
}

func (t *PriceTracker) publish(ctx context.Context, drift *PriceDrift) {
	if t.Redis == nil {
		return
	}
	payload, err := json.Marshal(drift)
	if err != nil {
		logger.Error("Failed to marshal price drift event: %v", err)
		return
	}
	if err := t.Redis.Publish(ctx, PriceDriftChannel, payload).Err(); err != nil {
		logger.Error("Failed to publish price drift event: %v", err)
	}
}
