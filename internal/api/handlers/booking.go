/**
 * @description
 * Booking API handlers.
 * Exposes hotel search, full pipeline execution, and attempt lookups.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 * - backend/internal/tbo
 */

package handlers

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/faredown/hotels-backend/internal/services"
	"github.com/faredown/hotels-backend/internal/tbo"
	"github.com/gofiber/fiber/v2"
)

const dateLayout = "2006-01-02"

type BookingHandler struct {
	Service *services.BookingService
}

func NewBookingHandler(service *services.BookingService) *BookingHandler {
	return &BookingHandler{Service: service}
}

type searchBody struct {
	Destination      string              `json:"destination"`
	CountryCode      string              `json:"country_code"`
	CheckIn          string              `json:"check_in"`
	CheckOut         string              `json:"check_out"`
	Rooms            []tbo.RoomOccupancy `json:"rooms"`
	Currency         string              `json:"currency"`
	GuestNationality string              `json:"guest_nationality"`
}

func (b searchBody) toQuery() (services.SearchQuery, error) {
	if b.Destination == "" {
		return services.SearchQuery{}, errors.New("destination is required")
	}
	if len(b.Rooms) == 0 {
		return services.SearchQuery{}, errors.New("at least one room is required")
	}
	checkIn, err := time.Parse(dateLayout, b.CheckIn)
	if err != nil {
		return services.SearchQuery{}, fmt.Errorf("invalid check_in date: %s", b.CheckIn)
	}
	checkOut, err := time.Parse(dateLayout, b.CheckOut)
	if err != nil {
		return services.SearchQuery{}, fmt.Errorf("invalid check_out date: %s", b.CheckOut)
	}
	if !checkOut.After(checkIn) {
		return services.SearchQuery{}, errors.New("check_out must be after check_in")
	}
	return services.SearchQuery{
		Destination:      b.Destination,
		CountryCode:      b.CountryCode,
		CheckIn:          checkIn,
		CheckOut:         checkOut,
		Rooms:            b.Rooms,
		Currency:         b.Currency,
		GuestNationality: b.GuestNationality,
	}, nil
}

type offerResponse struct {
	ResultIndex  int     `json:"result_index"`
	HotelCode    string  `json:"hotel_code"`
	HotelName    string  `json:"hotel_name"`
	StarRating   int     `json:"star_rating"`
	OfferedPrice float64 `json:"offered_price"`
	Currency     string  `json:"currency"`
}

// SearchHotels runs destination resolution plus availability and returns the
// candidate offers with the trace id they are valid under.
// POST /api/v1/hotels/search
func (h *BookingHandler) SearchHotels(c *fiber.Ctx) error {
	var body searchBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	query, err := body.toQuery()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	result, err := h.Service.SearchOffers(c.Context(), query)
	if err != nil {
		return supplierErrorResponse(c, err)
	}

	offers := make([]offerResponse, 0, len(result.Hotels))
	for _, o := range result.Hotels {
		offers = append(offers, offerResponse{
			ResultIndex:  o.ResultIndex,
			HotelCode:    o.HotelCode,
			HotelName:    o.HotelName,
			StarRating:   o.StarRating,
			OfferedPrice: o.OfferedPrice,
			Currency:     o.Currency,
		})
	}
	return c.JSON(fiber.Map{
		"trace_id": result.TraceID,
		"hotels":   offers,
	})
}

type passengerBody struct {
	Title       string `json:"title"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PaxType     int    `json:"pax_type"`
	Age         int    `json:"age"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Nationality string `json:"nationality"`
	CountryCode string `json:"country_code"`
}

type bookingBody struct {
	searchBody
	HotelCode  string          `json:"hotel_code"`
	Passengers []passengerBody `json:"passengers"`
}

// CreateBooking runs the whole pipeline for one attempt and returns the
// terminal attempt record.
// POST /api/v1/bookings
func (h *BookingHandler) CreateBooking(c *fiber.Ctx) error {
	var body bookingBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	query, err := body.toQuery()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if len(body.Passengers) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "at least one passenger is required"})
	}

	passengers := make([]tbo.Passenger, 0, len(body.Passengers))
	for _, p := range body.Passengers {
		passengers = append(passengers, tbo.Passenger{
			Title:       p.Title,
			FirstName:   p.FirstName,
			LastName:    p.LastName,
			PaxType:     tbo.PaxType(p.PaxType),
			Age:         p.Age,
			Email:       p.Email,
			Phone:       p.Phone,
			Nationality: p.Nationality,
			CountryCode: p.CountryCode,
		})
	}

	outcome, err := h.Service.Execute(c.Context(), services.PipelineRequest{
		SearchQuery: query,
		HotelCode:   body.HotelCode,
		Passengers:  passengers,
	})
	if err != nil {
		if errors.Is(err, services.ErrNoOfferSelected) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return supplierErrorResponse(c, err)
	}

	resp := fiber.Map{
		"attempt":      outcome.Attempt,
		"confirmed":    outcome.Confirmed(),
		"price_drifts": outcome.Drifts,
	}
	if outcome.Voucher != nil {
		resp["voucher"] = outcome.Voucher
	}
	status := fiber.StatusCreated
	if !outcome.Confirmed() {
		status = fiber.StatusUnprocessableEntity
	}
	return c.Status(status).JSON(resp)
}

// GetBooking returns one attempt by its public booking id.
// GET /api/v1/bookings/:id
func (h *BookingHandler) GetBooking(c *fiber.Ctx) error {
	attempt, err := h.Service.Repo.AttemptByBookingID(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, services.ErrAttemptNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch booking"})
	}
	return c.JSON(attempt)
}

// GetPriceHistory returns the append-only per-stage price trail of an attempt.
// GET /api/v1/bookings/:id/price-history
func (h *BookingHandler) GetPriceHistory(c *fiber.Ctx) error {
	attempt, err := h.Service.Repo.AttemptByBookingID(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, services.ErrAttemptNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch booking"})
	}
	history, err := h.Service.Repo.PriceHistoryForAttempt(c.Context(), attempt.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch price history"})
	}
	return c.JSON(fiber.Map{
		"booking_id": attempt.BookingID,
		"history":    history,
	})
}

// StreamPriceDrifts streams price drift events over SSE as the pipeline
// records them.
func (h *BookingHandler) StreamPriceDrifts(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	requestCtx := c.Context()

	ctx, cancel := context.WithCancel(context.Background())

	pubsub := h.Service.Tracker.Redis.Subscribe(ctx, services.PriceDriftChannel)
	ch := pubsub.Channel()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			cancel()
			_ = pubsub.Close()
		}()

		requestDone := requestCtx.Done()

		for {
			select {
			case <-requestDone:
				return
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				fmt.Fprintf(w, "data: %s\n\n", msg.Payload)
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})

	return nil
}

// supplierErrorResponse maps pipeline errors to HTTP statuses. Supplier
// rejections surface as 502 with the supplier's own code and message;
// not-found sentinels map to 404.
func supplierErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, tbo.ErrDestinationNotFound),
		errors.Is(err, tbo.ErrNoHotels),
		errors.Is(err, tbo.ErrNoRooms):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	var se *tbo.SupplierError
	if errors.As(err, &se) {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":         se.Message,
			"supplier_code": se.Code,
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Booking pipeline failed"})
}
