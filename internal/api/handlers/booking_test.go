package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/faredown/hotels-backend/internal/models"
	"github.com/faredown/hotels-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// stubRepo serves fixed data for handler tests.
type stubRepo struct {
	attempt *models.BookingAttempt
	history []models.PriceHistoryEntry
	stats   []services.HotelPriceChangeStat
}

func (r *stubRepo) CreateAttempt(ctx context.Context, attempt *models.BookingAttempt) error {
	return nil
}

func (r *stubRepo) SaveAttempt(ctx context.Context, attempt *models.BookingAttempt) error {
	return nil
}

func (r *stubRepo) AttemptByID(ctx context.Context, id uuid.UUID) (*models.BookingAttempt, error) {
	if r.attempt != nil && r.attempt.ID == id {
		return r.attempt, nil
	}
	return nil, services.ErrAttemptNotFound
}

func (r *stubRepo) AttemptByBookingID(ctx context.Context, bookingID string) (*models.BookingAttempt, error) {
	if r.attempt != nil && r.attempt.BookingID == bookingID {
		return r.attempt, nil
	}
	return nil, services.ErrAttemptNotFound
}

func (r *stubRepo) AttemptByTraceID(ctx context.Context, traceID string) (*models.BookingAttempt, error) {
	if r.attempt != nil && r.attempt.TraceID == traceID {
		return r.attempt, nil
	}
	return nil, services.ErrAttemptNotFound
}

func (r *stubRepo) AppendPriceHistory(ctx context.Context, entry *models.PriceHistoryEntry) error {
	return nil
}

func (r *stubRepo) PriceHistoryForAttempt(ctx context.Context, attemptID uuid.UUID) ([]models.PriceHistoryEntry, error) {
	return r.history, nil
}

func (r *stubRepo) HotelsWithFrequentPriceChanges(ctx context.Context, minChanges int, limit int) ([]services.HotelPriceChangeStat, error) {
	return r.stats, nil
}

func testApp(repo *stubRepo) *fiber.App {
	app := fiber.New()
	handler := NewBookingHandler(&services.BookingService{Repo: repo})
	app.Get("/api/v1/bookings/:id", handler.GetBooking)
	app.Get("/api/v1/bookings/:id/price-history", handler.GetPriceHistory)
	app.Get("/api/v1/analytics/price-changes", NewAnalyticsHandler(repo).GetPriceChanges)
	return app
}

func TestGetBooking(t *testing.T) {
	attempt := &models.BookingAttempt{
		ID:        uuid.New(),
		BookingID: "FD-HB-abc12345",
		State:     models.StateBooked,
		HotelCode: "H100",
	}
	app := testApp(&stubRepo{attempt: attempt})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/bookings/FD-HB-abc12345", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got models.BookingAttempt
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.BookingID != attempt.BookingID || got.State != models.StateBooked {
		t.Errorf("unexpected body: %+v", got)
	}
}

func TestGetBookingNotFound(t *testing.T) {
	app := testApp(&stubRepo{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/bookings/FD-HB-missing", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestGetPriceHistory(t *testing.T) {
	attempt := &models.BookingAttempt{
		ID:        uuid.New(),
		BookingID: "FD-HB-abc12345",
	}
	repo := &stubRepo{
		attempt: attempt,
		history: []models.PriceHistoryEntry{
			{Stage: models.PriceStageBlock, PreviousPrice: 5000, Price: 5200, PriceIncrease: 200, PriceChangePct: 4},
			{Stage: models.PriceStageBook, PreviousPrice: 5200, Price: 5200},
		},
	}
	app := testApp(repo)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/bookings/FD-HB-abc12345/price-history", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got struct {
		BookingID string                     `json:"booking_id"`
		History   []models.PriceHistoryEntry `json:"history"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.BookingID != "FD-HB-abc12345" || len(got.History) != 2 {
		t.Errorf("unexpected body: %+v", got)
	}
	if got.History[0].PriceChangePct != 4 {
		t.Errorf("block drift pct = %v, want 4", got.History[0].PriceChangePct)
	}
}

func TestGetPriceChanges(t *testing.T) {
	repo := &stubRepo{
		stats: []services.HotelPriceChangeStat{
			{HotelCode: "H100", Changes: 5, AvgChangePct: 3.1, MaxChangePct: 8.4},
		},
	}
	app := testApp(repo)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/analytics/price-changes?min_changes=3", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got []services.HotelPriceChangeStat
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got) != 1 || got[0].HotelCode != "H100" || got[0].Changes != 5 {
		t.Errorf("unexpected body: %+v", got)
	}
}
