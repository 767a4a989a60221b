/**
 * @description
 * Supplier booking pipeline orchestrator.
 * Chains the dependent TBO calls that turn a search query into a confirmed,
 * paid reservation: Resolve → Search → Fetch → Block → Book (→ Voucher), with
 * price drift recorded between stages.
 *
 * @dependencies
 * - backend/internal/tbo
 * - backend/internal/models
 * - github.com/google/uuid
 *
 * @notes
 * - Stages run strictly sequentially; each request needs identifiers only the
 *   prior response provides. Concurrency lives across runs, not within one:
 *   every run owns its BookingAttempt row and shares nothing mutable.
 * - The BookingAttempt row is created once Search succeeds and an offer is
 *   selected. From then on failures are recorded on the row, not just returned.
 * - Block and Book are never re-issued after a definitive supplier reply.
 * - If the caller abandons the attempt mid-pipeline the run stops before the
 *   next stage call; a completed block needs no undo, holds expire supplier-side.
 */

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/faredown/hotels-backend/internal/logger"
	"github.com/faredown/hotels-backend/internal/models"
	"github.com/faredown/hotels-backend/internal/tbo"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ErrNoOfferSelected is returned when the selector declines every offer.
var ErrNoOfferSelected = errors.New("no offer selected from search results")

// ErrPriceChangeDeclined is returned when the caller's price-change policy
// rejects a supplier-reported drift.
var ErrPriceChangeDeclined = errors.New("price change declined by caller policy")

const (
	blockStatusSuccess = "success"
	bookStatusSuccess  = "success"
	bookStatusPending  = "pending_funds"
	bookStatusFailed   = "failed"
)

// BookingService runs the pipeline and owns its persistence side effects.
type BookingService struct {
	Repo    BookingRepository
	TBO     *tbo.Client
	Tracker *PriceTracker

	// Decision points; nil fields fall back to the defaults in selection.go.
	SelectOffer       OfferSelector
	SelectRooms       RoomSelector
	AcceptPriceChange PriceChangePolicy
}

func NewBookingService(repo BookingRepository, client *tbo.Client, tracker *PriceTracker) *BookingService {
	return &BookingService{
		Repo:    repo,
		TBO:     client,
		Tracker: tracker,
	}
}

// SearchQuery is the caller-facing availability query.
type SearchQuery struct {
	Destination      string              `json:"destination"`
	CountryCode      string              `json:"country_code"`
	CheckIn          time.Time           `json:"check_in"`
	CheckOut         time.Time           `json:"check_out"`
	Rooms            []tbo.RoomOccupancy `json:"rooms"`
	Currency         string              `json:"currency"`
	GuestNationality string              `json:"guest_nationality"`
}

// SearchOffers resolves the destination and runs availability, returning the
// full candidate list so the offer decision can be made by the caller.
func (s *BookingService) SearchOffers(ctx context.Context, q SearchQuery) (*tbo.SearchResult, error) {
	token, err := s.TBO.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	dest, err := s.TBO.ResolveDestination(ctx, q.Destination, q.CountryCode)
	if err != nil {
		return nil, err
	}

	return s.TBO.SearchHotels(ctx, token, tbo.SearchRequest{
		CityID:           dest.ID,
		CountryCode:      q.CountryCode,
		CheckIn:          q.CheckIn,
		CheckOut:         q.CheckOut,
		Rooms:            q.Rooms,
		Currency:         q.Currency,
		GuestNationality: q.GuestNationality,
	})
}

// PipelineRequest is one full booking attempt.
type PipelineRequest struct {
	SearchQuery
	// HotelCode optionally pins the attempt to an offer the caller already chose
	// from a prior SearchOffers call for the same query.
	HotelCode  string          `json:"hotel_code"`
	Passengers []tbo.Passenger `json:"passengers"`
}

// BookingOutcome is what the caller of the whole pipeline receives: a confirmed
// booking, a confirmed-pending-funds booking, or a failure with its reason.
// Intermediate stage detail lives in the persisted supplier_response and
// price_history.
type BookingOutcome struct {
	Attempt *models.BookingAttempt
	Voucher *tbo.Voucher
	Drifts  []PriceDrift
}

// Confirmed reports whether the attempt reached either terminal booked state.
func (o *BookingOutcome) Confirmed() bool {
	return o.Attempt.State == models.StateBooked || o.Attempt.State == models.StateBookedPendingFunds
}

// Execute runs the whole pipeline for one attempt.
// Failures before an attempt row exists (resolution, search, transport) are
// returned as errors with no persistence; once the row exists, failures are
// recorded on it and the outcome carries the terminal state.
func (s *BookingService) Execute(ctx context.Context, req PipelineRequest) (*BookingOutcome, error) {
	token, err := s.TBO.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	dest, err := s.TBO.ResolveDestination(ctx, req.Destination, req.CountryCode)
	if err != nil {
		return nil, err
	}

	search, err := s.TBO.SearchHotels(ctx, token, tbo.SearchRequest{
		CityID:           dest.ID,
		CountryCode:      req.CountryCode,
		CheckIn:          req.CheckIn,
		CheckOut:         req.CheckOut,
		Rooms:            req.Rooms,
		Currency:         req.Currency,
		GuestNationality: req.GuestNationality,
	})
	if err != nil {
		return nil, err
	}

	offer, ok := s.chooseOffer(req, search.Hotels)
	if !ok {
		return nil, ErrNoOfferSelected
	}

	attempt, err := s.createAttempt(ctx, req, search, offer)
	if err != nil {
		return nil, fmt.Errorf("persist booking attempt: %w", err)
	}

	outcome := &BookingOutcome{Attempt: attempt}
	ref := tbo.StageRef{
		TraceID:     attempt.TraceID,
		ResultIndex: attempt.ResultIndex,
		HotelCode:   attempt.HotelCode,
	}

	// Fetch
	if err := s.ensureLive(ctx, attempt); err != nil {
		return outcome, nil
	}
	rooms, err := s.TBO.RoomDetails(ctx, token, ref)
	if err != nil {
		s.fail(ctx, attempt, err)
		return outcome, nil
	}
	if err := s.transition(ctx, attempt, models.StateRoomFetched); err != nil {
		return nil, err
	}

	selectRooms := s.SelectRooms
	if selectRooms == nil {
		selectRooms = CheapestRoom
	}
	selected := selectRooms(rooms)
	if len(selected) == 0 {
		s.fail(ctx, attempt, tbo.ErrNoRooms)
		return outcome, nil
	}

	// Block
	if err := s.ensureLive(ctx, attempt); err != nil {
		return outcome, nil
	}
	block, err := s.TBO.BlockRoom(ctx, token, tbo.BlockRequest{
		Ref:               ref,
		HotelName:         attempt.HotelName,
		GuestNationality:  req.GuestNationality,
		NoOfRooms:         len(req.Rooms),
		Rooms:             selected,
		ClientReferenceNo: attempt.BookingID,
		IsVoucherBooking:  true,
	})
	if err != nil {
		s.fail(ctx, attempt, err)
		return outcome, nil
	}

	blockDrift, err := s.Tracker.Record(ctx, attempt, models.PriceStageBlock, offer.OfferedPrice, block.TotalPrice, block.Currency)
	if err != nil {
		return nil, fmt.Errorf("record block price drift: %w", err)
	}
	outcome.Drifts = append(outcome.Drifts, *blockDrift)

	attempt.CategoryID = block.CategoryID
	attempt.BlockPrice = block.TotalPrice
	attempt.BlockCurrency = block.Currency
	attempt.BlockStatus = blockStatusSuccess
	attempt.PriceChangedInBlock = block.IsPriceChanged || blockDrift.Changed
	attempt.SupplierResponse = datatypes.JSON(block.Raw)
	if err := s.transition(ctx, attempt, models.StateBlocked); err != nil {
		return nil, err
	}

	if (block.IsPriceChanged || block.IsPolicyChanged || blockDrift.Changed) && s.AcceptPriceChange != nil {
		if !s.AcceptPriceChange(*blockDrift) {
			s.fail(ctx, attempt, ErrPriceChangeDeclined)
			return outcome, nil
		}
	}

	// Book uses the room data the block confirmed, never the fetch output.
	if err := s.ensureLive(ctx, attempt); err != nil {
		return outcome, nil
	}
	book, err := s.TBO.Book(ctx, token, tbo.BookRequest{
		Ref:               ref,
		Rooms:             block.Rooms,
		HotelName:         attempt.HotelName,
		GuestNationality:  req.GuestNationality,
		NoOfRooms:         len(req.Rooms),
		Passengers:        req.Passengers,
		ClientReferenceNo: attempt.BookingID,
		IsVoucherBooking:  true,
	})

	switch {
	case err == nil:
		if err := s.finishBooked(ctx, attempt, outcome, token, block, book); err != nil {
			return nil, err
		}
	case tbo.IsPendingFunds(err):
		if err := s.finishPendingFunds(ctx, attempt, outcome, block, book, err); err != nil {
			return nil, err
		}
	default:
		attempt.BookStatus = bookStatusFailed
		if book != nil {
			attempt.SupplierResponse = datatypes.JSON(book.Raw)
		}
		s.fail(ctx, attempt, err)
	}
	return outcome, nil
}

func (s *BookingService) chooseOffer(req PipelineRequest, offers []tbo.HotelOffer) (tbo.HotelOffer, bool) {
	if req.HotelCode != "" {
		return OfferByHotelCode(req.HotelCode)(offers)
	}
	if s.SelectOffer != nil {
		return s.SelectOffer(offers)
	}
	return CheapestOffer(offers)
}

func (s *BookingService) createAttempt(ctx context.Context, req PipelineRequest, search *tbo.SearchResult, offer tbo.HotelOffer) (*models.BookingAttempt, error) {
	roomConfig, err := json.Marshal(req.Rooms)
	if err != nil {
		return nil, err
	}
	occupancy, err := json.Marshal(map[string]interface{}{
		"rooms":    len(req.Rooms),
		"currency": req.Currency,
	})
	if err != nil {
		return nil, err
	}

	attempt := &models.BookingAttempt{
		ID:            uuid.New(),
		State:         models.StateSearched,
		TraceID:       search.TraceID,
		ResultIndex:   offer.ResultIndex,
		HotelCode:     offer.HotelCode,
		HotelName:     offer.HotelName,
		CheckInDate:   req.CheckIn,
		CheckOutDate:  req.CheckOut,
		NightsCount:   nights(req.CheckIn, req.CheckOut),
		RoomConfig:    datatypes.JSON(roomConfig),
		RoomOccupancy: datatypes.JSON(occupancy),
	}
	if err := s.Repo.CreateAttempt(ctx, attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

func (s *BookingService) finishBooked(ctx context.Context, attempt *models.BookingAttempt, outcome *BookingOutcome, token string, block *tbo.BlockResult, book *tbo.BookResult) error {
	bookDrift, err := s.Tracker.Record(ctx, attempt, models.PriceStageBook, block.TotalPrice, book.TotalPrice, book.Currency)
	if err != nil {
		return fmt.Errorf("record book price drift: %w", err)
	}
	outcome.Drifts = append(outcome.Drifts, *bookDrift)

	attempt.BookPrice = book.TotalPrice
	attempt.BookCurrency = book.Currency
	attempt.BookStatus = bookStatusSuccess
	attempt.PriceChangedInBook = book.IsPriceChanged || bookDrift.Changed
	attempt.ConfirmationID = book.ConfirmationNo
	attempt.SupplierResponse = datatypes.JSON(book.Raw)

	// Voucher failure does not unwind a confirmed booking; the document can be
	// regenerated out of band.
	if voucher, verr := s.TBO.GenerateVoucher(ctx, token, book.BookingID, book.BookingRefNo); verr == nil {
		attempt.VoucherID = voucher.VoucherID
		outcome.Voucher = voucher
	} else {
		logger.Error("Voucher generation failed for booking %s: %v", attempt.BookingID, verr)
	}

	return s.transition(ctx, attempt, models.StateBooked)
}

func (s *BookingService) finishPendingFunds(ctx context.Context, attempt *models.BookingAttempt, outcome *BookingOutcome, block *tbo.BlockResult, book *tbo.BookResult, cause error) error {
	if book != nil && book.TotalPrice > 0 {
		drift, err := s.Tracker.Record(ctx, attempt, models.PriceStageBook, block.TotalPrice, book.TotalPrice, book.Currency)
		if err != nil {
			return fmt.Errorf("record book price drift: %w", err)
		}
		outcome.Drifts = append(outcome.Drifts, *drift)
		attempt.BookPrice = book.TotalPrice
		attempt.BookCurrency = book.Currency
		attempt.PriceChangedInBook = book.IsPriceChanged || drift.Changed
	}
	if book != nil {
		attempt.ConfirmationID = book.ConfirmationNo
		attempt.SupplierResponse = datatypes.JSON(book.Raw)
	}
	attempt.BookStatus = bookStatusPending
	setFailureDetail(attempt, cause)
	return s.transition(ctx, attempt, models.StateBookedPendingFunds)
}

// ensureLive stops the pipeline between stages when the caller has abandoned
// the attempt. Nothing is undone; supplier-side holds expire on their own.
func (s *BookingService) ensureLive(ctx context.Context, attempt *models.BookingAttempt) error {
	if err := ctx.Err(); err != nil {
		persistCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		attempt.FailureMessage = "attempt abandoned by caller"
		attempt.State = models.StateFailed
		if saveErr := s.Repo.SaveAttempt(persistCtx, attempt); saveErr != nil {
			logger.Error("Failed to persist abandoned attempt %s: %v", attempt.BookingID, saveErr)
		}
		return err
	}
	return nil
}

func (s *BookingService) transition(ctx context.Context, attempt *models.BookingAttempt, next models.BookingState) error {
	if !attempt.State.CanTransition(next) {
		return fmt.Errorf("illegal state transition %s -> %s for attempt %s", attempt.State, next, attempt.BookingID)
	}
	attempt.State = next
	return s.Repo.SaveAttempt(ctx, attempt)
}

// fail marks the attempt FAILED, preserving the supplier's code and message.
// Persistence errors here are logged, not returned: the original failure is the
// one the caller needs to see.
func (s *BookingService) fail(ctx context.Context, attempt *models.BookingAttempt, cause error) {
	setFailureDetail(attempt, cause)
	if !attempt.State.CanTransition(models.StateFailed) {
		logger.Error("Attempt %s already terminal in state %s; dropping failure: %v", attempt.BookingID, attempt.State, cause)
		return
	}
	attempt.State = models.StateFailed
	if err := s.Repo.SaveAttempt(ctx, attempt); err != nil {
		logger.Error("Failed to persist FAILED state for attempt %s: %v", attempt.BookingID, err)
	}
}

func setFailureDetail(attempt *models.BookingAttempt, cause error) {
	if cause == nil {
		return
	}
	var se *tbo.SupplierError
	if errors.As(cause, &se) {
		if se.Code != 0 {
			attempt.FailureCode = fmt.Sprintf("%d", se.Code)
		}
		attempt.FailureMessage = se.Message
		return
	}
	attempt.FailureMessage = cause.Error()
}

func nights(checkIn, checkOut time.Time) int {
	n := int(checkOut.Sub(checkIn).Hours() / 24)
	if n < 1 {
		n = 1
	}
	return n
}
