package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/faredown/hotels-backend/internal/models"
	"github.com/faredown/hotels-backend/internal/tbo"
	"github.com/google/uuid"
)

// fakeRepo is an in-memory BookingRepository for pipeline tests.
type fakeRepo struct {
	mu       sync.Mutex
	attempts map[uuid.UUID]models.BookingAttempt
	history  []models.PriceHistoryEntry
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{attempts: make(map[uuid.UUID]models.BookingAttempt)}
}

func (r *fakeRepo) CreateAttempt(ctx context.Context, attempt *models.BookingAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	if attempt.BookingID == "" {
		attempt.BookingID = "FD-HB-" + attempt.ID.String()[:8]
	}
	r.attempts[attempt.ID] = *attempt
	return nil
}

func (r *fakeRepo) SaveAttempt(ctx context.Context, attempt *models.BookingAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[attempt.ID] = *attempt
	return nil
}

func (r *fakeRepo) AttemptByID(ctx context.Context, id uuid.UUID) (*models.BookingAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.attempts[id]; ok {
		return &a, nil
	}
	return nil, ErrAttemptNotFound
}

func (r *fakeRepo) AttemptByBookingID(ctx context.Context, bookingID string) (*models.BookingAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.attempts {
		if a.BookingID == bookingID {
			a := a
			return &a, nil
		}
	}
	return nil, ErrAttemptNotFound
}

func (r *fakeRepo) AttemptByTraceID(ctx context.Context, traceID string) (*models.BookingAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.attempts {
		if a.TraceID == traceID {
			a := a
			return &a, nil
		}
	}
	return nil, ErrAttemptNotFound
}

func (r *fakeRepo) AppendPriceHistory(ctx context.Context, entry *models.PriceHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.history {
		if e.BookingAttemptID == entry.BookingAttemptID && e.Stage == entry.Stage {
			return ErrDuplicateStageEntry
		}
	}
	r.history = append(r.history, *entry)
	return nil
}

func (r *fakeRepo) PriceHistoryForAttempt(ctx context.Context, attemptID uuid.UUID) ([]models.PriceHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PriceHistoryEntry
	for _, e := range r.history {
		if e.BookingAttemptID == attemptID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeRepo) HotelsWithFrequentPriceChanges(ctx context.Context, minChanges int, limit int) ([]HotelPriceChangeStat, error) {
	return nil, nil
}

func (r *fakeRepo) singleAttempt(t *testing.T) models.BookingAttempt {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.attempts) != 1 {
		t.Fatalf("expected exactly one attempt, got %d", len(r.attempts))
	}
	for _, a := range r.attempts {
		return a
	}
	panic("unreachable")
}

// supplierScript routes one fake TBO server; per-stage responses can be
// overridden and the call order is recorded.
type supplierScript struct {
	mu        sync.Mutex
	calls     []string
	responses map[string]string
}

func newSupplierScript() *supplierScript {
	return &supplierScript{
		responses: map[string]string{
			"/Authenticate": `{"Status":1,"TokenId":"tok-test"}`,
			"/HotelCityList": `{"Status":1,"Cities":[
				{"CityName":"Dubai","Id":115936}]}`,
			"/GetHotelResult": `{"HotelSearchResult":{"ResponseStatus":1,"TraceId":"trace-1","HotelResults":[
				{"ResultIndex":4,"HotelCode":"H100","HotelName":"Palm Grand","StarRating":5,"Price":{"OfferedPrice":5000,"CurrencyCode":"INR"}},
				{"ResultIndex":9,"HotelCode":"H200","HotelName":"Marina View","StarRating":4,"Price":{"OfferedPrice":7000,"CurrencyCode":"INR"}}]}}`,
			"/GetHotelRoom": `{"GetHotelRoomResult":{"ResponseStatus":1,"HotelRoomsDetails":[
				{"RoomIndex":1,"RoomTypeName":"Deluxe","Price":{"OfferedPrice":5000,"CurrencyCode":"INR"}}]}}`,
			"/BlockRoom": `{"BlockRoomResult":{"ResponseStatus":1,"IsPriceChanged":true,"CategoryId":"CAT-9","HotelRoomsDetails":[
				{"RoomIndex":1,"RoomTypeName":"Deluxe","Price":{"OfferedPrice":5200,"CurrencyCode":"INR"}}]}}`,
			"/Book": `{"BookResult":{"ResponseStatus":1,"BookingId":987654,"ConfirmationNo":"CNF-1","BookingRefNo":"REF-1","HotelRoomsDetails":[
				{"RoomIndex":1,"RoomTypeName":"Deluxe","Price":{"OfferedPrice":5200,"CurrencyCode":"INR"}}]}}`,
			"/GenerateVoucher": `{"GenerateVoucherResult":{"ResponseStatus":1,"VoucherId":"V-1","VoucherUrl":"https://vouchers.test/V-1"}}`,
		},
	}
}

func (s *supplierScript) set(path, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[path] = body
}

func (s *supplierScript) callList() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *supplierScript) serve(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls = append(s.calls, r.URL.Path)
		body, ok := s.responses[r.URL.Path]
		s.mu.Unlock()
		if !ok {
			t.Errorf("unexpected supplier call: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestService(t *testing.T, script *supplierScript) (*BookingService, *fakeRepo) {
	t.Helper()
	srv := script.serve(t)
	client := &tbo.Client{
		AuthURL:        srv.URL + "/Authenticate",
		SearchURL:      srv.URL,
		BookingURL:     srv.URL,
		StaticURL:      srv.URL,
		ClientID:       "test-client",
		UserName:       "test-user",
		Password:       "test-pass",
		StaticUserName: "static-user",
		StaticPassword: "static-pass",
		EndUserIP:      "10.0.0.1",
		MaxRetries:     1,
		HTTPClient:     &http.Client{Timeout: 5 * time.Second},
	}
	repo := newFakeRepo()
	return NewBookingService(repo, client, NewPriceTracker(repo, nil)), repo
}

func testPipelineRequest() PipelineRequest {
	checkIn := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	return PipelineRequest{
		SearchQuery: SearchQuery{
			Destination:      "Dubai",
			CountryCode:      "AE",
			CheckIn:          checkIn,
			CheckOut:         checkIn.AddDate(0, 0, 2),
			Rooms:            []tbo.RoomOccupancy{{Adults: 2}},
			Currency:         "INR",
			GuestNationality: "IN",
		},
		Passengers: []tbo.Passenger{
			{Title: "Mr", FirstName: "Ravi", LastName: "Mehta", PaxType: tbo.PaxAdult},
		},
	}
}

func TestExecuteHappyPath(t *testing.T) {
	script := newSupplierScript()
	svc, repo := newTestService(t, script)

	outcome, err := svc.Execute(context.Background(), testPipelineRequest())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !outcome.Confirmed() {
		t.Fatalf("expected a confirmed outcome, got state %s", outcome.Attempt.State)
	}

	attempt := repo.singleAttempt(t)
	if attempt.State != models.StateBooked {
		t.Errorf("state = %s, want BOOKED", attempt.State)
	}
	// Cheapest offer by default.
	if attempt.HotelCode != "H100" || attempt.ResultIndex != 4 {
		t.Errorf("selected offer = %s/%d, want H100/4", attempt.HotelCode, attempt.ResultIndex)
	}
	if attempt.TraceID != "trace-1" {
		t.Errorf("TraceID = %q, want trace-1", attempt.TraceID)
	}
	if attempt.CategoryID != "CAT-9" {
		t.Errorf("CategoryID = %q, want CAT-9", attempt.CategoryID)
	}
	if attempt.BlockPrice != 5200 || attempt.BookPrice != 5200 {
		t.Errorf("prices = %v/%v, want 5200/5200", attempt.BlockPrice, attempt.BookPrice)
	}
	if !attempt.PriceChangedInBlock {
		t.Error("block-stage price change not flagged")
	}
	if attempt.ConfirmationID != "CNF-1" {
		t.Errorf("ConfirmationID = %q, want CNF-1", attempt.ConfirmationID)
	}
	if attempt.VoucherID != "V-1" {
		t.Errorf("VoucherID = %q, want V-1", attempt.VoucherID)
	}

	// One price_history row per stage, drift computed against the previous stage.
	history, _ := repo.PriceHistoryForAttempt(context.Background(), attempt.ID)
	if len(history) != 2 {
		t.Fatalf("got %d history entries, want 2", len(history))
	}
	block := history[0]
	if block.Stage != models.PriceStageBlock || block.PreviousPrice != 5000 || block.Price != 5200 {
		t.Errorf("block entry = %+v", block)
	}
	if block.PriceIncrease != 200 || block.PriceChangePct != 4 {
		t.Errorf("block drift = %v (%v%%), want 200 (4%%)", block.PriceIncrease, block.PriceChangePct)
	}
	book := history[1]
	if book.Stage != models.PriceStageBook || book.PreviousPrice != 5200 || book.PriceIncrease != 0 {
		t.Errorf("book entry = %+v", book)
	}
	// Zero-delta transitions are recorded too.
	if book.PriceChangePct != 0 {
		t.Errorf("book drift pct = %v, want 0", book.PriceChangePct)
	}

	wantOrder := []string{"/Authenticate", "/HotelCityList", "/GetHotelResult", "/GetHotelRoom", "/BlockRoom", "/Book", "/GenerateVoucher"}
	calls := script.callList()
	if fmt.Sprint(calls) != fmt.Sprint(wantOrder) {
		t.Errorf("call order = %v, want %v", calls, wantOrder)
	}
}

func TestExecutePendingFunds(t *testing.T) {
	script := newSupplierScript()
	script.set("/Book", `{"BookResult":{"ResponseStatus":2,"BookingId":123,"BookingRefNo":"REF-PENDING",
		"Error":{"ErrorCode":5004,"ErrorMessage":"Agency do not have enough balance."}}}`)
	svc, repo := newTestService(t, script)

	outcome, err := svc.Execute(context.Background(), testPipelineRequest())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !outcome.Confirmed() {
		t.Fatal("pending funds is a confirmed outcome, not a failure")
	}

	attempt := repo.singleAttempt(t)
	if attempt.State != models.StateBookedPendingFunds {
		t.Errorf("state = %s, want BOOKED_PENDING_FUNDS", attempt.State)
	}
	if attempt.BookStatus != bookStatusPending {
		t.Errorf("BookStatus = %q, want %q", attempt.BookStatus, bookStatusPending)
	}
	if attempt.FailureCode != "5004" {
		t.Errorf("FailureCode = %q, want 5004", attempt.FailureCode)
	}
	if attempt.FailureMessage != "Agency do not have enough balance." {
		t.Errorf("supplier message not preserved verbatim: %q", attempt.FailureMessage)
	}

	// No voucher for an unfunded booking.
	for _, call := range script.callList() {
		if call == "/GenerateVoucher" {
			t.Error("voucher must not be generated on a pending-funds outcome")
		}
	}
}

func TestExecuteNoInventory(t *testing.T) {
	script := newSupplierScript()
	script.set("/GetHotelResult", `{"HotelSearchResult":{"ResponseStatus":1,"TraceId":"trace-empty","HotelResults":[]}}`)
	svc, repo := newTestService(t, script)

	_, err := svc.Execute(context.Background(), testPipelineRequest())
	if !errors.Is(err, tbo.ErrNoHotels) {
		t.Fatalf("err = %v, want ErrNoHotels", err)
	}

	// No attempt row and no downstream supplier calls.
	repo.mu.Lock()
	if len(repo.attempts) != 0 {
		t.Errorf("expected no attempts, got %d", len(repo.attempts))
	}
	repo.mu.Unlock()
	for _, call := range script.callList() {
		if call == "/GetHotelRoom" || call == "/BlockRoom" || call == "/Book" {
			t.Errorf("unexpected downstream call %s after empty search", call)
		}
	}
}

func TestExecuteBlockFailure(t *testing.T) {
	script := newSupplierScript()
	script.set("/BlockRoom", `{"BlockRoomResult":{"ResponseStatus":2,"Error":{"ErrorCode":5003,"ErrorMessage":"Room not available"}}}`)
	svc, repo := newTestService(t, script)

	outcome, err := svc.Execute(context.Background(), testPipelineRequest())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if outcome.Confirmed() {
		t.Fatal("expected a failed outcome")
	}

	attempt := repo.singleAttempt(t)
	if attempt.State != models.StateFailed {
		t.Errorf("state = %s, want FAILED", attempt.State)
	}
	if attempt.FailureCode != "5003" || attempt.FailureMessage != "Room not available" {
		t.Errorf("failure detail = %q/%q", attempt.FailureCode, attempt.FailureMessage)
	}

	for _, call := range script.callList() {
		if call == "/Book" {
			t.Error("Book must not be issued after a failed block")
		}
	}
}

func TestExecutePriceChangeDeclined(t *testing.T) {
	script := newSupplierScript()
	svc, repo := newTestService(t, script)
	svc.AcceptPriceChange = func(drift PriceDrift) bool { return false }

	outcome, err := svc.Execute(context.Background(), testPipelineRequest())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if outcome.Confirmed() {
		t.Fatal("declined price change must not confirm")
	}

	attempt := repo.singleAttempt(t)
	if attempt.State != models.StateFailed {
		t.Errorf("state = %s, want FAILED", attempt.State)
	}
	// The block already happened; its identifiers stay on the record.
	if attempt.CategoryID != "CAT-9" {
		t.Errorf("CategoryID = %q, want CAT-9", attempt.CategoryID)
	}

	for _, call := range script.callList() {
		if call == "/Book" {
			t.Error("Book must not be issued after a declined price change")
		}
	}
}

func TestExecutePinnedHotel(t *testing.T) {
	script := newSupplierScript()
	svc, repo := newTestService(t, script)

	req := testPipelineRequest()
	req.HotelCode = "H200"
	outcome, err := svc.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !outcome.Confirmed() {
		t.Fatalf("expected a confirmed outcome, got %s", outcome.Attempt.State)
	}

	attempt := repo.singleAttempt(t)
	if attempt.HotelCode != "H200" || attempt.ResultIndex != 9 {
		t.Errorf("pinned offer = %s/%d, want H200/9", attempt.HotelCode, attempt.ResultIndex)
	}
}

func TestExecuteConcurrentAttempts(t *testing.T) {
	script := newSupplierScript()
	svc, repo := newTestService(t, script)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome, err := svc.Execute(context.Background(), testPipelineRequest())
			if err == nil && !outcome.Confirmed() {
				err = fmt.Errorf("unconfirmed outcome: %s", outcome.Attempt.State)
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("run %d: %v", i, err)
		}
	}
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if len(repo.attempts) != n {
		t.Errorf("got %d attempts, want %d", len(repo.attempts), n)
	}
	if len(repo.history) != 2*n {
		t.Errorf("got %d history rows, want %d", len(repo.history), 2*n)
	}
}
