/**
 * @description
 * Normalized data structures for the TBO hotel supplier API.
 * Raw wire shapes are converted into these fixed types at the response boundary;
 * all downstream code operates only on the normalized types.
 *
 * @notes
 * - StageRef carries the three correlation identifiers issued at search time.
 *   Every later stage call must echo them back unchanged.
 * - ConfirmedRooms is deliberately opaque: it can only be produced by BlockRoom,
 *   which makes it impossible to wire stale room data from GetHotelRoom into
 *   Book by accident. Book validates against whatever the block last confirmed.
 */

package tbo

import (
	"encoding/json"
	"time"
)

// StageRef binds one search/booking attempt across all supplier calls.
type StageRef struct {
	TraceID     string
	ResultIndex int
	HotelCode   string
}

// RoomOccupancy is the per-room guest configuration of a search.
type RoomOccupancy struct {
	Adults    int   `json:"adults"`
	Children  int   `json:"children"`
	ChildAges []int `json:"childAges"`
}

// SearchRequest is an availability query against the supplier.
type SearchRequest struct {
	CityID           int
	CountryCode      string
	CheckIn          time.Time
	CheckOut         time.Time // end exclusive of the check-out night
	Rooms            []RoomOccupancy
	Currency         string
	GuestNationality string
}

// Nights derives the stay length from the date range.
func (r SearchRequest) Nights() int {
	n := int(r.CheckOut.Sub(r.CheckIn).Hours() / 24)
	if n < 1 {
		n = 1
	}
	return n
}

// HotelOffer is one candidate hotel from a search result.
// ResultIndex is a positional correlation handle valid only within the TraceID
// it was issued under.
type HotelOffer struct {
	ResultIndex  int
	HotelCode    string
	HotelName    string
	StarRating   int
	OfferedPrice float64
	Currency     string
}

// SearchResult is the normalized output of SearchHotels.
type SearchResult struct {
	TraceID string
	Hotels  []HotelOffer
	Raw     json.RawMessage // last-stage payload retained for audit
}

// RoomDetail is one room-level rate plan for a selected offer.
// The raw supplier payload is retained because BlockRoom requires the room
// objects echoed back verbatim, including fields this type does not model.
type RoomDetail struct {
	RoomIndex          int
	RoomTypeCode       string
	RoomTypeName       string
	RatePlanCode       string
	Price              float64
	Currency           string
	CancellationPolicy string

	wire json.RawMessage
}

// Destination is a resolved supplier location.
type Destination struct {
	ID   int
	Name string
}

// ConfirmedRooms is the room data as last confirmed by BlockRoom, plus the
// category id Book requires. Zero values are unusable: Book rejects them before
// issuing any network call.
type ConfirmedRooms struct {
	categoryID string
	rooms      []json.RawMessage
	totalPrice float64
	currency   string
}

// CategoryID returns the block-issued identifier Book must present.
func (c ConfirmedRooms) CategoryID() string { return c.categoryID }

// TotalPrice is the offered price across all confirmed rooms.
func (c ConfirmedRooms) TotalPrice() float64 { return c.totalPrice }

// Currency is the currency of TotalPrice.
func (c ConfirmedRooms) Currency() string { return c.currency }

// Empty reports whether the value was never issued by a successful block.
func (c ConfirmedRooms) Empty() bool { return len(c.rooms) == 0 }

// BlockRequest places a temporary hold on the selected rooms.
type BlockRequest struct {
	Ref               StageRef
	HotelName         string
	GuestNationality  string
	NoOfRooms         int
	Rooms             []RoomDetail
	ClientReferenceNo string
	IsVoucherBooking  bool
}

// BlockResult is the normalized output of BlockRoom. When IsPriceChanged or
// IsPolicyChanged is set, Rooms carries the supplier's superseding room data,
// not the data that was passed in.
type BlockResult struct {
	CategoryID      string
	IsPriceChanged  bool
	IsPolicyChanged bool
	TotalPrice      float64
	Currency        string
	Rooms           ConfirmedRooms
	Raw             json.RawMessage
}

// PaxType discriminates adult from child manifest entries.
type PaxType int

const (
	PaxAdult PaxType = 1
	PaxChild PaxType = 2
)

// Passenger is one occupant on the traveler manifest. Child entries carry Age.
type Passenger struct {
	Title       string
	FirstName   string
	LastName    string
	PaxType     PaxType
	Age         int
	Email       string
	Phone       string
	Nationality string
	CountryCode string
}

// BookRequest finalizes the reservation. Rooms can only be obtained from a
// prior successful BlockRoom for the same StageRef.
type BookRequest struct {
	Ref               StageRef
	Rooms             ConfirmedRooms
	HotelName         string
	GuestNationality  string
	NoOfRooms         int
	Passengers        []Passenger
	ClientReferenceNo string
	IsVoucherBooking  bool
}

// BookResult is the normalized booking confirmation.
type BookResult struct {
	BookingID      int64
	ConfirmationNo string
	BookingRefNo   string
	InvoiceNumber  string
	IsPriceChanged bool
	TotalPrice     float64
	Currency       string
	Raw            json.RawMessage
}

// Voucher is the retrievable confirmation document reference.
type Voucher struct {
	VoucherID  string
	VoucherURL string
}
