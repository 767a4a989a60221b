/**
 * @description
 * TBO final booking (Book). Finalizes the reservation using the room data the
 * block last confirmed, attaching the passenger manifest.
 *
 * @notes
 * - The Rooms field of BookRequest is the opaque ConfirmedRooms issued by
 *   BlockRoom; room data from GetHotelRoom cannot satisfy it. The category id
 *   travels inside it, so a Book without a prior successful Block for the same
 *   attempt is impossible to construct.
 * - The insufficient-agency-balance rejection comes back with ResponseStatus 2
 *   but represents a logically successful booking request on non-production
 *   accounts. It is surfaced as a ClassPendingFunds SupplierError together with
 *   whatever booking reference the supplier issued.
 * - Never retried after a definitive supplier reply.
 */

package tbo

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrUnblockedRooms is returned when BookRequest.Rooms was not issued by a
// successful BlockRoom. Raised before any network call.
var ErrUnblockedRooms = errors.New("tbo: book requires room data confirmed by a prior block")

type passengerWire struct {
	Title       string `json:"Title"`
	FirstName   string `json:"FirstName"`
	LastName    string `json:"LastName"`
	PaxType     int    `json:"PaxType"`
	Age         int    `json:"Age"`
	Email       string `json:"Email"`
	Phoneno     string `json:"Phoneno"`
	Nationality string `json:"Nationality"`
	CountryCode string `json:"CountryCode"`
	LeadPax     bool   `json:"LeadPassenger"`
}

type bookRequestWire struct {
	TokenID           string            `json:"TokenId"`
	EndUserIP         string            `json:"EndUserIp"`
	TraceID           string            `json:"TraceId"`
	ResultIndex       int               `json:"ResultIndex"`
	HotelCode         string            `json:"HotelCode"`
	HotelName         string            `json:"HotelName"`
	CategoryID        string            `json:"CategoryId"`
	GuestNationality  string            `json:"GuestNationality"`
	NoOfRooms         int               `json:"NoOfRooms"`
	ClientReferenceNo string            `json:"ClientReferenceNo,omitempty"`
	IsVoucherBooking  bool              `json:"IsVoucherBooking"`
	HotelRoomsDetails []json.RawMessage `json:"HotelRoomsDetails"`
	HotelPassenger    []passengerWire   `json:"HotelPassenger"`
}

type bookResultWire struct {
	ResponseStatus    int               `json:"ResponseStatus"`
	BookingID         int64             `json:"BookingId"`
	ConfirmationNo    string            `json:"ConfirmationNo"`
	BookingRefNo      string            `json:"BookingRefNo"`
	InvoiceNumber     string            `json:"InvoiceNumber"`
	IsPriceChanged    bool              `json:"IsPriceChanged"`
	HotelRoomsDetails []json.RawMessage `json:"HotelRoomsDetails"`
	Error             errorWire         `json:"Error"`
}

type bookResponseWire struct {
	BookResult *bookResultWire `json:"BookResult"`
	bookResultWire
}

func (w bookResponseWire) result() bookResultWire {
	if w.BookResult != nil {
		return *w.BookResult
	}
	return w.bookResultWire
}

// Book finalizes the reservation. On an insufficient-funds rejection the
// returned BookResult preserves any booking reference the supplier issued, and
// the error classifies as pending funds; callers must treat that outcome as a
// working integration blocked on account funding, not a booking failure.
func (c *Client) Book(ctx context.Context, token string, req BookRequest) (*BookResult, error) {
	if req.Rooms.Empty() {
		return nil, ErrUnblockedRooms
	}
	if req.Rooms.CategoryID() == "" {
		return nil, ErrUnblockedRooms
	}

	passengers := make([]passengerWire, 0, len(req.Passengers))
	for i, p := range req.Passengers {
		passengers = append(passengers, passengerWire{
			Title:       p.Title,
			FirstName:   p.FirstName,
			LastName:    p.LastName,
			PaxType:     int(p.PaxType),
			Age:         p.Age,
			Email:       p.Email,
			Phoneno:     p.Phone,
			Nationality: p.Nationality,
			CountryCode: p.CountryCode,
			LeadPax:     i == 0,
		})
	}

	payload := bookRequestWire{
		TokenID:           token,
		EndUserIP:         c.EndUserIP,
		TraceID:           req.Ref.TraceID,
		ResultIndex:       req.Ref.ResultIndex,
		HotelCode:         req.Ref.HotelCode,
		HotelName:         req.HotelName,
		CategoryID:        req.Rooms.CategoryID(),
		GuestNationality:  req.GuestNationality,
		NoOfRooms:         req.NoOfRooms,
		ClientReferenceNo: req.ClientReferenceNo,
		IsVoucherBooking:  req.IsVoucherBooking,
		HotelRoomsDetails: req.Rooms.rooms,
		HotelPassenger:    passengers,
	}

	raw, err := c.postJSON(ctx, "Book", c.BookingURL+"/Book", payload)
	if err != nil {
		return nil, err
	}

	var resp bookResponseWire
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, newSupplierError("Book", 0, "malformed book response: "+truncate(raw, 200))
	}
	wire := resp.result()

	rooms := wire.HotelRoomsDetails
	if len(rooms) == 0 {
		rooms = req.Rooms.rooms
	}
	total, currency := sumRoomPrices(rooms)

	result := &BookResult{
		BookingID:      wire.BookingID,
		ConfirmationNo: wire.ConfirmationNo,
		BookingRefNo:   wire.BookingRefNo,
		InvoiceNumber:  wire.InvoiceNumber,
		IsPriceChanged: wire.IsPriceChanged,
		TotalPrice:     total,
		Currency:       currency,
		Raw:            raw,
	}

	if wire.ResponseStatus != 1 {
		// Preserve any reference the supplier issued alongside the rejection;
		// on a pending-funds outcome the caller records it.
		return result, newSupplierError("Book", wire.Error.ErrorCode, wire.Error.ErrorMessage)
	}
	return result, nil
}
