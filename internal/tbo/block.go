/**
 * @description
 * TBO room hold (BlockRoom). Places a temporary hold on the selected rooms and
 * returns the supplier's last word on price and policy, plus the category id
 * that Book requires.
 *
 * @notes
 * - The single most important rule of the pipeline: when the supplier reports a
 *   price or policy change, the room data in the block RESPONSE supersedes the
 *   data that was sent in. Book validates against whatever the block last
 *   confirmed, so the ConfirmedRooms returned here is built from the response
 *   rooms whenever the supplier returned any. Passing stale fetch-stage data to
 *   Book causes a rejection.
 * - Holds expire supplier-side; a failed or abandoned block needs no cleanup.
 * - Never retried after a definitive supplier reply.
 */

package tbo

import (
	"context"
	"encoding/json"
)

type blockRequestWire struct {
	TokenID           string            `json:"TokenId"`
	EndUserIP         string            `json:"EndUserIp"`
	TraceID           string            `json:"TraceId"`
	ResultIndex       int               `json:"ResultIndex"`
	HotelCode         string            `json:"HotelCode"`
	HotelName         string            `json:"HotelName"`
	GuestNationality  string            `json:"GuestNationality"`
	NoOfRooms         int               `json:"NoOfRooms"`
	ClientReferenceNo string            `json:"ClientReferenceNo,omitempty"`
	IsVoucherBooking  bool              `json:"IsVoucherBooking"`
	HotelRoomsDetails []json.RawMessage `json:"HotelRoomsDetails"`
}

type blockResultWire struct {
	ResponseStatus              int               `json:"ResponseStatus"`
	IsPriceChanged              bool              `json:"IsPriceChanged"`
	IsCancellationPolicyChanged bool              `json:"IsCancellationPolicyChanged"`
	IsPolicyChanged             bool              `json:"IsPolicyChanged"`
	CategoryID                  string            `json:"CategoryId"`
	AvailabilityType            string            `json:"AvailabilityType"`
	HotelRoomsDetails           []json.RawMessage `json:"HotelRoomsDetails"`
	Error                       errorWire         `json:"Error"`
}

type blockResponseWire struct {
	BlockRoomResult *blockResultWire `json:"BlockRoomResult"`
	blockResultWire
}

func (w blockResponseWire) result() blockResultWire {
	if w.BlockRoomResult != nil {
		return *w.BlockRoomResult
	}
	return w.blockResultWire
}

// BlockRoom holds the selected rooms. The returned BlockResult carries the only
// ConfirmedRooms value Book will accept for this attempt.
func (c *Client) BlockRoom(ctx context.Context, token string, req BlockRequest) (*BlockResult, error) {
	roomPayloads := make([]json.RawMessage, 0, len(req.Rooms))
	for _, room := range req.Rooms {
		roomPayloads = append(roomPayloads, room.wire)
	}

	payload := blockRequestWire{
		TokenID:           token,
		EndUserIP:         c.EndUserIP,
		TraceID:           req.Ref.TraceID,
		ResultIndex:       req.Ref.ResultIndex,
		HotelCode:         req.Ref.HotelCode,
		HotelName:         req.HotelName,
		GuestNationality:  req.GuestNationality,
		NoOfRooms:         req.NoOfRooms,
		ClientReferenceNo: req.ClientReferenceNo,
		IsVoucherBooking:  req.IsVoucherBooking,
		HotelRoomsDetails: roomPayloads,
	}

	raw, err := c.postJSON(ctx, "BlockRoom", c.BookingURL+"/BlockRoom", payload)
	if err != nil {
		return nil, err
	}

	var resp blockResponseWire
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, newSupplierError("BlockRoom", 0, "malformed block response: "+truncate(raw, 200))
	}
	wire := resp.result()
	if wire.ResponseStatus != 1 {
		return nil, newSupplierError("BlockRoom", wire.Error.ErrorCode, wire.Error.ErrorMessage)
	}

	// The supplier's returned rooms supersede the ones sent in. Fall back to the
	// request rooms only when the response carried none at all.
	confirmedWire := wire.HotelRoomsDetails
	if len(confirmedWire) == 0 {
		confirmedWire = roomPayloads
	}

	total, currency := sumRoomPrices(confirmedWire)
	confirmed := ConfirmedRooms{
		categoryID: wire.CategoryID,
		rooms:      confirmedWire,
		totalPrice: total,
		currency:   currency,
	}

	return &BlockResult{
		CategoryID:      wire.CategoryID,
		IsPriceChanged:  wire.IsPriceChanged,
		IsPolicyChanged: wire.IsCancellationPolicyChanged || wire.IsPolicyChanged,
		TotalPrice:      total,
		Currency:        currency,
		Rooms:           confirmed,
		Raw:             raw,
	}, nil
}

// sumRoomPrices totals the offered price across raw room payloads.
func sumRoomPrices(rooms []json.RawMessage) (float64, string) {
	var total float64
	var currency string
	for _, rawRoom := range rooms {
		var rw roomDetailWire
		if err := json.Unmarshal(rawRoom, &rw); err != nil {
			continue
		}
		total += rw.Price.amount()
		if currency == "" {
			currency = rw.Price.CurrencyCode
		}
	}
	return total, currency
}
