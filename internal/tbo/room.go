/**
 * @description
 * TBO room detail fetch (GetHotelRoom) for a selected offer.
 *
 * @notes
 * - The three correlation identifiers must match the search response verbatim.
 * - Each room's raw payload is retained alongside the normalized fields because
 *   BlockRoom requires the room objects echoed back unmodified, including fields
 *   this package does not model.
 * - An empty room list is a legitimate race with the supplier's own inventory
 *   (the offer sold out between search and fetch) and is fatal for the attempt.
 */

package tbo

import (
	"context"
	"encoding/json"
)

type roomRequestWire struct {
	TokenID     string `json:"TokenId"`
	EndUserIP   string `json:"EndUserIp"`
	TraceID     string `json:"TraceId"`
	ResultIndex int    `json:"ResultIndex"`
	HotelCode   string `json:"HotelCode"`
}

type roomDetailWire struct {
	RoomIndex          int             `json:"RoomIndex"`
	RoomTypeCode       string          `json:"RoomTypeCode"`
	RoomTypeName       string          `json:"RoomTypeName"`
	RatePlanCode       string          `json:"RatePlanCode"`
	Price              priceWire       `json:"Price"`
	CancellationPolicy string          `json:"CancellationPolicy"`
}

type roomResultWire struct {
	ResponseStatus    int               `json:"ResponseStatus"`
	HotelRoomsDetails []json.RawMessage `json:"HotelRoomsDetails"`
	Error             errorWire         `json:"Error"`
}

type roomResponseWire struct {
	GetHotelRoomResult *roomResultWire `json:"GetHotelRoomResult"`
	roomResultWire
}

func (w roomResponseWire) result() roomResultWire {
	if w.GetHotelRoomResult != nil {
		return *w.GetHotelRoomResult
	}
	return w.roomResultWire
}

// RoomDetails retrieves the room-level rate plans for one offer.
func (c *Client) RoomDetails(ctx context.Context, token string, ref StageRef) ([]RoomDetail, error) {
	payload := roomRequestWire{
		TokenID:     token,
		EndUserIP:   c.EndUserIP,
		TraceID:     ref.TraceID,
		ResultIndex: ref.ResultIndex,
		HotelCode:   ref.HotelCode,
	}

	raw, err := c.postJSON(ctx, "GetHotelRoom", c.BookingURL+"/GetHotelRoom", payload)
	if err != nil {
		return nil, err
	}

	var resp roomResponseWire
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, newSupplierError("GetHotelRoom", 0, "malformed room response: "+truncate(raw, 200))
	}
	wire := resp.result()
	if wire.ResponseStatus != 1 {
		return nil, newSupplierError("GetHotelRoom", wire.Error.ErrorCode, wire.Error.ErrorMessage)
	}
	if len(wire.HotelRoomsDetails) == 0 {
		return nil, ErrNoRooms
	}

	rooms := make([]RoomDetail, 0, len(wire.HotelRoomsDetails))
	for _, rawRoom := range wire.HotelRoomsDetails {
		var rw roomDetailWire
		if err := json.Unmarshal(rawRoom, &rw); err != nil {
			continue
		}
		rooms = append(rooms, RoomDetail{
			RoomIndex:          rw.RoomIndex,
			RoomTypeCode:       rw.RoomTypeCode,
			RoomTypeName:       rw.RoomTypeName,
			RatePlanCode:       rw.RatePlanCode,
			Price:              rw.Price.amount(),
			Currency:           rw.Price.CurrencyCode,
			CancellationPolicy: rw.CancellationPolicy,
			wire:               rawRoom,
		})
	}
	if len(rooms) == 0 {
		return nil, ErrNoRooms
	}
	return rooms, nil
}
