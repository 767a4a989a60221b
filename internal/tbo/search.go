/**
 * @description
 * TBO hotel availability search (GetHotelResult).
 * Issues the query and normalizes the result to a trace id plus an ordered list
 * of candidate offers.
 *
 * @notes
 * - The response nests under HotelSearchResult in most environments but has been
 *   observed flattened at the top level; normalization accepts both.
 * - An empty offer list is fatal for the attempt (no inventory), distinct from a
 *   transport failure, which is retried here with bounded backoff.
 */

package tbo

import (
	"context"
	"encoding/json"
)

type roomGuestWire struct {
	NoOfAdults int   `json:"NoOfAdults"`
	NoOfChild  int   `json:"NoOfChild"`
	ChildAge   []int `json:"ChildAge"`
}

type searchRequestWire struct {
	TokenID           string          `json:"TokenId"`
	EndUserIP         string          `json:"EndUserIp"`
	CheckInDate       string          `json:"CheckInDate"`
	NoOfNights        int             `json:"NoOfNights"`
	CountryCode       string          `json:"CountryCode"`
	CityID            int             `json:"CityId"`
	PreferredCurrency string          `json:"PreferredCurrency"`
	GuestNationality  string          `json:"GuestNationality"`
	NoOfRooms         int             `json:"NoOfRooms"`
	RoomGuests        []roomGuestWire `json:"RoomGuests"`
}

type hotelResultWire struct {
	ResultIndex int       `json:"ResultIndex"`
	HotelCode   string    `json:"HotelCode"`
	HotelName   string    `json:"HotelName"`
	StarRating  int       `json:"StarRating"`
	Price       priceWire `json:"Price"`
}

type searchResultWire struct {
	ResponseStatus int               `json:"ResponseStatus"`
	TraceID        string            `json:"TraceId"`
	HotelResults   []hotelResultWire `json:"HotelResults"`
	Error          errorWire         `json:"Error"`
}

type searchResponseWire struct {
	HotelSearchResult *searchResultWire `json:"HotelSearchResult"`
	searchResultWire
}

func (w searchResponseWire) result() searchResultWire {
	if w.HotelSearchResult != nil {
		return *w.HotelSearchResult
	}
	return w.searchResultWire
}

// SearchHotels runs an availability query and returns the trace id plus the
// full candidate list. Which offer to proceed with is the caller's decision.
func (c *Client) SearchHotels(ctx context.Context, token string, req SearchRequest) (*SearchResult, error) {
	guests := make([]roomGuestWire, 0, len(req.Rooms))
	for _, room := range req.Rooms {
		ages := room.ChildAges
		if ages == nil {
			ages = []int{}
		}
		guests = append(guests, roomGuestWire{
			NoOfAdults: room.Adults,
			NoOfChild:  room.Children,
			ChildAge:   ages,
		})
	}

	payload := searchRequestWire{
		TokenID:           token,
		EndUserIP:         c.EndUserIP,
		CheckInDate:       formatSupplierDate(req.CheckIn),
		NoOfNights:        req.Nights(),
		CountryCode:       req.CountryCode,
		CityID:            req.CityID,
		PreferredCurrency: req.Currency,
		GuestNationality:  req.GuestNationality,
		NoOfRooms:         len(req.Rooms),
		RoomGuests:        guests,
	}

	var result *SearchResult
	err := c.withRetry(ctx, "GetHotelResult", func() error {
		raw, err := c.postJSON(ctx, "GetHotelResult", c.SearchURL+"/GetHotelResult", payload)
		if err != nil {
			return err
		}

		var resp searchResponseWire
		if err := json.Unmarshal(raw, &resp); err != nil {
			return newSupplierError("GetHotelResult", 0, "malformed search response: "+truncate(raw, 200))
		}
		wire := resp.result()
		if wire.ResponseStatus != 1 {
			return newSupplierError("GetHotelResult", wire.Error.ErrorCode, wire.Error.ErrorMessage)
		}

		hotels := make([]HotelOffer, 0, len(wire.HotelResults))
		for _, h := range wire.HotelResults {
			hotels = append(hotels, HotelOffer{
				ResultIndex:  h.ResultIndex,
				HotelCode:    h.HotelCode,
				HotelName:    h.HotelName,
				StarRating:   h.StarRating,
				OfferedPrice: h.Price.amount(),
				Currency:     h.Price.CurrencyCode,
			})
		}
		result = &SearchResult{TraceID: wire.TraceID, Hotels: hotels, Raw: raw}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(result.Hotels) == 0 {
		return nil, ErrNoHotels
	}
	return result, nil
}
