/**
 * @description
 * Selection policies for the decision points between pipeline stages: which
 * search offer to proceed with, and which room rate plans to hold.
 *
 * @notes
 * - Which offer a real customer books is a business decision made outside the
 *   pipeline; the API exposes the full offer list for that. These defaults exist
 *   for callers that delegate the choice, and for the certification flow which
 *   books the cheapest inventory.
 */

package services

import "github.com/faredown/hotels-backend/internal/tbo"

// OfferSelector picks the offer to proceed with from a search result.
// Returning false aborts the attempt before any row is persisted.
type OfferSelector func(offers []tbo.HotelOffer) (tbo.HotelOffer, bool)

// RoomSelector picks the rate plans to hold from the fetched room list.
type RoomSelector func(rooms []tbo.RoomDetail) []tbo.RoomDetail

// PriceChangePolicy decides whether to proceed after the supplier reports a
// price change at Block or Book. A nil policy records the drift and proceeds.
type PriceChangePolicy func(drift PriceDrift) bool

// CheapestOffer selects the lowest offered price. Ties keep the earlier offer.
func CheapestOffer(offers []tbo.HotelOffer) (tbo.HotelOffer, bool) {
	if len(offers) == 0 {
		return tbo.HotelOffer{}, false
	}
	best := offers[0]
	for _, offer := range offers[1:] {
		if offer.OfferedPrice < best.OfferedPrice {
			best = offer
		}
	}
	return best, true
}

// OfferByHotelCode selects a caller-chosen hotel from the result set. A code
// absent from the set selects nothing; offers are only valid within the trace
// that produced them.
func OfferByHotelCode(hotelCode string) OfferSelector {
	return func(offers []tbo.HotelOffer) (tbo.HotelOffer, bool) {
		for _, offer := range offers {
			if offer.HotelCode == hotelCode {
				return offer, true
			}
		}
		return tbo.HotelOffer{}, false
	}
}

// CheapestRoom selects the single lowest-priced rate plan.
func CheapestRoom(rooms []tbo.RoomDetail) []tbo.RoomDetail {
	if len(rooms) == 0 {
		return nil
	}
	best := rooms[0]
	for _, room := range rooms[1:] {
		if room.Price < best.Price {
			best = room
		}
	}
	return []tbo.RoomDetail{best}
}
