/**
 * @description
 * Shared wire fragments for TBO responses, plus the date format the supplier
 * requires on requests.
 *
 * @notes
 * - TBO responses are inconsistent about nesting and field names between
 *   environments; every stage decodes defensively here and converts to the fixed
 *   normalized types immediately. Nothing outside this package sees wire shapes.
 */

package tbo

import "time"

// supplierDateLayout is dd/MM/yyyy, a hard TBO requirement on request dates.
const supplierDateLayout = "02/01/2006"

func formatSupplierDate(t time.Time) string {
	return t.Format(supplierDateLayout)
}

type errorWire struct {
	ErrorCode    int    `json:"ErrorCode"`
	ErrorMessage string `json:"ErrorMessage"`
}

// priceWire covers the price shapes seen across stages. OfferedPrice is
// authoritative; PublishedPrice is the pre-markdown fallback some responses
// carry instead.
type priceWire struct {
	OfferedPrice   float64 `json:"OfferedPrice"`
	PublishedPrice float64 `json:"PublishedPrice"`
	CurrencyCode   string  `json:"CurrencyCode"`
}

// amount returns the best available price from the wire shape. The supplier is
// the source of truth; no rounding is applied.
func (p priceWire) amount() float64 {
	if p.OfferedPrice > 0 {
		return p.OfferedPrice
	}
	return p.PublishedPrice
}
