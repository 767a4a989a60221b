/**
 * @description
 * TBO voucher generation (GenerateVoucher). Consumes a confirmed booking id and
 * produces a retrievable confirmation document reference.
 * Rendering and delivery of the document happen elsewhere.
 */

package tbo

import (
	"context"
	"encoding/json"
)

type voucherRequestWire struct {
	TokenID      string `json:"TokenId"`
	EndUserIP    string `json:"EndUserIp"`
	BookingID    int64  `json:"BookingId"`
	BookingRefNo string `json:"BookingRefNo,omitempty"`
}

type voucherResultWire struct {
	ResponseStatus int       `json:"ResponseStatus"`
	VoucherID      string    `json:"VoucherId"`
	VoucherURL     string    `json:"VoucherURL"`
	Error          errorWire `json:"Error"`
}

type voucherResponseWire struct {
	GenerateVoucherResult *voucherResultWire `json:"GenerateVoucherResult"`
	voucherResultWire
}

func (w voucherResponseWire) result() voucherResultWire {
	if w.GenerateVoucherResult != nil {
		return *w.GenerateVoucherResult
	}
	return w.voucherResultWire
}

// GenerateVoucher requests the confirmation document for a booked reservation.
func (c *Client) GenerateVoucher(ctx context.Context, token string, bookingID int64, bookingRefNo string) (*Voucher, error) {
	payload := voucherRequestWire{
		TokenID:      token,
		EndUserIP:    c.EndUserIP,
		BookingID:    bookingID,
		BookingRefNo: bookingRefNo,
	}

	raw, err := c.postJSON(ctx, "GenerateVoucher", c.BookingURL+"/GenerateVoucher", payload)
	if err != nil {
		return nil, err
	}

	var resp voucherResponseWire
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, newSupplierError("GenerateVoucher", 0, "malformed voucher response: "+truncate(raw, 200))
	}
	wire := resp.result()
	if wire.ResponseStatus != 1 {
		return nil, newSupplierError("GenerateVoucher", wire.Error.ErrorCode, wire.Error.ErrorMessage)
	}

	return &Voucher{VoucherID: wire.VoucherID, VoucherURL: wire.VoucherURL}, nil
}
