/**
 * @description
 * BookingAttempt database model.
 * Maps to the 'booking_attempts' table in PostgreSQL.
 * One row per pipeline run against the TBO hotel supplier, mutated in place as
 * stages complete and frozen once the run reaches a terminal state.
 *
 * @dependencies
 * - gorm.io/gorm
 * - gorm.io/datatypes
 * - github.com/google/uuid
 *
 * @notes
 * - trace_id, result_index and hotel_code are written once at search time and are
 *   never mutated afterwards; every later supplier call echoes them back verbatim.
 * - category_id is write-once, assigned by BlockRoom, and is a mandatory input to
 *   Book. A row with no category_id has never completed a successful block.
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BookingAttempt represents one run of the supplier booking pipeline
type BookingAttempt struct {
	ID        uuid.UUID    `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	BookingID string       `gorm:"column:booking_id;type:varchar(64);not null;uniqueIndex" json:"booking_id"`
	State     BookingState `gorm:"column:state;type:varchar(32);not null;default:'RESOLVED';index:idx_booking_attempts_state" json:"state"`

	// Supplier correlation identifiers, constant across all stages of one run
	TraceID     string `gorm:"column:trace_id;type:varchar(128);index:idx_booking_attempts_trace" json:"trace_id"`
	ResultIndex int    `gorm:"column:result_index" json:"result_index"`
	CategoryID  string `gorm:"column:category_id;type:varchar(64)" json:"category_id"`

	HotelCode string `gorm:"column:hotel_code;type:varchar(32);index:idx_booking_attempts_hotel" json:"hotel_code"`
	HotelName string `gorm:"column:hotel_name;type:varchar(255)" json:"hotel_name"`

	CheckInDate  time.Time `gorm:"column:check_in_date;type:date" json:"check_in_date"`
	CheckOutDate time.Time `gorm:"column:check_out_date;type:date" json:"check_out_date"`
	NightsCount  int       `gorm:"column:nights_count" json:"nights_count"`

	// Room/occupancy request structure, immutable once search executes
	RoomConfig    datatypes.JSON `gorm:"column:room_config" json:"room_config"`
	RoomOccupancy datatypes.JSON `gorm:"column:room_occupancy" json:"room_occupancy"`

	BlockPrice          float64 `gorm:"column:block_price;type:decimal" json:"block_price"`
	BlockCurrency       string  `gorm:"column:block_currency;type:varchar(8)" json:"block_currency"`
	BlockStatus         string  `gorm:"column:block_status;type:varchar(32)" json:"block_status"`
	PriceChangedInBlock bool    `gorm:"column:price_changed_in_block;default:false" json:"price_changed_in_block"`

	BookPrice          float64 `gorm:"column:book_price;type:decimal" json:"book_price"`
	BookCurrency       string  `gorm:"column:book_currency;type:varchar(8)" json:"book_currency"`
	BookStatus         string  `gorm:"column:book_status;type:varchar(32)" json:"book_status"`
	PriceChangedInBook bool    `gorm:"column:price_changed_in_book;default:false" json:"price_changed_in_book"`

	// Set only on a successful Book
	VoucherID      string `gorm:"column:voucher_id;type:varchar(64)" json:"voucher_id"`
	ConfirmationID string `gorm:"column:confirmation_id;type:varchar(64)" json:"confirmation_id"`

	// Populated only on cancellation flows; stored here, processed elsewhere
	CancellationCharges datatypes.JSON `gorm:"column:cancellation_charges" json:"cancellation_charges"`
	RefundToCustomer    float64        `gorm:"column:refund_to_customer;type:decimal" json:"refund_to_customer"`

	// Raw last-stage supplier payload retained for audit/debug
	SupplierResponse datatypes.JSON `gorm:"column:supplier_response" json:"supplier_response"`

	FailureCode    string `gorm:"column:failure_code;type:varchar(32)" json:"failure_code,omitempty"`
	FailureMessage string `gorm:"column:failure_message" json:"failure_message,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Associations
	PriceHistory []PriceHistoryEntry `gorm:"foreignKey:BookingAttemptID" json:"-"`
}

// TableName overrides the table name used by BookingAttempt to `booking_attempts`
func (BookingAttempt) TableName() string {
	return "booking_attempts"
}

// BeforeCreate ensures UUID and booking id are generated if not present
func (a *BookingAttempt) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.BookingID == "" {
		a.BookingID = "FD-HB-" + a.ID.String()[:8]
	}
	return
}
