/**
 * @description
 * PriceHistoryEntry database model.
 * Maps to the 'price_history' table in PostgreSQL.
 * Append-only log of the price observed at each pipeline stage, with the delta
 * against the previous recorded stage. Rows are never updated or deleted.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/google/uuid
 *
 * @notes
 * - One row per (booking_attempt_id, stage); the composite unique index enforces
 *   it. Replaying the rows for a trace ordered by created_at reconstructs the
 *   full price trajectory.
 * - A zero-delta row is still written: it records that the price was checked and
 *   found stable at that stage.
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PriceStage identifies which pipeline stage observed the price
type PriceStage string

const (
	PriceStageSearch PriceStage = "search"
	PriceStageBlock  PriceStage = "block"
	PriceStageBook   PriceStage = "book"
)

// PriceHistoryEntry records the price observed at one stage of one booking attempt
type PriceHistoryEntry struct {
	ID               uuid.UUID  `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	BookingAttemptID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_price_history_attempt_stage;index:idx_price_history_attempt" json:"booking_attempt_id"`
	Stage            PriceStage `gorm:"column:stage;type:varchar(16);not null;uniqueIndex:idx_price_history_attempt_stage" json:"stage"`

	TraceID   string `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	HotelCode string `gorm:"column:hotel_code;type:varchar(32);index:idx_price_history_hotel" json:"hotel_code"`

	Price         float64 `gorm:"column:price;type:decimal;not null" json:"price"`
	PreviousPrice float64 `gorm:"column:previous_price;type:decimal" json:"previous_price"`
	Currency      string  `gorm:"column:currency;type:varchar(8)" json:"currency"`

	PriceIncrease  float64 `gorm:"column:price_increase;type:decimal" json:"price_increase"`
	PriceChangePct float64 `gorm:"column:price_change_pct;type:decimal" json:"price_change_pct"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName overrides the table name used by PriceHistoryEntry to `price_history`
func (PriceHistoryEntry) TableName() string {
	return "price_history"
}

// BeforeCreate ensures UUID is generated if not present
func (e *PriceHistoryEntry) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return
}
