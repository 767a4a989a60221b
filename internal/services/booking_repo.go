/**
 * @description
 * Persistence boundary for booking attempts and the append-only price history.
 * The interface exists so pipeline tests can run against an in-memory fake; the
 * GORM implementation is the production one.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/jackc/pgconn: Postgres error inspection
 *
 * @notes
 * - price_history is append-only. The composite unique index on
 *   (booking_attempt_id, stage) makes a double write a constraint violation,
 *   surfaced as ErrDuplicateStageEntry rather than a silent overwrite.
 */

package services

import (
	"context"
	"errors"

	"github.com/faredown/hotels-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"gorm.io/gorm"
)

// ErrDuplicateStageEntry is returned when a second price_history row is written
// for the same (attempt, stage) pair.
var ErrDuplicateStageEntry = errors.New("price history entry already recorded for this stage")

// ErrAttemptNotFound is returned by lookups that match no row.
var ErrAttemptNotFound = errors.New("booking attempt not found")

// HotelPriceChangeStat is one row of the price-change analytics aggregate.
type HotelPriceChangeStat struct {
	HotelCode    string  `json:"hotel_code"`
	Changes      int64   `json:"changes"`
	AvgChangePct float64 `json:"avg_change_pct"`
	MaxChangePct float64 `json:"max_change_pct"`
}

// BookingRepository is the storage contract the pipeline depends on.
type BookingRepository interface {
	CreateAttempt(ctx context.Context, attempt *models.BookingAttempt) error
	SaveAttempt(ctx context.Context, attempt *models.BookingAttempt) error
	AttemptByID(ctx context.Context, id uuid.UUID) (*models.BookingAttempt, error)
	AttemptByBookingID(ctx context.Context, bookingID string) (*models.BookingAttempt, error)
	AttemptByTraceID(ctx context.Context, traceID string) (*models.BookingAttempt, error)

	AppendPriceHistory(ctx context.Context, entry *models.PriceHistoryEntry) error
	PriceHistoryForAttempt(ctx context.Context, attemptID uuid.UUID) ([]models.PriceHistoryEntry, error)
	HotelsWithFrequentPriceChanges(ctx context.Context, minChanges int, limit int) ([]HotelPriceChangeStat, error)
}

// GormBookingRepository implements BookingRepository on Postgres.
type GormBookingRepository struct {
	DB *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{DB: db}
}

func (r *GormBookingRepository) CreateAttempt(ctx context.Context, attempt *models.BookingAttempt) error {
	return r.DB.WithContext(ctx).Create(attempt).Error
}

func (r *GormBookingRepository) SaveAttempt(ctx context.Context, attempt *models.BookingAttempt) error {
	return r.DB.WithContext(ctx).Save(attempt).Error
}

func (r *GormBookingRepository) AttemptByID(ctx context.Context, id uuid.UUID) (*models.BookingAttempt, error) {
	var attempt models.BookingAttempt
	err := r.DB.WithContext(ctx).First(&attempt, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *GormBookingRepository) AttemptByBookingID(ctx context.Context, bookingID string) (*models.BookingAttempt, error) {
	var attempt models.BookingAttempt
	err := r.DB.WithContext(ctx).First(&attempt, "booking_id = ?", bookingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *GormBookingRepository) AttemptByTraceID(ctx context.Context, traceID string) (*models.BookingAttempt, error) {
	var attempt models.BookingAttempt
	err := r.DB.WithContext(ctx).
		Where("trace_id = ?", traceID).
		Order("created_at DESC").
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *GormBookingRepository) AppendPriceHistory(ctx context.Context, entry *models.PriceHistoryEntry) error {
	err := r.DB.WithContext(ctx).Create(entry).Error
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateStageEntry
	}
	return err
}

func (r *GormBookingRepository) PriceHistoryForAttempt(ctx context.Context, attemptID uuid.UUID) ([]models.PriceHistoryEntry, error) {
	var entries []models.PriceHistoryEntry
	err := r.DB.WithContext(ctx).
		Where("booking_attempt_id = ?", attemptID).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// HotelsWithFrequentPriceChanges aggregates the append-only log across attempts:
// hotels ranked by how often the supplier moved the price between stages.
func (r *GormBookingRepository) HotelsWithFrequentPriceChanges(ctx context.Context, minChanges int, limit int) ([]HotelPriceChangeStat, error) {
	if minChanges < 1 {
		minChanges = 1
	}
	if limit < 1 {
		limit = 20
	}

	var stats []HotelPriceChangeStat
	err := r.DB.WithContext(ctx).
		Table("price_history").
		Select("hotel_code, COUNT(*) AS changes, AVG(price_change_pct) AS avg_change_pct, MAX(price_change_pct) AS max_change_pct").
		Where("price_increase <> 0").
		Group("hotel_code").
		Having("COUNT(*) >= ?", minChanges).
		Order("changes DESC").
		Limit(limit).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}
