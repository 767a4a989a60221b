package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/faredown/hotels-backend/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func testAttempt() *models.BookingAttempt {
	return &models.BookingAttempt{
		ID:        uuid.New(),
		BookingID: "FD-HB-test",
		TraceID:   "trace-1",
		HotelCode: "H100",
	}
}

func TestRecordComputesDrift(t *testing.T) {
	repo := newFakeRepo()
	tracker := NewPriceTracker(repo, nil)
	attempt := testAttempt()

	drift, err := tracker.Record(context.Background(), attempt, models.PriceStageBlock, 5000, 5200, "INR")
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if drift.PriceIncrease != 200 {
		t.Errorf("PriceIncrease = %v, want 200", drift.PriceIncrease)
	}
	if drift.ChangePct != 4 {
		t.Errorf("ChangePct = %v, want 4", drift.ChangePct)
	}
	if !drift.Changed {
		t.Error("a 200-unit move must flag Changed")
	}

	entries, _ := repo.PriceHistoryForAttempt(context.Background(), attempt.ID)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.PreviousPrice != 5000 || e.Price != 5200 || e.PriceChangePct != 4 {
		t.Errorf("persisted entry = %+v", e)
	}
}

func TestRecordZeroDelta(t *testing.T) {
	repo := newFakeRepo()
	tracker := NewPriceTracker(repo, nil)
	attempt := testAttempt()

	drift, err := tracker.Record(context.Background(), attempt, models.PriceStageBook, 5200, 5200, "INR")
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if drift.Changed {
		t.Error("zero delta must not flag Changed")
	}

	// The stable price is still recorded as proof it was checked.
	entries, _ := repo.PriceHistoryForAttempt(context.Background(), attempt.ID)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].PriceIncrease != 0 || entries[0].PriceChangePct != 0 {
		t.Errorf("persisted entry = %+v", entries[0])
	}
}

func TestRecordZeroBaseline(t *testing.T) {
	repo := newFakeRepo()
	tracker := NewPriceTracker(repo, nil)

	drift, err := tracker.Record(context.Background(), testAttempt(), models.PriceStageBlock, 0, 4000, "INR")
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if drift.ChangePct != 0 {
		t.Errorf("ChangePct = %v, want 0 for a zero baseline", drift.ChangePct)
	}
	if drift.PriceIncrease != 4000 {
		t.Errorf("PriceIncrease = %v, want 4000", drift.PriceIncrease)
	}
}

func TestRecordRejectsDuplicateStage(t *testing.T) {
	repo := newFakeRepo()
	tracker := NewPriceTracker(repo, nil)
	attempt := testAttempt()
	ctx := context.Background()

	if _, err := tracker.Record(ctx, attempt, models.PriceStageBlock, 5000, 5200, "INR"); err != nil {
		t.Fatalf("first Record failed: %v", err)
	}
	if _, err := tracker.Record(ctx, attempt, models.PriceStageBlock, 5200, 5300, "INR"); !errors.Is(err, ErrDuplicateStageEntry) {
		t.Fatalf("err = %v, want ErrDuplicateStageEntry", err)
	}
}

func TestRecordPublishesDriftEvent(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	pubsub := rdb.Subscribe(ctx, PriceDriftChannel)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		t.Fatalf("failed to subscribe: %v", err)
	}

	tracker := NewPriceTracker(newFakeRepo(), rdb)
	if _, err := tracker.Record(ctx, testAttempt(), models.PriceStageBlock, 5000, 5200, "INR"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	select {
	case msg := <-pubsub.Channel():
		var event PriceDrift
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			t.Fatalf("bad drift payload: %v", err)
		}
		if event.HotelCode != "H100" || event.PriceIncrease != 200 || event.ChangePct != 4 {
			t.Errorf("unexpected drift event: %+v", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for drift event")
	}
}
