package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/faredown/hotels-backend/internal/config"
	"github.com/faredown/hotels-backend/internal/db"
	"github.com/faredown/hotels-backend/internal/tbo"
)

// Walks the live supplier flow end to end: Authenticate -> ResolveDestination
// -> SearchHotels -> RoomDetails -> BlockRoom, stopping before Book so no real
// reservation is created unless -book is passed.
func main() {
	destination := flag.String("destination", "Dubai", "destination city name")
	countryCode := flag.String("country", "AE", "ISO country code")
	nationality := flag.String("nationality", "IN", "guest nationality code")
	currency := flag.String("currency", "INR", "price currency")
	daysAhead := flag.Int("days-ahead", 30, "check-in offset from today")
	nights := flag.Int("nights", 1, "number of nights")
	doBook := flag.Bool("book", false, "finalize a real booking (spends money)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	fmt.Println("=== TBO Flow Check ===")
	fmt.Printf("Search URL: %s\n", cfg.TBO.SearchURL)
	fmt.Printf("Client ID set: %v\n", cfg.TBO.ClientID != "")
	fmt.Printf("Username set: %v\n", cfg.TBO.UserName != "")
	fmt.Printf("Proxy configured: %v\n", cfg.TBO.ProxyURL != "")
	fmt.Println()

	rdb, err := db.ConnectRedis(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	client, err := tbo.NewClient(cfg, rdb)
	if err != nil {
		log.Fatalf("Failed to build supplier client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	fmt.Println("Step 1: Authenticate...")
	token, err := client.Authenticate(ctx)
	if err != nil {
		log.Fatalf("Authentication failed: %v", err)
	}
	fmt.Println("  OK, token issued")

	fmt.Printf("Step 2: Resolve destination %q (%s)...\n", *destination, *countryCode)
	dest, err := client.ResolveDestination(ctx, *destination, *countryCode)
	if err != nil {
		log.Fatalf("Destination resolution failed: %v", err)
	}
	fmt.Printf("  OK, city id %d (%s)\n", dest.ID, dest.Name)

	checkIn := time.Now().AddDate(0, 0, *daysAhead)
	checkOut := checkIn.AddDate(0, 0, *nights)
	fmt.Printf("Step 3: Search hotels %s -> %s...\n",
		checkIn.Format("2006-01-02"), checkOut.Format("2006-01-02"))
	search, err := client.SearchHotels(ctx, token, tbo.SearchRequest{
		CityID:           dest.ID,
		CountryCode:      *countryCode,
		CheckIn:          checkIn,
		CheckOut:         checkOut,
		Rooms:            []tbo.RoomOccupancy{{Adults: 2}},
		Currency:         *currency,
		GuestNationality: *nationality,
	})
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}
	fmt.Printf("  OK, trace %s, %d hotels\n", search.TraceID, len(search.Hotels))

	offer := search.Hotels[0]
	for _, h := range search.Hotels {
		if h.OfferedPrice > 0 && h.OfferedPrice < offer.OfferedPrice {
			offer = h
		}
	}
	ref := tbo.StageRef{
		TraceID:     search.TraceID,
		ResultIndex: offer.ResultIndex,
		HotelCode:   offer.HotelCode,
	}
	fmt.Printf("  Cheapest: %s (%s) at %.2f %s\n",
		offer.HotelName, offer.HotelCode, offer.OfferedPrice, offer.Currency)

	fmt.Println("Step 4: Fetch rooms...")
	rooms, err := client.RoomDetails(ctx, token, ref)
	if err != nil {
		log.Fatalf("Room fetch failed: %v", err)
	}
	fmt.Printf("  OK, %d room options\n", len(rooms))

	fmt.Println("Step 5: Block cheapest room...")
	block, err := client.BlockRoom(ctx, token, tbo.BlockRequest{
		Ref:              ref,
		HotelName:        offer.HotelName,
		GuestNationality: *nationality,
		NoOfRooms:        1,
		Rooms:            rooms[:1],
		IsVoucherBooking: true,
	})
	if err != nil {
		log.Fatalf("Block failed: %v", err)
	}
	fmt.Printf("  OK, category %s, total %.2f %s, price changed: %v\n",
		block.CategoryID, block.TotalPrice, block.Currency, block.IsPriceChanged)

	if !*doBook {
		fmt.Println("\nStopping before Book (pass -book to finalize). Flow check passed.")
		return
	}

	fmt.Println("Step 6: Book...")
	book, err := client.Book(ctx, token, tbo.BookRequest{
		Ref:              ref,
		Rooms:            block.Rooms,
		HotelName:        offer.HotelName,
		GuestNationality: *nationality,
		NoOfRooms:        1,
		IsVoucherBooking: true,
		Passengers: []tbo.Passenger{{
			Title:       "Mr",
			FirstName:   "Flow",
			LastName:    "Check",
			PaxType:     tbo.PaxAdult,
			Email:       "flowcheck@example.com",
			Phone:       "9999999999",
			Nationality: *nationality,
			CountryCode: *nationality,
		}},
	})
	if err != nil {
		if tbo.IsPendingFunds(err) && book != nil {
			fmt.Printf("  Booking accepted pending funds: ref %s\n", book.BookingRefNo)
			return
		}
		log.Fatalf("Book failed: %v", err)
	}
	fmt.Printf("  OK, booking id %d, confirmation %s\n", book.BookingID, book.ConfirmationNo)

	fmt.Println("Step 7: Generate voucher...")
	voucher, err := client.GenerateVoucher(ctx, token, book.BookingID, book.BookingRefNo)
	if err != nil {
		fmt.Printf("  Voucher generation failed (booking stands): %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("  OK, voucher %s\n", voucher.VoucherID)
}
