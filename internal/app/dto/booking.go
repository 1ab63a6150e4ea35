package dto

import (
	"time"

	domainbooking "stayhub/internal/domain/booking"
	domainlistings "stayhub/internal/domain/listings"
)

type ListingSnapshot struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Location string `json:"location"`
}

type Booking struct {
	ID        string          `json:"id"`
	Listing   ListingSnapshot `json:"listing"`
	GuestID   string          `json:"guest_id"`
	CheckIn   time.Time       `json:"check_in"`
	CheckOut  time.Time       `json:"check_out"`
	Guests    int             `json:"guests"`
	Nights    int             `json:"nights"`
	Status    string          `json:"status"`
	Total     MoneyDTO        `json:"total_price"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type BookingCollection struct {
	Items []Booking `json:"items"`
}

func MapBooking(b *domainbooking.Booking, listing *domainlistings.Listing) Booking {
	snapshot := ListingSnapshot{ID: string(b.ListingID)}
	if listing != nil {
		snapshot.Title = listing.Title
		snapshot.Location = listing.Location
	}
	return Booking{
		ID:        string(b.ID),
		Listing:   snapshot,
		GuestID:   b.GuestID,
		CheckIn:   b.Range.CheckIn,
		CheckOut:  b.Range.CheckOut,
		Guests:    b.Guests,
		Nights:    b.Nights,
		Status:    string(b.Status),
		Total:     MapMoney(b.TotalPrice),
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}
