package dto

import (
	"time"

	domainlistings "stayhub/internal/domain/listings"
	"stayhub/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{
		Amount:   value.Cents,
		Currency: value.Currency,
	}
}

type Listing struct {
	ID            string    `json:"id"`
	HostID        string    `json:"host_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	Location      string    `json:"location"`
	NightlyRate   MoneyDTO  `json:"nightly_rate"`
	MaxGuests     int       `json:"max_guests"`
	AvailableFrom time.Time `json:"available_from"`
	AvailableTo   time.Time `json:"available_to"`
	AverageRating float64   `json:"average_rating"`
	ReviewCount   int       `json:"review_count"`
	Photos        []string  `json:"photos"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type ListingCollection struct {
	Items []Listing `json:"items"`
	Total int       `json:"total"`
}

func MapListing(l *domainlistings.Listing) Listing {
	photos := l.Photos
	if photos == nil {
		photos = []string{}
	}
	return Listing{
		ID:            string(l.ID),
		HostID:        string(l.Host),
		Title:         l.Title,
		Description:   l.Description,
		Category:      l.Category,
		Location:      l.Location,
		NightlyRate:   MapMoney(l.NightlyRate),
		MaxGuests:     l.MaxGuests,
		AvailableFrom: l.AvailableFrom,
		AvailableTo:   l.AvailableTo,
		AverageRating: l.AverageRating,
		ReviewCount:   l.ReviewCount,
		Photos:        photos,
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
	}
}

func MapListingCollection(result domainlistings.SearchResult) ListingCollection {
	items := make([]Listing, 0, len(result.Items))
	for _, l := range result.Items {
		items = append(items, MapListing(l))
	}
	return ListingCollection{Items: items, Total: result.Total}
}
