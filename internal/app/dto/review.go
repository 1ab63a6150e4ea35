package dto

import (
	"time"

	domainreviews "stayhub/internal/domain/reviews"
)

type Review struct {
	ID        string    `json:"id"`
	ListingID string    `json:"listing_id"`
	AuthorID  string    `json:"author_id"`
	BookingID string    `json:"booking_id,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ReviewCollection struct {
	Items         []Review `json:"items"`
	AverageRating float64  `json:"average_rating"`
	Total         int      `json:"total"`
}

func MapReview(r *domainreviews.Review) Review {
	return Review{
		ID:        string(r.ID),
		ListingID: string(r.ListingID),
		AuthorID:  r.AuthorID,
		BookingID: string(r.BookingID),
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func MapReviewCollection(all []*domainreviews.Review) ReviewCollection {
	items := make([]Review, 0, len(all))
	for _, r := range all {
		items = append(items, MapReview(r))
	}
	average, _ := domainreviews.Aggregate(all)
	return ReviewCollection{Items: items, AverageRating: average, Total: len(all)}
}
