package reviews

import (
	"context"
	"errors"
	"strings"
	"time"

	"stayhub/internal/domain/booking"
	"stayhub/internal/domain/listings"
	"stayhub/internal/domain/shared/events"
)

var (
	ErrInvalidRating      = errors.New("reviews: rating must be between 1 and 5")
	ErrDuplicateReview    = errors.New("reviews: author already reviewed this listing")
	ErrBookingNotEligible = errors.New("reviews: booking does not entitle the author to review this listing")
	ErrNotFound           = errors.New("reviews: not found")
	ErrNotAuthor          = errors.New("reviews: only the author may edit a review")
)

type ReviewID string

type Review struct {
	ID        ReviewID
	ListingID listings.ListingID
	AuthorID  string
	BookingID booking.BookingID // empty when the review is not tied to a stay
	Rating    int
	Comment   string
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ReviewID) (*Review, error)
	ByListingAndAuthor(ctx context.Context, listingID listings.ListingID, authorID string) (*Review, error)
	ListByListing(ctx context.Context, listingID listings.ListingID) ([]*Review, error)
	// Save inserts or updates. Inserting a second review for the same
	// (listing, author) pair fails with ErrDuplicateReview.
	Save(ctx context.Context, r *Review) error
	DeleteByListing(ctx context.Context, listingID listings.ListingID) error
}

type SubmitParams struct {
	ID        ReviewID
	ListingID listings.ListingID
	AuthorID  string
	Rating    int
	Comment   string
	CreatedAt time.Time
	// Stay, when set, links the review to a booking. The booking must be
	// completed, made by the author, and made on the reviewed listing.
	Stay *booking.Booking
}

// Submit builds a new review. The one-review-per-author rule lives in the
// repository, where it can be enforced atomically.
func Submit(params SubmitParams) (*Review, error) {
	if params.Rating < 1 || params.Rating > 5 {
		return nil, ErrInvalidRating
	}
	var bookingID booking.BookingID
	if params.Stay != nil {
		if err := checkStayEligibility(params.Stay, params.ListingID, params.AuthorID); err != nil {
			return nil, err
		}
		bookingID = params.Stay.ID
	}
	now := params.CreatedAt.UTC()
	r := &Review{
		ID:        params.ID,
		ListingID: params.ListingID,
		AuthorID:  params.AuthorID,
		BookingID: bookingID,
		Rating:    params.Rating,
		Comment:   strings.TrimSpace(params.Comment),
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.Record(ReviewSubmitted{
		ReviewID:  r.ID,
		ListingID: r.ListingID,
		AuthorID:  r.AuthorID,
		Rating:    r.Rating,
		At:        now,
	})
	return r, nil
}

func checkStayEligibility(stay *booking.Booking, listingID listings.ListingID, authorID string) error {
	if stay.Status != booking.StatusCompleted {
		return ErrBookingNotEligible
	}
	if stay.GuestID != authorID {
		return ErrBookingNotEligible
	}
	if stay.ListingID != listingID {
		return ErrBookingNotEligible
	}
	return nil
}

// Edit updates the rating and comment in place. Only the original author
// may edit; the (listing, author) link never changes.
func (r *Review) Edit(authorID string, rating int, comment string, now time.Time) error {
	if r.AuthorID != authorID {
		return ErrNotAuthor
	}
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}
	r.Rating = rating
	r.Comment = strings.TrimSpace(comment)
	r.UpdatedAt = now.UTC()
	r.Record(ReviewUpdated{
		ReviewID:  r.ID,
		ListingID: r.ListingID,
		Rating:    r.Rating,
		At:        r.UpdatedAt,
	})
	return nil
}

// Aggregate folds a listing's reviews into the denormalized rating stats
// stored on the listing itself.
func Aggregate(all []*Review) (average float64, count int) {
	if len(all) == 0 {
		return 0, 0
	}
	sum := 0
	for _, r := range all {
		sum += r.Rating
	}
	return float64(sum) / float64(len(all)), len(all)
}
