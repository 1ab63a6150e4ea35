package reviews

import (
	"context"
	"time"

	"stayhub/internal/app/uow"
	domainlistings "stayhub/internal/domain/listings"
	domainreviews "stayhub/internal/domain/reviews"
)

// recalculateListingRating refreshes the denormalized aggregate on the
// listing after a review changes.
func recalculateListingRating(ctx context.Context, unit uow.UnitOfWork, listingID domainlistings.ListingID, now time.Time) error {
	all, err := unit.Reviews().ListByListing(ctx, listingID)
	if err != nil {
		return err
	}
	listing, err := unit.Listings().ByID(ctx, listingID)
	if err != nil {
		return err
	}
	average, count := domainreviews.Aggregate(all)
	listing.ApplyRating(average, count, now)
	return unit.Listings().Save(ctx, listing)
}
