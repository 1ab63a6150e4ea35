package listings

import (
	"context"
	"time"

	"stayhub/internal/app/dto"
	"stayhub/internal/app/handlers/support"
	"stayhub/internal/app/queries"
	"stayhub/internal/app/uow"
	domainlistings "stayhub/internal/domain/listings"
	domainrange "stayhub/internal/domain/shared/daterange"
)

const (
	availableListingsKey  = "listings.available"
	availabilityBatchSize = 100
)

// AvailableListingsQuery finds listings a guest could actually book for
// the requested stay: the range must fit the availability window, the
// party must fit the capacity, and no active booking may overlap.
type AvailableListingsQuery struct {
	CheckIn  time.Time
	CheckOut time.Time
	Guests   int
	Params   domainlistings.SearchParams
}

func (q AvailableListingsQuery) Key() string { return availableListingsKey }

type AvailableListingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *AvailableListingsHandler) Handle(ctx context.Context, q AvailableListingsQuery) (dto.ListingCollection, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ListingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	dr, err := domainrange.New(q.CheckIn, q.CheckOut)
	if err != nil {
		return dto.ListingCollection{}, err
	}

	page := q.Params.Normalized()

	// The overlap probe can reject candidates anywhere in the catalog, so
	// walk it in batches and apply the caller's paging to the filtered set.
	batch := q.Params
	if q.Guests > batch.MinGuests {
		batch.MinGuests = q.Guests
	}
	batch.Limit = availabilityBatchSize
	batch.Offset = 0

	var free []*domainlistings.Listing
	for {
		result, err := unit.Listings().Search(ctx, batch)
		if err != nil {
			return dto.ListingCollection{}, err
		}
		for _, listing := range result.Items {
			if !dr.Within(listing.AvailableFrom, listing.AvailableTo) {
				continue
			}
			taken, err := unit.Bookings().HasAnyActiveOverlap(ctx, listing.ID, dr)
			if err != nil {
				return dto.ListingCollection{}, err
			}
			if taken {
				continue
			}
			free = append(free, listing)
		}
		batch.Offset += len(result.Items)
		if len(result.Items) < batch.Limit || batch.Offset >= result.Total {
			break
		}
	}

	total := len(free)
	start := page.Offset
	if start > total {
		start = total
	}
	end := start + page.Limit
	if end > total {
		end = total
	}

	return dto.MapListingCollection(domainlistings.SearchResult{
		Items: free[start:end],
		Total: total,
	}), nil
}

var _ queries.Handler[AvailableListingsQuery, dto.ListingCollection] = (*AvailableListingsHandler)(nil)
