package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	domainbooking "stayhub/internal/domain/booking"
	domainlistings "stayhub/internal/domain/listings"
	domainreviews "stayhub/internal/domain/reviews"
	domainrange "stayhub/internal/domain/shared/daterange"
	"stayhub/internal/domain/shared/events"
)

// ListingRepository is an in-memory listing store.
type ListingRepository struct {
	mu    sync.RWMutex
	items map[domainlistings.ListingID]*domainlistings.Listing
}

func NewListingRepository() *ListingRepository {
	return &ListingRepository{
		items: make(map[domainlistings.ListingID]*domainlistings.Listing),
	}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	listing, ok := r.items[id]
	if !ok {
		return nil, domainlistings.ErrNotFound
	}
	return listing, nil
}

func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	listing.Version++
	r.items[listing.ID] = listing
	return nil
}

func (r *ListingRepository) Delete(ctx context.Context, id domainlistings.ListingID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return domainlistings.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

// Search filters, sorts and pages the catalog.
func (r *ListingRepository) Search(ctx context.Context, params domainlistings.SearchParams) (domainlistings.SearchResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	opts := params.Normalized()
	matches := make([]*domainlistings.Listing, 0, len(r.items))
	for _, listing := range r.items {
		select {
		case <-ctx.Done():
			return domainlistings.SearchResult{}, ctx.Err()
		default:
		}
		if opts.Matches(listing) {
			matches = append(matches, listing)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		switch opts.Sort {
		case domainlistings.SortByPriceAsc:
			if matches[i].NightlyRate.Cents == matches[j].NightlyRate.Cents {
				return matches[i].AverageRating > matches[j].AverageRating
			}
			return matches[i].NightlyRate.Cents < matches[j].NightlyRate.Cents
		case domainlistings.SortByPriceDesc:
			if matches[i].NightlyRate.Cents == matches[j].NightlyRate.Cents {
				return matches[i].AverageRating > matches[j].AverageRating
			}
			return matches[i].NightlyRate.Cents > matches[j].NightlyRate.Cents
		case domainlistings.SortByRating:
			if matches[i].AverageRating == matches[j].AverageRating {
				return matches[i].NightlyRate.Cents < matches[j].NightlyRate.Cents
			}
			return matches[i].AverageRating > matches[j].AverageRating
		default:
			if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
				return matches[i].ID < matches[j].ID
			}
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
	})

	total := len(matches)
	start := opts.Offset
	if start > total {
		start = total
	}
	end := start + opts.Limit
	if end > total {
		end = total
	}

	return domainlistings.SearchResult{
		Items: matches[start:end],
		Total: total,
	}, nil
}

// BookingRepository stores bookings in memory. The store mutex also
// serializes Reserve, making the conflict check and insert atomic.
type BookingRepository struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]*domainbooking.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{items: make(map[domainbooking.BookingID]*domainbooking.Booking)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stay, ok := r.items[id]
	if !ok {
		return nil, domainbooking.ErrNotFound
	}
	return cloneBooking(stay), nil
}

func (r *BookingRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id := strings.TrimSpace(guestID)
	matches := make([]*domainbooking.Booking, 0)
	for _, stay := range r.items {
		if stay.GuestID == id {
			matches = append(matches, cloneBooking(stay))
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches, nil
}

func (r *BookingRepository) ListActiveOverlapping(ctx context.Context, listingID domainlistings.ListingID, dr domainrange.DateRange) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stays := r.activeOverlapping(listingID, dr)
	out := make([]*domainbooking.Booking, 0, len(stays))
	for _, stay := range stays {
		out = append(out, cloneBooking(stay))
	}
	return out, nil
}

func (r *BookingRepository) HasAnyActiveOverlap(ctx context.Context, listingID domainlistings.ListingID, dr domainrange.DateRange) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.activeOverlapping(listingID, dr)) > 0, nil
}

// Reserve re-checks overlap and inserts under one lock acquisition, so two
// racing requests for the same range cannot both win.
func (r *BookingRepository) Reserve(ctx context.Context, stay *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.activeOverlapping(stay.ListingID, stay.Range)) > 0 {
		return domainbooking.ErrDateConflict
	}
	stay.Version++
	r.items[stay.ID] = cloneBooking(stay)
	return nil
}

func (r *BookingRepository) Save(ctx context.Context, stay *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, ok := r.items[stay.ID]; ok && stored.Version != stay.Version {
		return domainbooking.ErrConcurrentUpdate
	}
	stay.Version++
	r.items[stay.ID] = cloneBooking(stay)
	return nil
}

func (r *BookingRepository) DeleteByListing(ctx context.Context, listingID domainlistings.ListingID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, stay := range r.items {
		if stay.ListingID == listingID {
			delete(r.items, id)
		}
	}
	return nil
}

// cloneBooking detaches an aggregate from the stored one, so callers can
// mutate and fail the version guard instead of racing on shared state.
// Pending events stay with the mutation that recorded them.
func cloneBooking(stay *domainbooking.Booking) *domainbooking.Booking {
	dup := *stay
	dup.EventRecorder = events.EventRecorder{}
	return &dup
}

func (r *BookingRepository) activeOverlapping(listingID domainlistings.ListingID, dr domainrange.DateRange) []*domainbooking.Booking {
	matches := make([]*domainbooking.Booking, 0)
	for _, stay := range r.items {
		if stay.ListingID != listingID {
			continue
		}
		if !stay.Status.Active() {
			continue
		}
		if stay.Range.Overlaps(dr) {
			matches = append(matches, stay)
		}
	}
	return matches
}

// ReviewRepository keys reviews by id and guards the one-per-author rule
// with a (listing, author) index.
type ReviewRepository struct {
	mu      sync.RWMutex
	items   map[domainreviews.ReviewID]*domainreviews.Review
	byOwner map[string]domainreviews.ReviewID
}

func NewReviewRepository() *ReviewRepository {
	return &ReviewRepository{
		items:   make(map[domainreviews.ReviewID]*domainreviews.Review),
		byOwner: make(map[string]domainreviews.ReviewID),
	}
}

func (r *ReviewRepository) ByID(ctx context.Context, id domainreviews.ReviewID) (*domainreviews.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	review, ok := r.items[id]
	if !ok {
		return nil, domainreviews.ErrNotFound
	}
	return review, nil
}

func (r *ReviewRepository) ByListingAndAuthor(ctx context.Context, listingID domainlistings.ListingID, authorID string) (*domainreviews.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byOwner[ownerKey(listingID, authorID)]
	if !ok {
		return nil, domainreviews.ErrNotFound
	}
	return r.items[id], nil
}

func (r *ReviewRepository) ListByListing(ctx context.Context, listingID domainlistings.ListingID) ([]*domainreviews.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*domainreviews.Review, 0)
	for _, review := range r.items {
		if review.ListingID == listingID {
			matches = append(matches, review)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches, nil
}

func (r *ReviewRepository) Save(ctx context.Context, review *domainreviews.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := ownerKey(review.ListingID, review.AuthorID)
	if existing, ok := r.byOwner[key]; ok && existing != review.ID {
		return domainreviews.ErrDuplicateReview
	}
	review.Version++
	r.items[review.ID] = review
	r.byOwner[key] = review.ID
	return nil
}

func (r *ReviewRepository) DeleteByListing(ctx context.Context, listingID domainlistings.ListingID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, review := range r.items {
		if review.ListingID == listingID {
			delete(r.byOwner, ownerKey(review.ListingID, review.AuthorID))
			delete(r.items, id)
		}
	}
	return nil
}

func ownerKey(listingID domainlistings.ListingID, authorID string) string {
	return string(listingID) + ":" + authorID
}
