package reviews_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookingapp "stayhub/internal/app/handlers/booking"
	reviewsapp "stayhub/internal/app/handlers/reviews"
	domainlistings "stayhub/internal/domain/listings"
	domainreviews "stayhub/internal/domain/reviews"
	"stayhub/internal/domain/shared/money"
	infraoutbox "stayhub/internal/infra/outbox"
	"stayhub/internal/infra/storage/memory"
)

type fixture struct {
	factory  memory.Factory
	listings *memory.ListingRepository
	outbox   *memory.Outbox
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	listings := memory.NewListingRepository()
	f := &fixture{
		factory: memory.Factory{
			ListingsRepo: listings,
			BookingRepo:  memory.NewBookingRepository(),
			ReviewsRepo:  memory.NewReviewRepository(),
		},
		listings: listings,
		outbox:   memory.NewOutbox(infraoutbox.NewStore()),
	}

	listing, err := domainlistings.New(domainlistings.CreateParams{
		ID:            "lst-1",
		Host:          "host-1",
		Title:         "Beach house",
		NightlyRate:   money.Must(10000, "USD"),
		MaxGuests:     4,
		AvailableFrom: day(2024, 7, 1),
		AvailableTo:   day(2024, 7, 31),
	})
	require.NoError(t, err)
	listing.ClearEvents()
	require.NoError(t, listings.Save(context.Background(), listing))
	return f
}

// completeStay books lst-1 for the guest and walks it to completed.
func (f *fixture) completeStay(t *testing.T, bookingID, guestID string) {
	t.Helper()
	ctx := context.Background()
	request := &bookingapp.RequestBookingHandler{UoWFactory: f.factory, Outbox: f.outbox}
	_, err := request.Handle(ctx, bookingapp.RequestBookingCommand{
		CommandID: bookingID,
		ListingID: "lst-1",
		GuestID:   guestID,
		CheckIn:   day(2024, 7, 10),
		CheckOut:  day(2024, 7, 13),
		Guests:    2,
	})
	require.NoError(t, err)

	change := &bookingapp.ChangeStatusHandler{UoWFactory: f.factory, Outbox: f.outbox}
	for _, target := range []string{"confirmed", "completed"} {
		_, err := change.Handle(ctx, bookingapp.ChangeStatusCommand{
			BookingID: bookingID, ActorID: guestID, Target: target,
		})
		require.NoError(t, err)
	}
}

func (f *fixture) submitHandler() *reviewsapp.SubmitReviewHandler {
	return &reviewsapp.SubmitReviewHandler{UoWFactory: f.factory}
}

func TestSubmitReviewWithoutBookingLink(t *testing.T) {
	f := newFixture(t)

	review, err := f.submitHandler().Handle(context.Background(), reviewsapp.SubmitReviewCommand{
		ListingID: "lst-1", AuthorID: "guest-1", Rating: 4, Comment: "nice spot",
	})
	require.NoError(t, err)
	assert.Equal(t, 4, review.Rating)
	assert.Empty(t, review.BookingID)
}

func TestSubmitReviewUpdatesListingAggregate(t *testing.T) {
	f := newFixture(t)
	h := f.submitHandler()
	ctx := context.Background()

	_, err := h.Handle(ctx, reviewsapp.SubmitReviewCommand{ListingID: "lst-1", AuthorID: "guest-1", Rating: 5})
	require.NoError(t, err)
	_, err = h.Handle(ctx, reviewsapp.SubmitReviewCommand{ListingID: "lst-1", AuthorID: "guest-2", Rating: 3})
	require.NoError(t, err)

	listing, err := f.listings.ByID(ctx, "lst-1")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, listing.AverageRating, 1e-9)
	assert.Equal(t, 2, listing.ReviewCount)
}

func TestSubmitReviewDuplicateAuthorRejected(t *testing.T) {
	f := newFixture(t)
	h := f.submitHandler()
	ctx := context.Background()

	_, err := h.Handle(ctx, reviewsapp.SubmitReviewCommand{ListingID: "lst-1", AuthorID: "guest-1", Rating: 5})
	require.NoError(t, err)

	_, err = h.Handle(ctx, reviewsapp.SubmitReviewCommand{ListingID: "lst-1", AuthorID: "guest-1", Rating: 2})
	assert.ErrorIs(t, err, domainreviews.ErrDuplicateReview)
}

func TestSubmitReviewLinkedBookingMustQualify(t *testing.T) {
	t.Run("completed stay qualifies", func(t *testing.T) {
		f := newFixture(t)
		f.completeStay(t, "bkg-1", "guest-1")

		review, err := f.submitHandler().Handle(context.Background(), reviewsapp.SubmitReviewCommand{
			ListingID: "lst-1", AuthorID: "guest-1", BookingID: "bkg-1", Rating: 5,
		})
		require.NoError(t, err)
		assert.Equal(t, "bkg-1", review.BookingID)
	})

	t.Run("pending stay does not qualify", func(t *testing.T) {
		f := newFixture(t)
		request := &bookingapp.RequestBookingHandler{UoWFactory: f.factory, Outbox: f.outbox}
		_, err := request.Handle(context.Background(), bookingapp.RequestBookingCommand{
			CommandID: "bkg-1", ListingID: "lst-1", GuestID: "guest-1",
			CheckIn: day(2024, 7, 10), CheckOut: day(2024, 7, 13), Guests: 2,
		})
		require.NoError(t, err)

		_, err = f.submitHandler().Handle(context.Background(), reviewsapp.SubmitReviewCommand{
			ListingID: "lst-1", AuthorID: "guest-1", BookingID: "bkg-1", Rating: 5,
		})
		assert.ErrorIs(t, err, domainreviews.ErrBookingNotEligible)
	})

	t.Run("another guest's stay does not qualify", func(t *testing.T) {
		f := newFixture(t)
		f.completeStay(t, "bkg-1", "guest-1")

		_, err := f.submitHandler().Handle(context.Background(), reviewsapp.SubmitReviewCommand{
			ListingID: "lst-1", AuthorID: "guest-2", BookingID: "bkg-1", Rating: 5,
		})
		assert.ErrorIs(t, err, domainreviews.ErrBookingNotEligible)
	})

	t.Run("unknown booking id does not qualify", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.submitHandler().Handle(context.Background(), reviewsapp.SubmitReviewCommand{
			ListingID: "lst-1", AuthorID: "guest-1", BookingID: "bkg-missing", Rating: 5,
		})
		assert.ErrorIs(t, err, domainreviews.ErrBookingNotEligible)
	})
}

func TestSubmitReviewInvalidRating(t *testing.T) {
	f := newFixture(t)

	for _, rating := range []int{0, 6} {
		_, err := f.submitHandler().Handle(context.Background(), reviewsapp.SubmitReviewCommand{
			ListingID: "lst-1", AuthorID: "guest-1", Rating: rating,
		})
		assert.ErrorIs(t, err, domainreviews.ErrInvalidRating, "rating %d", rating)
	}
}

func TestSubmitReviewUnknownListing(t *testing.T) {
	f := newFixture(t)

	_, err := f.submitHandler().Handle(context.Background(), reviewsapp.SubmitReviewCommand{
		ListingID: "lst-missing", AuthorID: "guest-1", Rating: 5,
	})
	assert.ErrorIs(t, err, domainlistings.ErrNotFound)
}

func TestUpdateReviewEditsAndRecalculates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	submitted, err := f.submitHandler().Handle(ctx, reviewsapp.SubmitReviewCommand{
		ListingID: "lst-1", AuthorID: "guest-1", Rating: 2, Comment: "meh",
	})
	require.NoError(t, err)

	update := &reviewsapp.UpdateReviewHandler{UoWFactory: f.factory}
	updated, err := update.Handle(ctx, reviewsapp.UpdateReviewCommand{
		ReviewID: submitted.ID, AuthorID: "guest-1", Rating: 5, Comment: "grew on me",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)

	listing, err := f.listings.ByID(ctx, "lst-1")
	require.NoError(t, err)
	assert.InDelta(t, 5.0, listing.AverageRating, 1e-9)

	_, err = update.Handle(ctx, reviewsapp.UpdateReviewCommand{
		ReviewID: submitted.ID, AuthorID: "guest-2", Rating: 1,
	})
	assert.ErrorIs(t, err, domainreviews.ErrNotAuthor)
}

func TestListReviewsReturnsCollectionWithAverage(t *testing.T) {
	f := newFixture(t)
	h := f.submitHandler()
	ctx := context.Background()

	_, err := h.Handle(ctx, reviewsapp.SubmitReviewCommand{ListingID: "lst-1", AuthorID: "guest-1", Rating: 5})
	require.NoError(t, err)
	_, err = h.Handle(ctx, reviewsapp.SubmitReviewCommand{ListingID: "lst-1", AuthorID: "guest-2", Rating: 4})
	require.NoError(t, err)

	list := &reviewsapp.ListReviewsHandler{UoWFactory: f.factory}
	result, err := list.Handle(ctx, reviewsapp.ListReviewsQuery{ListingID: "lst-1"})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.InDelta(t, 4.5, result.AverageRating, 1e-9)
}
