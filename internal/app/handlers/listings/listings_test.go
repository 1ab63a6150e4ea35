package listings_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookingapp "stayhub/internal/app/handlers/booking"
	listingsapp "stayhub/internal/app/handlers/listings"
	"stayhub/internal/app/uow"
	domainbooking "stayhub/internal/domain/booking"
	domainlistings "stayhub/internal/domain/listings"
	domainuser "stayhub/internal/domain/user"
	infraoutbox "stayhub/internal/infra/outbox"
	"stayhub/internal/infra/storage/memory"
)

type fixture struct {
	factory  memory.Factory
	listings *memory.ListingRepository
	bookings *memory.BookingRepository
	reviews  *memory.ReviewRepository
	users    *memory.UserRepository
	outbox   *memory.Outbox
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	listings := memory.NewListingRepository()
	bookings := memory.NewBookingRepository()
	reviews := memory.NewReviewRepository()
	return &fixture{
		factory: memory.Factory{
			ListingsRepo: listings,
			BookingRepo:  bookings,
			ReviewsRepo:  reviews,
		},
		listings: listings,
		bookings: bookings,
		reviews:  reviews,
		users:    memory.NewUserRepository(),
		outbox:   memory.NewOutbox(infraoutbox.NewStore()),
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// withUnit runs fn inside a unit-of-work context the way the transaction
// middleware would.
func (f *fixture) withUnit(t *testing.T, fn func(ctx context.Context)) {
	t.Helper()
	unit, err := f.factory.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)
	fn(uow.ContextWithUnitOfWork(context.Background(), unit))
}

func payload() listingsapp.ListingPayload {
	return listingsapp.ListingPayload{
		Title:            "Beach house",
		Description:      "Steps from the water",
		Category:         "house",
		Location:         "Lisbon",
		NightlyRateCents: 10000,
		Currency:         "USD",
		MaxGuests:        4,
		AvailableFrom:    day(2024, 7, 1),
		AvailableTo:      day(2024, 7, 31),
	}
}

func (f *fixture) createListing(t *testing.T, hostID string) string {
	t.Helper()
	var id string
	f.withUnit(t, func(ctx context.Context) {
		h := &listingsapp.CreateListingHandler{Users: f.users}
		created, err := h.Handle(ctx, listingsapp.CreateListingCommand{HostID: hostID, Payload: payload()})
		require.NoError(t, err)
		id = created.ID
	})
	return id
}

func TestCreateListingPromotesAuthorToHost(t *testing.T) {
	f := newFixture(t)
	guest, err := domainuser.New(domainuser.CreateParams{
		ID: "usr-1", Email: "marta@example.com", Name: "Marta", PasswordHash: "$2a$10$hash",
	})
	require.NoError(t, err)
	require.NoError(t, f.users.Save(context.Background(), guest))
	require.False(t, guest.HasRole(domainuser.RoleHost))

	id := f.createListing(t, "usr-1")
	assert.NotEmpty(t, id)

	promoted, err := f.users.ByID(context.Background(), "usr-1")
	require.NoError(t, err)
	assert.True(t, promoted.HasRole(domainuser.RoleHost))
}

func TestUpdateListingOnlyByOwner(t *testing.T) {
	f := newFixture(t)
	id := f.createListing(t, "host-1")

	f.withUnit(t, func(ctx context.Context) {
		h := &listingsapp.UpdateListingHandler{}
		changed := payload()
		changed.Title = "Renovated beach house"
		changed.NightlyRateCents = 12000

		updated, err := h.Handle(ctx, listingsapp.UpdateListingCommand{
			HostID: "host-1", ListingID: id, Payload: changed,
		})
		require.NoError(t, err)
		assert.Equal(t, "Renovated beach house", updated.Title)

		_, err = h.Handle(ctx, listingsapp.UpdateListingCommand{
			HostID: "host-2", ListingID: id, Payload: changed,
		})
		assert.ErrorIs(t, err, domainlistings.ErrNotOwned)
	})
}

func TestDeleteListingCascades(t *testing.T) {
	f := newFixture(t)
	id := f.createListing(t, "host-1")

	request := &bookingapp.RequestBookingHandler{UoWFactory: f.factory, Outbox: f.outbox}
	_, err := request.Handle(context.Background(), bookingapp.RequestBookingCommand{
		CommandID: "bkg-1", ListingID: id, GuestID: "guest-1",
		CheckIn: day(2024, 7, 10), CheckOut: day(2024, 7, 12), Guests: 2,
	})
	require.NoError(t, err)

	f.withUnit(t, func(ctx context.Context) {
		h := &listingsapp.DeleteListingHandler{}
		_, err := h.Handle(ctx, listingsapp.DeleteListingCommand{HostID: "host-1", ListingID: id})
		require.NoError(t, err)
	})

	_, err = f.listings.ByID(context.Background(), domainlistings.ListingID(id))
	assert.ErrorIs(t, err, domainlistings.ErrNotFound)
	_, err = f.bookings.ByID(context.Background(), "bkg-1")
	assert.ErrorIs(t, err, domainbooking.ErrNotFound)
}

func TestDeleteListingOnlyByOwner(t *testing.T) {
	f := newFixture(t)
	id := f.createListing(t, "host-1")

	f.withUnit(t, func(ctx context.Context) {
		h := &listingsapp.DeleteListingHandler{}
		_, err := h.Handle(ctx, listingsapp.DeleteListingCommand{HostID: "host-2", ListingID: id})
		assert.ErrorIs(t, err, domainlistings.ErrNotOwned)
	})
}

func TestAvailableListingsExcludesBookedAndOutOfWindow(t *testing.T) {
	f := newFixture(t)
	bookedID := f.createListing(t, "host-1")
	freeID := f.createListing(t, "host-1")

	request := &bookingapp.RequestBookingHandler{UoWFactory: f.factory, Outbox: f.outbox}
	_, err := request.Handle(context.Background(), bookingapp.RequestBookingCommand{
		CommandID: "bkg-1", ListingID: bookedID, GuestID: "guest-1",
		CheckIn: day(2024, 7, 10), CheckOut: day(2024, 7, 15), Guests: 2,
	})
	require.NoError(t, err)

	h := &listingsapp.AvailableListingsHandler{UoWFactory: f.factory}

	result, err := h.Handle(context.Background(), listingsapp.AvailableListingsQuery{
		CheckIn: day(2024, 7, 12), CheckOut: day(2024, 7, 14), Guests: 2,
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, freeID, result.Items[0].ID)

	// outside every listing's window
	result, err = h.Handle(context.Background(), listingsapp.AvailableListingsQuery{
		CheckIn: day(2024, 8, 10), CheckOut: day(2024, 8, 12), Guests: 2,
	})
	require.NoError(t, err)
	assert.Empty(t, result.Items)

	// same-day turnover keeps the booked listing available
	result, err = h.Handle(context.Background(), listingsapp.AvailableListingsQuery{
		CheckIn: day(2024, 7, 15), CheckOut: day(2024, 7, 18), Guests: 2,
	})
	require.NoError(t, err)
	assert.Len(t, result.Items, 2)
}

func TestAvailableListingsHonorsCallerPaging(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.createListing(t, "host-1")
	}

	h := &listingsapp.AvailableListingsHandler{UoWFactory: f.factory}
	query := listingsapp.AvailableListingsQuery{
		CheckIn: day(2024, 7, 10), CheckOut: day(2024, 7, 12), Guests: 2,
		Params: domainlistings.SearchParams{Limit: 2},
	}

	firstPage, err := h.Handle(context.Background(), query)
	require.NoError(t, err)
	assert.Len(t, firstPage.Items, 2)
	assert.Equal(t, 3, firstPage.Total)

	query.Params.Offset = 2
	lastPage, err := h.Handle(context.Background(), query)
	require.NoError(t, err)
	assert.Len(t, lastPage.Items, 1)
	assert.Equal(t, 3, lastPage.Total)
}

func TestAvailableListingsFiltersByCapacity(t *testing.T) {
	f := newFixture(t)
	f.createListing(t, "host-1")

	h := &listingsapp.AvailableListingsHandler{UoWFactory: f.factory}
	result, err := h.Handle(context.Background(), listingsapp.AvailableListingsQuery{
		CheckIn: day(2024, 7, 10), CheckOut: day(2024, 7, 12), Guests: 6,
	})
	require.NoError(t, err)
	assert.Empty(t, result.Items)
}

func TestGetListingQuery(t *testing.T) {
	f := newFixture(t)
	id := f.createListing(t, "host-1")

	h := &listingsapp.GetListingHandler{UoWFactory: f.factory}
	result, err := h.Handle(context.Background(), listingsapp.GetListingQuery{ListingID: id})
	require.NoError(t, err)
	assert.Equal(t, "Beach house", result.Title)

	_, err = h.Handle(context.Background(), listingsapp.GetListingQuery{ListingID: "missing"})
	assert.ErrorIs(t, err, domainlistings.ErrNotFound)
}
