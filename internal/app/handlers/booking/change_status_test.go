package booking_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookingapp "stayhub/internal/app/handlers/booking"
	domainbooking "stayhub/internal/domain/booking"
)

func (f *fixture) seedPendingBooking(t *testing.T, id, guestID string) {
	t.Helper()
	_, err := f.requestHandler().Handle(context.Background(), bookingapp.RequestBookingCommand{
		CommandID: id,
		ListingID: "lst-1",
		GuestID:   guestID,
		CheckIn:   day(2024, 7, 10),
		CheckOut:  day(2024, 7, 13),
		Guests:    2,
	})
	require.NoError(t, err)
}

func (f *fixture) changeHandler() *bookingapp.ChangeStatusHandler {
	return &bookingapp.ChangeStatusHandler{UoWFactory: f.factory, Outbox: f.outbox}
}

func TestChangeStatusHostConfirms(t *testing.T) {
	f := newFixture(t)
	f.seedListing(t)
	f.seedPendingBooking(t, "bkg-1", "guest-1")

	result, err := f.changeHandler().Handle(context.Background(), bookingapp.ChangeStatusCommand{
		BookingID: "bkg-1", ActorID: "host-1", Target: "confirmed",
	})
	require.NoError(t, err)
	assert.Equal(t, "confirmed", result.Status)
}

func TestChangeStatusGuestCancels(t *testing.T) {
	f := newFixture(t)
	f.seedListing(t)
	f.seedPendingBooking(t, "bkg-1", "guest-1")

	result, err := f.changeHandler().Handle(context.Background(), bookingapp.ChangeStatusCommand{
		BookingID: "bkg-1", ActorID: "guest-1", Target: "cancelled",
	})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", result.Status)
}

func TestChangeStatusStrangerIsRejected(t *testing.T) {
	f := newFixture(t)
	f.seedListing(t)
	f.seedPendingBooking(t, "bkg-1", "guest-1")

	_, err := f.changeHandler().Handle(context.Background(), bookingapp.ChangeStatusCommand{
		BookingID: "bkg-1", ActorID: "guest-2", Target: "cancelled",
	})
	assert.ErrorIs(t, err, bookingapp.ErrNotParticipant)
}

func TestChangeStatusTerminalBookingRejectsFurtherMoves(t *testing.T) {
	f := newFixture(t)
	f.seedListing(t)
	f.seedPendingBooking(t, "bkg-1", "guest-1")
	h := f.changeHandler()
	ctx := context.Background()

	_, err := h.Handle(ctx, bookingapp.ChangeStatusCommand{BookingID: "bkg-1", ActorID: "guest-1", Target: "cancelled"})
	require.NoError(t, err)

	_, err = h.Handle(ctx, bookingapp.ChangeStatusCommand{BookingID: "bkg-1", ActorID: "guest-1", Target: "confirmed"})
	assert.ErrorIs(t, err, domainbooking.ErrTerminalState)
}

func TestChangeStatusUnknownTarget(t *testing.T) {
	f := newFixture(t)
	f.seedListing(t)
	f.seedPendingBooking(t, "bkg-1", "guest-1")

	_, err := f.changeHandler().Handle(context.Background(), bookingapp.ChangeStatusCommand{
		BookingID: "bkg-1", ActorID: "guest-1", Target: "archived",
	})
	assert.ErrorIs(t, err, domainbooking.ErrInvalidStatus)
}

func TestChangeStatusConcurrentTransitionsAdmitOneWinner(t *testing.T) {
	f := newFixture(t)
	f.seedListing(t)
	f.seedPendingBooking(t, "bkg-1", "guest-1")
	h := f.changeHandler()

	targets := []string{"cancelled", "completed"}
	errs := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target string) {
			defer wg.Done()
			_, errs[i] = h.Handle(context.Background(), bookingapp.ChangeStatusCommand{
				BookingID: "bkg-1", ActorID: "guest-1", Target: target,
			})
		}(i, target)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.ErrorIs(t, err, domainbooking.ErrTerminalState)
	}
	assert.Equal(t, 1, won)

	stored, err := f.bookings.ByID(context.Background(), "bkg-1")
	require.NoError(t, err)
	assert.True(t, stored.Status.Terminal())
}

func TestChangeStatusMissingBooking(t *testing.T) {
	f := newFixture(t)
	f.seedListing(t)

	_, err := f.changeHandler().Handle(context.Background(), bookingapp.ChangeStatusCommand{
		BookingID: "bkg-missing", ActorID: "guest-1", Target: "confirmed",
	})
	assert.ErrorIs(t, err, domainbooking.ErrNotFound)
}

func TestGuestBookingsListsOwnStaysNewestFirst(t *testing.T) {
	f := newFixture(t)
	f.seedListing(t)
	f.seedPendingBooking(t, "bkg-1", "guest-1")

	h := &bookingapp.GuestBookingsHandler{UoWFactory: f.factory}
	result, err := h.Handle(context.Background(), bookingapp.GuestBookingsQuery{GuestID: "guest-1"})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "bkg-1", result.Items[0].ID)
	assert.Equal(t, "Beach house", result.Items[0].Listing.Title)

	empty, err := h.Handle(context.Background(), bookingapp.GuestBookingsQuery{GuestID: "guest-2"})
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
}

func TestGuestBookingsFilters(t *testing.T) {
	f := newFixture(t)
	f.seedListing(t)
	f.seedPendingBooking(t, "bkg-1", "guest-1")

	_, err := f.requestHandler().Handle(context.Background(), bookingapp.RequestBookingCommand{
		CommandID: "bkg-2",
		ListingID: "lst-1",
		GuestID:   "guest-1",
		CheckIn:   day(2024, 7, 20),
		CheckOut:  day(2024, 7, 22),
		Guests:    2,
	})
	require.NoError(t, err)
	_, err = f.changeHandler().Handle(context.Background(), bookingapp.ChangeStatusCommand{
		BookingID: "bkg-2", ActorID: "host-1", Target: "confirmed",
	})
	require.NoError(t, err)

	h := &bookingapp.GuestBookingsHandler{UoWFactory: f.factory}

	confirmed, err := h.Handle(context.Background(), bookingapp.GuestBookingsQuery{GuestID: "guest-1", Status: "confirmed"})
	require.NoError(t, err)
	require.Len(t, confirmed.Items, 1)
	assert.Equal(t, "bkg-2", confirmed.Items[0].ID)

	byListing, err := h.Handle(context.Background(), bookingapp.GuestBookingsQuery{GuestID: "guest-1", ListingID: "lst-1"})
	require.NoError(t, err)
	assert.Len(t, byListing.Items, 2)

	other, err := h.Handle(context.Background(), bookingapp.GuestBookingsQuery{GuestID: "guest-1", ListingID: "lst-2"})
	require.NoError(t, err)
	assert.Empty(t, other.Items)

	_, err = h.Handle(context.Background(), bookingapp.GuestBookingsQuery{GuestID: "guest-1", Status: "archived"})
	assert.ErrorIs(t, err, domainbooking.ErrInvalidStatus)
}
