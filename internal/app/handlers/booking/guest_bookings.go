package booking

import (
	"context"
	"errors"

	"stayhub/internal/app/dto"
	"stayhub/internal/app/handlers/support"
	"stayhub/internal/app/queries"
	"stayhub/internal/app/uow"
	domainbooking "stayhub/internal/domain/booking"
	domainlistings "stayhub/internal/domain/listings"
)

const guestBookingsKey = "booking.guest_list"

type GuestBookingsQuery struct {
	GuestID   string
	Status    string
	ListingID string
}

func (q GuestBookingsQuery) Key() string { return guestBookingsKey }

// GuestBookingsHandler lists the caller's bookings newest first, joined
// with a small listing snapshot.
type GuestBookingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GuestBookingsHandler) Handle(ctx context.Context, q GuestBookingsQuery) (dto.BookingCollection, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	var statusFilter domainbooking.Status
	if q.Status != "" {
		statusFilter, err = domainbooking.ParseStatus(q.Status)
		if err != nil {
			return dto.BookingCollection{}, err
		}
	}

	stays, err := unit.Bookings().ListByGuest(ctx, q.GuestID)
	if err != nil {
		return dto.BookingCollection{}, err
	}

	items := make([]dto.Booking, 0, len(stays))
	for _, stay := range stays {
		if statusFilter != "" && stay.Status != statusFilter {
			continue
		}
		if q.ListingID != "" && string(stay.ListingID) != q.ListingID {
			continue
		}
		listing, err := unit.Listings().ByID(ctx, stay.ListingID)
		if err != nil && !errors.Is(err, domainlistings.ErrNotFound) {
			return dto.BookingCollection{}, err
		}
		items = append(items, dto.MapBooking(stay, listing))
	}
	return dto.BookingCollection{Items: items}, nil
}

var _ queries.Handler[GuestBookingsQuery, dto.BookingCollection] = (*GuestBookingsHandler)(nil)
