package booking

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"stayhub/internal/app/commands"
	"stayhub/internal/app/dto"
	"stayhub/internal/app/handlers/support"
	"stayhub/internal/app/outbox"
	"stayhub/internal/app/uow"
	domainbooking "stayhub/internal/domain/booking"
	domainlistings "stayhub/internal/domain/listings"
)

const changeStatusKey = "booking.change_status"

// ErrNotParticipant marks a caller who is neither the guest who booked nor
// the host of the listing.
var ErrNotParticipant = errors.New("booking: caller may not manage this booking")

type ChangeStatusCommand struct {
	BookingID string
	ActorID   string
	Target    string
}

func (c ChangeStatusCommand) Key() string { return changeStatusKey }

func (c ChangeStatusCommand) Validate() error {
	if strings.TrimSpace(c.BookingID) == "" {
		return ErrBookingIDRequired
	}
	return nil
}

type ChangeStatusHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *ChangeStatusHandler) Handle(ctx context.Context, cmd ChangeStatusCommand) (*dto.Booking, error) {
	unit, ctx, managed, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		if errors.Is(err, uow.ErrUnitOfWorkMissing) {
			return nil, ErrUnitOfWorkRequired
		}
		return nil, err
	}
	committed := false
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	target, err := domainbooking.ParseStatus(cmd.Target)
	if err != nil {
		return nil, err
	}

	stay, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}

	listing, err := unit.Listings().ByID(ctx, stay.ListingID)
	if err != nil && !errors.Is(err, domainlistings.ErrNotFound) {
		return nil, err
	}
	if cmd.ActorID != "" {
		isGuest := stay.GuestID == cmd.ActorID
		isHost := listing != nil && listing.OwnedBy(domainlistings.HostID(cmd.ActorID))
		if !isGuest && !isHost {
			return nil, ErrNotParticipant
		}
	}

	if err := stay.TransitionTo(target, time.Now()); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, stay); err != nil {
		// A guard miss means another writer moved the booking first. When
		// that move was terminal the caller sees the terminal rule, not a
		// storage detail.
		if errors.Is(err, domainbooking.ErrConcurrentUpdate) {
			if current, lookupErr := unit.Bookings().ByID(ctx, stay.ID); lookupErr == nil && current.Status.Terminal() {
				return nil, domainbooking.ErrTerminalState
			}
		}
		return nil, err
	}

	pending := stay.PendingEvents()
	stay.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), pending); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}

	if h.Logger != nil {
		h.Logger.Info("booking status changed", "booking_id", stay.ID, "status", stay.Status)
	}

	result := dto.MapBooking(stay, listing)
	return &result, nil
}

func (h *ChangeStatusHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[ChangeStatusCommand, *dto.Booking] = (*ChangeStatusHandler)(nil)
