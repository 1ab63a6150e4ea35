package listings

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"stayhub/internal/app/commands"
	"stayhub/internal/app/dto"
	"stayhub/internal/app/outbox"
	"stayhub/internal/app/uow"
	domainbooking "stayhub/internal/domain/booking"
	domainlistings "stayhub/internal/domain/listings"
	"stayhub/internal/domain/shared/money"
	domainuser "stayhub/internal/domain/user"
)

const (
	createListingKey = "listings.create"
	updateListingKey = "listings.update"
	deleteListingKey = "listings.delete"
)

var ErrHostRequired = errors.New("listings: host id is required")

type ListingPayload struct {
	Title            string
	Description      string
	Category         string
	Location         string
	NightlyRateCents int64
	Currency         string
	MaxGuests        int
	AvailableFrom    time.Time
	AvailableTo      time.Time
}

type CreateListingCommand struct {
	HostID  string
	Payload ListingPayload
}

func (c CreateListingCommand) Key() string { return createListingKey }

// CreateListingHandler publishes a new property. When a user repository is
// wired, the first listing promotes the author to the host role.
type CreateListingHandler struct {
	Users  domainuser.Repository
	Outbox outbox.Outbox
	Logger *slog.Logger
}

func (h *CreateListingHandler) Handle(ctx context.Context, cmd CreateListingCommand) (*dto.Listing, error) {
	if strings.TrimSpace(cmd.HostID) == "" {
		return nil, ErrHostRequired
	}
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}

	now := time.Now()
	listing, err := domainlistings.New(domainlistings.CreateParams{
		ID:            domainlistings.ListingID(uuid.NewString()),
		Host:          domainlistings.HostID(cmd.HostID),
		Title:         cmd.Payload.Title,
		Description:   cmd.Payload.Description,
		Category:      cmd.Payload.Category,
		Location:      cmd.Payload.Location,
		NightlyRate:   money.Money{Cents: cmd.Payload.NightlyRateCents, Currency: cmd.Payload.Currency},
		MaxGuests:     cmd.Payload.MaxGuests,
		AvailableFrom: cmd.Payload.AvailableFrom,
		AvailableTo:   cmd.Payload.AvailableTo,
		CreatedAt:     now,
	})
	if err != nil {
		return nil, err
	}

	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}

	if h.Users != nil {
		author, err := h.Users.ByID(ctx, domainuser.ID(cmd.HostID))
		if err == nil && !author.HasRole(domainuser.RoleHost) {
			if err := author.EnsureRole(domainuser.RoleHost, now); err == nil {
				if err := h.Users.Save(ctx, author); err != nil {
					return nil, err
				}
			}
		} else if err != nil && !errors.Is(err, domainuser.ErrNotFound) {
			return nil, err
		}
	}

	pending := listing.PendingEvents()
	listing.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, nil, pending); err != nil && !errors.Is(err, outbox.ErrNilOutbox) {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.Info("listing created", "listing_id", listing.ID, "host_id", cmd.HostID)
	}

	result := dto.MapListing(listing)
	return &result, nil
}

type UpdateListingCommand struct {
	HostID    string
	ListingID string
	Payload   ListingPayload
}

func (c UpdateListingCommand) Key() string { return updateListingKey }

type UpdateListingHandler struct {
	Logger *slog.Logger
}

func (h *UpdateListingHandler) Handle(ctx context.Context, cmd UpdateListingCommand) (*dto.Listing, error) {
	if strings.TrimSpace(cmd.HostID) == "" {
		return nil, ErrHostRequired
	}
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}

	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return nil, err
	}
	if !listing.OwnedBy(domainlistings.HostID(cmd.HostID)) {
		return nil, domainlistings.ErrNotOwned
	}

	err = listing.UpdateAttributes(domainlistings.UpdateParams{
		Title:         cmd.Payload.Title,
		Description:   cmd.Payload.Description,
		Category:      cmd.Payload.Category,
		Location:      cmd.Payload.Location,
		NightlyRate:   money.Money{Cents: cmd.Payload.NightlyRateCents, Currency: cmd.Payload.Currency},
		MaxGuests:     cmd.Payload.MaxGuests,
		AvailableFrom: cmd.Payload.AvailableFrom,
		AvailableTo:   cmd.Payload.AvailableTo,
		Now:           time.Now(),
	})
	if err != nil {
		return nil, err
	}

	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.Info("listing updated", "listing_id", listing.ID)
	}

	result := dto.MapListing(listing)
	return &result, nil
}

type DeleteListingCommand struct {
	HostID    string
	ListingID string
}

func (c DeleteListingCommand) Key() string { return deleteListingKey }

// DeleteListingHandler removes a listing together with its bookings and
// reviews so no orphaned rows keep referencing it.
type DeleteListingHandler struct {
	Logger *slog.Logger
}

func (h *DeleteListingHandler) Handle(ctx context.Context, cmd DeleteListingCommand) (struct{}, error) {
	if strings.TrimSpace(cmd.HostID) == "" {
		return struct{}{}, ErrHostRequired
	}
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return struct{}{}, uow.ErrUnitOfWorkMissing
	}

	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return struct{}{}, err
	}
	if !listing.OwnedBy(domainlistings.HostID(cmd.HostID)) {
		return struct{}{}, domainlistings.ErrNotOwned
	}

	if err := unit.Bookings().DeleteByListing(ctx, listing.ID); err != nil && !errors.Is(err, domainbooking.ErrNotFound) {
		return struct{}{}, err
	}
	if err := unit.Reviews().DeleteByListing(ctx, listing.ID); err != nil {
		return struct{}{}, err
	}
	if err := unit.Listings().Delete(ctx, listing.ID); err != nil {
		return struct{}{}, err
	}

	if h.Logger != nil {
		h.Logger.Info("listing deleted", "listing_id", listing.ID, "host_id", cmd.HostID)
	}
	return struct{}{}, nil
}

var _ commands.Handler[CreateListingCommand, *dto.Listing] = (*CreateListingHandler)(nil)
var _ commands.Handler[UpdateListingCommand, *dto.Listing] = (*UpdateListingHandler)(nil)
var _ commands.Handler[DeleteListingCommand, struct{}] = (*DeleteListingHandler)(nil)
