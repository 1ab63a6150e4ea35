package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stayhub/internal/app/commands"
	"stayhub/internal/app/dto"
	bookingapp "stayhub/internal/app/handlers/booking"
	listingsapp "stayhub/internal/app/handlers/listings"
	reviewsapp "stayhub/internal/app/handlers/reviews"
	appauth "stayhub/internal/app/services/auth"
	domainbooking "stayhub/internal/domain/booking"
)

// seedDemoData walks the public command surface end to end: accounts,
// listings, a completed stay and a review. Meant for local demos against
// the in-memory store.
func seedDemoData(ctx context.Context, app application, logger *slog.Logger) error {
	host, err := app.auth.Register(ctx, appauth.RegisterParams{
		Email:      "marta.host@example.com",
		Name:       "Marta",
		Password:   "hunter2-hunter2",
		WantToHost: true,
	})
	if err != nil {
		return fmt.Errorf("seed host: %w", err)
	}
	guest, err := app.auth.Register(ctx, appauth.RegisterParams{
		Email:    "jonas.guest@example.com",
		Name:     "Jonas",
		Password: "correct-horse-battery",
	})
	if err != nil {
		return fmt.Errorf("seed guest: %w", err)
	}

	now := time.Now().UTC()
	listings := []listingsapp.ListingPayload{
		{
			Title:            "Canal-side loft",
			Description:      "Bright loft with a view over the canal.",
			Category:         "apartment",
			Location:         "Amsterdam",
			NightlyRateCents: 14500,
			Currency:         "EUR",
			MaxGuests:        2,
			AvailableFrom:    now.AddDate(0, -2, 0),
			AvailableTo:      now.AddDate(1, 0, 0),
		},
		{
			Title:            "Cabin by the lake",
			Description:      "Quiet cabin, wood stove, rowing boat included.",
			Category:         "cabin",
			Location:         "Bergen",
			NightlyRateCents: 9900,
			Currency:         "EUR",
			MaxGuests:        4,
			AvailableFrom:    now.AddDate(0, -2, 0),
			AvailableTo:      now.AddDate(1, 0, 0),
		},
	}

	created := make([]*dto.Listing, 0, len(listings))
	for _, payload := range listings {
		cmd := listingsapp.CreateListingCommand{HostID: string(host.User.ID), Payload: payload}
		listing, err := commands.Dispatch[listingsapp.CreateListingCommand, *dto.Listing](ctx, app.commands, cmd)
		if err != nil {
			return fmt.Errorf("seed listing %q: %w", payload.Title, err)
		}
		created = append(created, listing)
	}

	stay, err := commands.Dispatch[bookingapp.RequestBookingCommand, *dto.Booking](ctx, app.commands, bookingapp.RequestBookingCommand{
		CommandID: uuid.NewString(),
		ListingID: created[0].ID,
		GuestID:   string(guest.User.ID),
		CheckIn:   now.AddDate(0, -1, 0),
		CheckOut:  now.AddDate(0, -1, 3),
		Guests:    2,
	})
	if err != nil {
		return fmt.Errorf("seed booking: %w", err)
	}

	for _, target := range []domainbooking.Status{domainbooking.StatusConfirmed, domainbooking.StatusCompleted} {
		if _, err := commands.Dispatch[bookingapp.ChangeStatusCommand, *dto.Booking](ctx, app.commands, bookingapp.ChangeStatusCommand{
			BookingID: stay.ID,
			ActorID:   string(host.User.ID),
			Target:    string(target),
		}); err != nil {
			return fmt.Errorf("seed booking status %s: %w", target, err)
		}
	}

	if _, err := commands.Dispatch[reviewsapp.SubmitReviewCommand, dto.Review](ctx, app.commands, reviewsapp.SubmitReviewCommand{
		ListingID: created[0].ID,
		AuthorID:  string(guest.User.ID),
		BookingID: stay.ID,
		Rating:    5,
		Comment:   "Wonderful stay, the view alone is worth it.",
		Now:       now,
	}); err != nil {
		return fmt.Errorf("seed review: %w", err)
	}

	logger.Info("demo data seeded",
		"host", host.User.Email,
		"guest", guest.User.Email,
		"listings", len(created),
	)
	return nil
}
