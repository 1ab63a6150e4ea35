package booking

import (
	"context"
	"errors"
	"time"

	"stayhub/internal/domain/listings"
	"stayhub/internal/domain/shared/daterange"
	"stayhub/internal/domain/shared/events"
	"stayhub/internal/domain/shared/money"
)

var (
	ErrInvalidGuests = errors.New("booking: guests count must be positive")
	ErrGuestRequired = errors.New("booking: guest id required")
	ErrInvalidStatus = errors.New("booking: status transition not allowed")
	ErrTerminalState = errors.New("booking: booking already reached a terminal state")
	ErrDateConflict  = errors.New("booking: dates conflict with an existing booking")
	ErrNotFound      = errors.New("booking: not found")
	// ErrConcurrentUpdate reports a version guard miss on Save: another
	// writer changed the booking since it was read.
	ErrConcurrentUpdate = errors.New("booking: concurrent update")
)

type BookingID string

// Status is the booking lifecycle state. A booking starts pending and ends
// in one of the terminal states cancelled or completed.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// ParseStatus validates an externally supplied status string.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return s, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Terminal reports whether no further transition may leave this status.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// Active reports whether the booking still holds its date range. Only
// active bookings participate in conflict detection; cancelled and
// completed ones free their range.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// ActiveStatuses is the conflict-detection filter set.
var ActiveStatuses = []Status{StatusPending, StatusConfirmed}

type Booking struct {
	ID         BookingID
	ListingID  listings.ListingID
	GuestID    string
	Range      daterange.DateRange
	Guests     int
	TotalPrice money.Money
	Nights     int
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Version    int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	ListByGuest(ctx context.Context, guestID string) ([]*Booking, error)
	// ListActiveOverlapping returns bookings on the listing whose status is
	// in ActiveStatuses and whose range intersects r under half-open
	// semantics.
	ListActiveOverlapping(ctx context.Context, listingID listings.ListingID, r daterange.DateRange) ([]*Booking, error)
	// Reserve atomically inserts the booking unless an active booking
	// already overlaps its range; the overlap re-check and the insert are
	// one serialized step. Returns ErrDateConflict when the range is taken.
	Reserve(ctx context.Context, b *Booking) error
	// Save persists a status change using a version guard; a concurrent
	// writer makes the guard miss and the caller re-reads.
	Save(ctx context.Context, b *Booking) error
	DeleteByListing(ctx context.Context, listingID listings.ListingID) error
	HasAnyActiveOverlap(ctx context.Context, listingID listings.ListingID, r daterange.DateRange) (bool, error)
}

type CreateParams struct {
	ID        BookingID
	ListingID listings.ListingID
	GuestID   string
	Range     daterange.DateRange
	Guests    int
	Total     money.Money
	Nights    int
	CreatedAt time.Time
}

// New builds a pending booking after admission has passed. The total price
// is fixed here and never recomputed on read.
func New(params CreateParams) (*Booking, error) {
	if params.Guests <= 0 {
		return nil, ErrInvalidGuests
	}
	if params.GuestID == "" {
		return nil, ErrGuestRequired
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	if params.Total.IsNegative() {
		return nil, errors.New("booking: total price must be non-negative")
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:         params.ID,
		ListingID:  params.ListingID,
		GuestID:    params.GuestID,
		Range:      params.Range,
		Guests:     params.Guests,
		TotalPrice: params.Total,
		Nights:     params.Nights,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	b.Record(BookingRequested{
		BookingID:   b.ID,
		ListingID:   b.ListingID,
		GuestID:     b.GuestID,
		Range:       b.Range,
		GuestsCount: b.Guests,
		Total:       b.TotalPrice,
		At:          now,
	})
	return b, nil
}

// legalTransitions enumerates every allowed status move. Anything absent is
// rejected: with ErrTerminalState when the current status is terminal,
// otherwise with ErrInvalidStatus.
var legalTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled, StatusCompleted},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
}

// TransitionTo applies a lifecycle move. It never re-runs conflict
// detection: a cancelled booking simply stops counting as active.
func (b *Booking) TransitionTo(target Status, now time.Time) error {
	if _, err := ParseStatus(string(target)); err != nil {
		return err
	}
	if b.Status.Terminal() {
		return ErrTerminalState
	}
	allowed := false
	for _, next := range legalTransitions[b.Status] {
		if next == target {
			allowed = true
			break
		}
	}
	if !allowed {
		return ErrInvalidStatus
	}
	from := b.Status
	b.Status = target
	b.UpdatedAt = now.UTC()
	b.Record(BookingStatusChanged{
		BookingID: b.ID,
		ListingID: b.ListingID,
		From:      from,
		To:        target,
		At:        b.UpdatedAt,
	})
	return nil
}
