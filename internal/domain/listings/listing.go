package listings

import (
	"context"
	"errors"
	"strings"
	"time"

	"stayhub/internal/domain/shared/daterange"
	"stayhub/internal/domain/shared/events"
	"stayhub/internal/domain/shared/money"
)

var (
	ErrTitleRequired      = errors.New("listings: title is required")
	ErrNightlyRate        = errors.New("listings: nightly rate must be non-negative")
	ErrMaxGuests          = errors.New("listings: max guests must be at least 1")
	ErrAvailabilityWindow = errors.New("listings: available_from must precede available_to")
	ErrNotFound           = errors.New("listings: not found")
	ErrNotOwned           = errors.New("listings: listing does not belong to this host")
)

type ListingID string
type HostID string

// Listing is a bookable travel property published by a host. The
// availability window [AvailableFrom, AvailableTo] bounds every stay:
// a booking's checkout may fall on AvailableTo but never after it.
type Listing struct {
	ID            ListingID
	Host          HostID
	Title         string
	Description   string
	Category      string
	Location      string
	NightlyRate   money.Money
	MaxGuests     int
	AvailableFrom time.Time
	AvailableTo   time.Time
	AverageRating float64
	ReviewCount   int
	Photos        []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
	// Delete removes the listing; the caller cascades bookings and reviews
	// inside the same unit of work.
	Delete(ctx context.Context, id ListingID) error
	Search(ctx context.Context, params SearchParams) (SearchResult, error)
}

type CreateParams struct {
	ID            ListingID
	Host          HostID
	Title         string
	Description   string
	Category      string
	Location      string
	NightlyRate   money.Money
	MaxGuests     int
	AvailableFrom time.Time
	AvailableTo   time.Time
	CreatedAt     time.Time
}

func New(params CreateParams) (*Listing, error) {
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	if params.NightlyRate.IsNegative() {
		return nil, ErrNightlyRate
	}
	if params.MaxGuests < 1 {
		return nil, ErrMaxGuests
	}
	from, to := daterange.Day(params.AvailableFrom), daterange.Day(params.AvailableTo)
	if !from.Before(to) {
		return nil, ErrAvailabilityWindow
	}
	rate := params.NightlyRate
	if rate.Currency == "" {
		rate.Currency = money.DefaultCurrency
	}
	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	l := &Listing{
		ID:            params.ID,
		Host:          params.Host,
		Title:         strings.TrimSpace(params.Title),
		Description:   strings.TrimSpace(params.Description),
		Category:      strings.TrimSpace(params.Category),
		Location:      strings.TrimSpace(params.Location),
		NightlyRate:   rate,
		MaxGuests:     params.MaxGuests,
		AvailableFrom: from,
		AvailableTo:   to,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	l.Record(ListingCreated{ListingID: l.ID, HostID: l.Host, At: now})
	return l, nil
}

type UpdateParams struct {
	Title         string
	Description   string
	Category      string
	Location      string
	NightlyRate   money.Money
	MaxGuests     int
	AvailableFrom time.Time
	AvailableTo   time.Time
	Now           time.Time
}

// UpdateAttributes replaces the mutable listing fields after revalidating the
// same invariants enforced at creation.
func (l *Listing) UpdateAttributes(params UpdateParams) error {
	if strings.TrimSpace(params.Title) == "" {
		return ErrTitleRequired
	}
	if params.NightlyRate.IsNegative() {
		return ErrNightlyRate
	}
	if params.MaxGuests < 1 {
		return ErrMaxGuests
	}
	from, to := daterange.Day(params.AvailableFrom), daterange.Day(params.AvailableTo)
	if !from.Before(to) {
		return ErrAvailabilityWindow
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	l.Title = strings.TrimSpace(params.Title)
	l.Description = strings.TrimSpace(params.Description)
	l.Category = strings.TrimSpace(params.Category)
	l.Location = strings.TrimSpace(params.Location)
	l.NightlyRate = params.NightlyRate
	if l.NightlyRate.Currency == "" {
		l.NightlyRate.Currency = money.DefaultCurrency
	}
	l.MaxGuests = params.MaxGuests
	l.AvailableFrom = from
	l.AvailableTo = to
	l.UpdatedAt = now
	l.Record(ListingUpdated{ListingID: l.ID, At: now})
	return nil
}

// AddPhoto appends a stored photo URL.
func (l *Listing) AddPhoto(url string, now time.Time) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return errors.New("listings: photo url is required")
	}
	l.Photos = append(l.Photos, url)
	l.UpdatedAt = now.UTC()
	return nil
}

// ApplyRating stores the recalculated review aggregate.
func (l *Listing) ApplyRating(average float64, count int, now time.Time) {
	l.AverageRating = average
	l.ReviewCount = count
	l.UpdatedAt = now.UTC()
}

// OwnedBy reports whether the listing belongs to the given host.
func (l *Listing) OwnedBy(host HostID) bool {
	return l.Host == host
}
