package pricing

import (
	"errors"

	"stayhub/internal/domain/shared/daterange"
	"stayhub/internal/domain/shared/money"
)

var ErrZeroNights = errors.New("pricing: stay must cover at least one night")

// Quote is the fixed price computed at booking time. It is persisted with
// the booking and never re-derived from the listing afterwards, so later
// rate changes do not touch existing bookings.
type Quote struct {
	Nights  int
	Nightly money.Money
	Total   money.Money
}

type Calculator interface {
	Price(nightly money.Money, r daterange.DateRange) (Quote, error)
}

// FlatNightly charges the listing's nightly rate for every night of the
// stay with no seasonal or length-of-stay adjustments.
type FlatNightly struct{}

func NewFlatNightly() FlatNightly { return FlatNightly{} }

func (FlatNightly) Price(nightly money.Money, r daterange.DateRange) (Quote, error) {
	nights := r.Nights()
	if nights <= 0 {
		return Quote{}, ErrZeroNights
	}
	return Quote{
		Nights:  nights,
		Nightly: nightly,
		Total:   nightly.Multiply(int64(nights)),
	}, nil
}
