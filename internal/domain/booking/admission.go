package booking

import (
	"errors"

	"stayhub/internal/domain/listings"
	"stayhub/internal/domain/shared/daterange"
)

var (
	ErrOutOfWindow      = errors.New("booking: stay falls outside the listing availability window")
	ErrCapacityExceeded = errors.New("booking: guests exceed listing capacity")
)

// CheckAdmissible is the availability evaluator: a pure predicate over the
// listing's published window and capacity. Range validity (check-in before
// check-out) is guaranteed by daterange.New upstream but re-checked here so
// the function stands alone.
func CheckAdmissible(l *listings.Listing, r daterange.DateRange, guests int) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if guests < 1 || guests > l.MaxGuests {
		return ErrCapacityExceeded
	}
	if !r.Within(l.AvailableFrom, l.AvailableTo) {
		return ErrOutOfWindow
	}
	return nil
}

// HasConflict reports whether the candidate range overlaps any booking in
// an active status. Pure existence-of-overlap: no priority, no reordering.
func HasConflict(r daterange.DateRange, existing []*Booking) bool {
	for _, b := range existing {
		if !b.Status.Active() {
			continue
		}
		if b.Range.Overlaps(r) {
			return true
		}
	}
	return false
}
