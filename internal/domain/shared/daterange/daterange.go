package daterange

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidRange = errors.New("daterange: check-out must fall after check-in")

// DateRange represents a stay as a half-open interval [CheckIn, CheckOut).
// Both endpoints are normalized to midnight UTC; a checkout on the same day
// as another range's check-in does not overlap it.
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// New builds a validated range. Timestamps are truncated to whole days.
func New(checkIn, checkOut time.Time) (DateRange, error) {
	dr := DateRange{CheckIn: Day(checkIn), CheckOut: Day(checkOut)}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// Day truncates a timestamp to midnight UTC.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (dr DateRange) Validate() error {
	if dr.CheckIn.IsZero() || dr.CheckOut.IsZero() {
		return ErrInvalidRange
	}
	if !dr.CheckOut.After(dr.CheckIn) {
		return ErrInvalidRange
	}
	return nil
}

// Nights counts the whole days between check-in and check-out.
func (dr DateRange) Nights() int {
	return int(dr.CheckOut.Sub(dr.CheckIn).Hours() / 24)
}

// Overlaps reports half-open interval intersection; the relation is symmetric.
func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(dr.CheckOut)
}

// Within reports whether the whole stay fits inside the inclusive window
// [from, to]: the check-in may not precede from and the check-out may not
// exceed to.
func (dr DateRange) Within(from, to time.Time) bool {
	from, to = Day(from), Day(to)
	return !dr.CheckIn.Before(from) && !dr.CheckOut.After(to)
}

func (dr DateRange) String() string {
	const layout = "2006-01-02"
	return fmt.Sprintf("%s..%s", dr.CheckIn.Format(layout), dr.CheckOut.Format(layout))
}
