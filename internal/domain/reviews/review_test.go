package reviews

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayhub/internal/domain/booking"
	"stayhub/internal/domain/shared/daterange"
	"stayhub/internal/domain/shared/money"
)

func completedStay(t *testing.T) *booking.Booking {
	t.Helper()
	dr, err := daterange.New(
		time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 13, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	stay, err := booking.New(booking.CreateParams{
		ID:        "bkg-1",
		ListingID: "lst-1",
		GuestID:   "guest-1",
		Range:     dr,
		Guests:    2,
		Total:     money.Must(30000, "USD"),
		Nights:    3,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	stay.Status = booking.StatusCompleted
	return stay
}

func TestSubmitValidatesRatingBounds(t *testing.T) {
	for _, rating := range []int{0, -1, 6, 100} {
		_, err := Submit(SubmitParams{ListingID: "lst-1", AuthorID: "guest-1", Rating: rating})
		assert.ErrorIs(t, err, ErrInvalidRating, "rating %d", rating)
	}
	for rating := 1; rating <= 5; rating++ {
		review, err := Submit(SubmitParams{ID: "rev-1", ListingID: "lst-1", AuthorID: "guest-1", Rating: rating})
		require.NoError(t, err)
		assert.Equal(t, rating, review.Rating)
	}
}

func TestSubmitWithoutStayLeavesBookingUnset(t *testing.T) {
	review, err := Submit(SubmitParams{
		ID:        "rev-1",
		ListingID: "lst-1",
		AuthorID:  "guest-1",
		Rating:    4,
		Comment:   "  lovely place  ",
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.Empty(t, review.BookingID)
	assert.Equal(t, "lovely place", review.Comment)
	require.Len(t, review.PendingEvents(), 1)
}

func TestSubmitLinkedStayMustBeEligible(t *testing.T) {
	t.Run("completed stay by the author on the listing", func(t *testing.T) {
		stay := completedStay(t)
		review, err := Submit(SubmitParams{
			ID: "rev-1", ListingID: "lst-1", AuthorID: "guest-1", Rating: 5, Stay: stay,
		})
		require.NoError(t, err)
		assert.Equal(t, stay.ID, review.BookingID)
	})

	t.Run("stay not completed", func(t *testing.T) {
		stay := completedStay(t)
		stay.Status = booking.StatusConfirmed
		_, err := Submit(SubmitParams{ListingID: "lst-1", AuthorID: "guest-1", Rating: 5, Stay: stay})
		assert.ErrorIs(t, err, ErrBookingNotEligible)
	})

	t.Run("stay belongs to another guest", func(t *testing.T) {
		stay := completedStay(t)
		_, err := Submit(SubmitParams{ListingID: "lst-1", AuthorID: "guest-2", Rating: 5, Stay: stay})
		assert.ErrorIs(t, err, ErrBookingNotEligible)
	})

	t.Run("stay on another listing", func(t *testing.T) {
		stay := completedStay(t)
		_, err := Submit(SubmitParams{ListingID: "lst-2", AuthorID: "guest-1", Rating: 5, Stay: stay})
		assert.ErrorIs(t, err, ErrBookingNotEligible)
	})
}

func TestEditOnlyByAuthor(t *testing.T) {
	review, err := Submit(SubmitParams{
		ID: "rev-1", ListingID: "lst-1", AuthorID: "guest-1", Rating: 3, Comment: "fine",
	})
	require.NoError(t, err)
	review.ClearEvents()

	err = review.Edit("guest-2", 5, "great", time.Now())
	assert.ErrorIs(t, err, ErrNotAuthor)
	assert.Equal(t, 3, review.Rating)

	err = review.Edit("guest-1", 9, "great", time.Now())
	assert.ErrorIs(t, err, ErrInvalidRating)

	require.NoError(t, review.Edit("guest-1", 5, "  great  ", time.Now()))
	assert.Equal(t, 5, review.Rating)
	assert.Equal(t, "great", review.Comment)
	require.Len(t, review.PendingEvents(), 1)
}

func TestAggregate(t *testing.T) {
	average, count := Aggregate(nil)
	assert.Zero(t, average)
	assert.Zero(t, count)

	all := []*Review{{Rating: 5}, {Rating: 4}, {Rating: 2}}
	average, count = Aggregate(all)
	assert.InDelta(t, 11.0/3.0, average, 1e-9)
	assert.Equal(t, 3, count)
}
