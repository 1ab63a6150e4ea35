package ginserver

import (
	"errors"
	"net/http"

	ginpkg "github.com/gin-gonic/gin"

	bookingapp "stayhub/internal/app/handlers/booking"
	"stayhub/internal/app/uow"
	domainbooking "stayhub/internal/domain/booking"
	domainlistings "stayhub/internal/domain/listings"
	domainreviews "stayhub/internal/domain/reviews"
	domainrange "stayhub/internal/domain/shared/daterange"
)

// statusForError maps domain failures onto HTTP statuses: validation
// failures are 400, admission losses and duplicates are 409, ownership
// violations are 403.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domainlistings.ErrNotFound),
		errors.Is(err, domainbooking.ErrNotFound),
		errors.Is(err, domainreviews.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainbooking.ErrDateConflict),
		errors.Is(err, domainbooking.ErrTerminalState),
		errors.Is(err, domainbooking.ErrConcurrentUpdate),
		errors.Is(err, domainreviews.ErrDuplicateReview):
		return http.StatusConflict
	case errors.Is(err, domainlistings.ErrNotOwned),
		errors.Is(err, domainreviews.ErrNotAuthor),
		errors.Is(err, domainreviews.ErrBookingNotEligible),
		errors.Is(err, bookingapp.ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, bookingapp.ErrListingIDRequired),
		errors.Is(err, bookingapp.ErrBookingIDRequired),
		errors.Is(err, domainrange.ErrInvalidRange),
		errors.Is(err, domainbooking.ErrOutOfWindow),
		errors.Is(err, domainbooking.ErrCapacityExceeded),
		errors.Is(err, domainbooking.ErrInvalidStatus),
		errors.Is(err, domainbooking.ErrInvalidGuests),
		errors.Is(err, domainreviews.ErrInvalidRating),
		errors.Is(err, domainlistings.ErrTitleRequired),
		errors.Is(err, domainlistings.ErrNightlyRate),
		errors.Is(err, domainlistings.ErrMaxGuests),
		errors.Is(err, domainlistings.ErrAvailabilityWindow):
		return http.StatusBadRequest
	case errors.Is(err, uow.ErrUnitOfWorkMissing):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *ginpkg.Context, err error) {
	c.JSON(statusForError(err), ginpkg.H{"error": err.Error()})
}
