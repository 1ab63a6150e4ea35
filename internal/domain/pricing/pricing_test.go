package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayhub/internal/domain/shared/daterange"
	"stayhub/internal/domain/shared/money"
)

func TestFlatNightlyChargesRateTimesNights(t *testing.T) {
	dr, err := daterange.New(
		time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 13, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)

	quote, err := NewFlatNightly().Price(money.Must(10000, "USD"), dr)
	require.NoError(t, err)

	assert.Equal(t, 3, quote.Nights)
	assert.Equal(t, int64(30000), quote.Total.Cents)
	assert.Equal(t, "USD", quote.Total.Currency)
	assert.Equal(t, "300.00 USD", quote.Total.String())
}

func TestFlatNightlySingleNight(t *testing.T) {
	dr, err := daterange.New(
		time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 11, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)

	quote, err := NewFlatNightly().Price(money.Must(9950, "EUR"), dr)
	require.NoError(t, err)
	assert.Equal(t, int64(9950), quote.Total.Cents)
}

func TestFlatNightlyRejectsZeroNights(t *testing.T) {
	same := time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC)
	_, err := NewFlatNightly().Price(money.Must(10000, "USD"), daterange.DateRange{CheckIn: same, CheckOut: same})
	assert.ErrorIs(t, err, ErrZeroNights)
}
