package utils

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateBookingCharges(t *testing.T) {
	t.Run("Organization rate 15 percent", func(t *testing.T) {
		c, err := CalculateBookingCharges(500, 4, decimal.NewFromInt(15))
		require.NoError(t, err)
		assert.Equal(t, int64(2000), c.TotalAmount)
		assert.Equal(t, int64(300), c.PlatformCommission)
		assert.Equal(t, int64(1700), c.VendorEarnings)
	})

	t.Run("Fractional rate rounds once", func(t *testing.T) {
		// 333 * 12.5% = 41.625 -> 42
		c, err := CalculateBookingCharges(111, 3, decimal.RequireFromString("12.5"))
		require.NoError(t, err)
		assert.Equal(t, int64(333), c.TotalAmount)
		assert.Equal(t, int64(42), c.PlatformCommission)
		assert.Equal(t, int64(291), c.VendorEarnings)
	})

	t.Run("Zero and full commission", func(t *testing.T) {
		c, err := CalculateBookingCharges(700, 2, decimal.Zero)
		require.NoError(t, err)
		assert.Equal(t, int64(0), c.PlatformCommission)
		assert.Equal(t, int64(1400), c.VendorEarnings)

		c, err = CalculateBookingCharges(700, 2, decimal.NewFromInt(100))
		require.NoError(t, err)
		assert.Equal(t, int64(1400), c.PlatformCommission)
		assert.Equal(t, int64(0), c.VendorEarnings)
	})

	t.Run("Split always sums to total", func(t *testing.T) {
		rates := []string{"0", "1", "7.25", "15", "33.333", "99.99"}
		for _, r := range rates {
			for rate := int64(0); rate <= 2000; rate += 137 {
				for hours := 1; hours <= 24; hours++ {
					c, err := CalculateBookingCharges(rate, hours, decimal.RequireFromString(r))
					require.NoError(t, err)
					assert.Equal(t, rate*int64(hours), c.TotalAmount)
					assert.Equal(t, c.TotalAmount, c.PlatformCommission+c.VendorEarnings)
					assert.GreaterOrEqual(t, c.VendorEarnings, int64(0))
				}
			}
		}
	})

	t.Run("Invalid input", func(t *testing.T) {
		_, err := CalculateBookingCharges(-1, 2, DefaultCommissionRate)
		assert.Error(t, err)

		_, err = CalculateBookingCharges(100, 0, DefaultCommissionRate)
		assert.Error(t, err)

		_, err = CalculateBookingCharges(100, 2, decimal.NewFromInt(101))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "between 0 and 100")

		_, err = CalculateBookingCharges(math.MaxInt64/2, 3, DefaultCommissionRate)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "overflows")
	})
}

func TestValidateCommissionRate(t *testing.T) {
	assert.NoError(t, ValidateCommissionRate(decimal.Zero))
	assert.NoError(t, ValidateCommissionRate(decimal.NewFromInt(100)))
	assert.Error(t, ValidateCommissionRate(decimal.NewFromInt(-1)))
	assert.Error(t, ValidateCommissionRate(decimal.RequireFromString("100.01")))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1700.00", FormatAmount(170000))
	assert.Equal(t, "0.05", FormatAmount(5))
	assert.Equal(t, "-3.10", FormatAmount(-310))
}

func TestParseBookingDate(t *testing.T) {
	t.Run("Valid date", func(t *testing.T) {
		date, err := ParseBookingDate("2024-01-15")
		assert.NoError(t, err)
		assert.Equal(t, 2024, date.Year)
		assert.Equal(t, 1, date.Month)
		assert.Equal(t, 15, date.Day)
	})

	t.Run("Invalid format", func(t *testing.T) {
		_, err := ParseBookingDate("2024/01/15")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid date format")
	})

	t.Run("Invalid month", func(t *testing.T) {
		_, err := ParseBookingDate("2024-13-15")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "month must be between 1 and 12")
	})

	t.Run("February 30", func(t *testing.T) {
		_, err := ParseBookingDate("2023-02-29")
		assert.Error(t, err)
		_, err = ParseBookingDate("2024-02-29")
		assert.NoError(t, err)
	})
}

func TestParseBookingTime(t *testing.T) {
	h, m, err := ParseBookingTime("09:30")
	assert.NoError(t, err)
	assert.Equal(t, 9, h)
	assert.Equal(t, 30, m)

	_, _, err = ParseBookingTime("24:00")
	assert.Error(t, err)
	_, _, err = ParseBookingTime("0930")
	assert.Error(t, err)
}

func TestDaysInMonth(t *testing.T) {
	tests := []struct {
		year     int
		month    int
		expected int
	}{
		{2024, 1, 31},
		{2024, 2, 29}, // leap year
		{2023, 2, 28},
		{2024, 4, 30},
		{2000, 2, 29}, // divisible by 400
		{1900, 2, 28}, // divisible by 100 but not 400
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			assert.Equal(t, tt.expected, DaysInMonth(tt.year, tt.month))
		})
	}
}
