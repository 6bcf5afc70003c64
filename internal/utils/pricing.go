package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	minCommissionRate = decimal.Zero
	maxCommissionRate = decimal.NewFromInt(100)
	hundred           = decimal.NewFromInt(100)
)

// DefaultCommissionRate is applied when no platform setting has been stored.
var DefaultCommissionRate = decimal.NewFromInt(15)

// BookingCharges is the money breakdown snapshotted onto a booking.
// PlatformCommission + VendorEarnings == TotalAmount always holds.
type BookingCharges struct {
	HourlyRate         int64
	DurationHours      int
	CommissionRate     decimal.Decimal
	TotalAmount        int64
	PlatformCommission int64
	VendorEarnings     int64
}

// BookingDate is a calendar date in yyyy-mm-dd form
type BookingDate struct {
	Year  int
	Month int
	Day   int
}

// ValidateCommissionRate checks that rate is a percentage between 0 and 100.
func ValidateCommissionRate(rate decimal.Decimal) error {
	if rate.LessThan(minCommissionRate) || rate.GreaterThan(maxCommissionRate) {
		return fmt.Errorf("commission rate must be between 0 and 100, got %s", rate.String())
	}
	return nil
}

// CalculateBookingCharges computes the booking total and its split in minor
// units. The commission is rounded half-up exactly once; the vendor share is
// the remainder, so the two parts always add up to the total.
func CalculateBookingCharges(hourlyRate int64, durationHours int, commissionRate decimal.Decimal) (BookingCharges, error) {
	if hourlyRate < 0 {
		return BookingCharges{}, fmt.Errorf("hourly rate must not be negative")
	}
	if durationHours <= 0 {
		return BookingCharges{}, fmt.Errorf("duration must be positive")
	}
	if err := ValidateCommissionRate(commissionRate); err != nil {
		return BookingCharges{}, err
	}
	if hourlyRate > 0 && int64(durationHours) > math.MaxInt64/hourlyRate {
		return BookingCharges{}, fmt.Errorf("booking total overflows")
	}

	total := hourlyRate * int64(durationHours)
	commission := decimal.NewFromInt(total).Mul(commissionRate).Div(hundred).Round(0).IntPart()

	return BookingCharges{
		HourlyRate:         hourlyRate,
		DurationHours:      durationHours,
		CommissionRate:     commissionRate,
		TotalAmount:        total,
		PlatformCommission: commission,
		VendorEarnings:     total - commission,
	}, nil
}

// FormatAmount renders minor units with two decimals, e.g. 170050 -> "1700.50".
func FormatAmount(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}

// ParseBookingDate converts a yyyy-mm-dd formatted string into a BookingDate
func ParseBookingDate(dateStr string) (BookingDate, error) {
	parts := strings.Split(dateStr, "-")
	if len(parts) != 3 {
		return BookingDate{}, fmt.Errorf("invalid date format, expected yyyy-mm-dd")
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return BookingDate{}, fmt.Errorf("invalid year: %v", err)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return BookingDate{}, fmt.Errorf("invalid month: %v", err)
	}
	day, err := strconv.Atoi(parts[2])
	if err != nil {
		return BookingDate{}, fmt.Errorf("invalid day: %v", err)
	}

	if month < 1 || month > 12 {
		return BookingDate{}, fmt.Errorf("month must be between 1 and 12")
	}
	if day < 1 || day > DaysInMonth(year, month) {
		return BookingDate{}, fmt.Errorf("day out of range for month")
	}

	return BookingDate{Year: year, Month: month, Day: day}, nil
}

// ParseBookingTime validates an hh:mm start time.
func ParseBookingTime(timeStr string) (hour, minute int, err error) {
	parts := strings.Split(timeStr, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time format, expected hh:mm")
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("hour must be between 0 and 23")
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("minute must be between 0 and 59")
	}
	return hour, minute, nil
}

// DaysInMonth returns the number of days in a given month
func DaysInMonth(year, month int) int {
	if month == 2 {
		if (year%4 == 0 && year%100 != 0) || (year%400 == 0) {
			return 29
		}
		return 28
	}
	if month == 4 || month == 6 || month == 9 || month == 11 {
		return 30
	}
	return 31
}
