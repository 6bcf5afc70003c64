package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newTestBooking(status BookingStatus) *Booking {
	return &Booking{
		ID:                 "b1",
		UserID:             "cust",
		CaregiverID:        "cg",
		OrganizationID:     strPtr("org"),
		Status:             status,
		HourlyRate:         500,
		DurationHours:      4,
		CommissionRate:     decimal.NewFromInt(15),
		TotalAmount:        2000,
		PlatformCommission: 300,
		VendorEarnings:     1700,
		PaymentMethod:      PaymentMethodCash,
		PaymentStatus:      PaymentStatusPending,
		Version:            1,
	}
}

func TestCheckTransition(t *testing.T) {
	caregiver := Actor{AccountID: "cg", Role: RoleCaregiver}
	otherCaregiver := Actor{AccountID: "cg2", Role: RoleCaregiver}
	customer := Actor{AccountID: "cust", Role: RoleCustomer}
	otherCustomer := Actor{AccountID: "cust2", Role: RoleCustomer}
	orgAdmin := Actor{AccountID: "org", Role: RoleOrgAdmin}
	otherOrgAdmin := Actor{AccountID: "org2", Role: RoleOrgAdmin}
	superAdmin := Actor{AccountID: "root", Role: RoleSuperAdmin}

	tests := []struct {
		name   string
		from   BookingStatus
		actor  Actor
		target BookingStatus
		want   *Error
	}{
		{"caregiver accepts", BookingStatusPending, caregiver, BookingStatusAccepted, nil},
		{"caregiver declines", BookingStatusPending, caregiver, BookingStatusCancelled, nil},
		{"caregiver completes", BookingStatusAccepted, caregiver, BookingStatusCompleted, nil},
		{"caregiver cancels accepted", BookingStatusAccepted, caregiver, BookingStatusCancelled, nil},
		{"customer cancels pending", BookingStatusPending, customer, BookingStatusCancelled, nil},
		{"customer cancels accepted", BookingStatusAccepted, customer, BookingStatusCancelled, nil},
		{"org admin cancels", BookingStatusAccepted, orgAdmin, BookingStatusCancelled, nil},
		{"super admin cancels", BookingStatusPending, superAdmin, BookingStatusCancelled, nil},
		{"customer cannot accept", BookingStatusPending, customer, BookingStatusAccepted, ErrForbidden},
		{"customer cannot complete", BookingStatusAccepted, customer, BookingStatusCompleted, ErrForbidden},
		{"other caregiver cannot accept", BookingStatusPending, otherCaregiver, BookingStatusAccepted, ErrForbidden},
		{"other customer cannot cancel", BookingStatusPending, otherCustomer, BookingStatusCancelled, ErrForbidden},
		{"other org admin cannot cancel", BookingStatusPending, otherOrgAdmin, BookingStatusCancelled, ErrForbidden},
		{"super admin cannot complete", BookingStatusAccepted, superAdmin, BookingStatusCompleted, ErrForbidden},
		{"pending cannot complete", BookingStatusPending, caregiver, BookingStatusCompleted, ErrInvalidTransition},
		{"completed is terminal", BookingStatusCompleted, caregiver, BookingStatusCancelled, ErrInvalidTransition},
		{"completed to pending", BookingStatusCompleted, superAdmin, BookingStatusPending, ErrInvalidTransition},
		{"cancelled is terminal", BookingStatusCancelled, caregiver, BookingStatusAccepted, ErrInvalidTransition},
		{"unknown target", BookingStatusPending, caregiver, BookingStatus("paused"), ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBooking(tt.from)
			err := CheckTransition(b, tt.actor, tt.target)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Equal(t, tt.want.Code, CodeOf(err))
		})
	}
}

func TestCheckTransition_IsDeterministic(t *testing.T) {
	actors := []Actor{
		{AccountID: "cg", Role: RoleCaregiver},
		{AccountID: "cust", Role: RoleCustomer},
		{AccountID: "org", Role: RoleOrgAdmin},
		{AccountID: "root", Role: RoleSuperAdmin},
	}
	statuses := []BookingStatus{BookingStatusPending, BookingStatusAccepted, BookingStatusCompleted, BookingStatusCancelled}

	for _, from := range statuses {
		for _, to := range statuses {
			for _, a := range actors {
				first := CodeOf(CheckTransition(newTestBooking(from), a, to))
				second := CodeOf(CheckTransition(newTestBooking(from), a, to))
				assert.Equal(t, first, second)
				if from.Terminal() {
					assert.Equal(t, ErrInvalidTransition.Code, first)
				}
			}
		}
	}
}

func TestApplyTransition(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("Complete accrued cash booking", func(t *testing.T) {
		b := newTestBooking(BookingStatusAccepted)
		b.EarningsAccrued = true

		s := b.ApplyTransition(BookingStatusCompleted, "cg", at)
		assert.Equal(t, EarningsDelta{JobsCompleted: 1, TotalEarnings: 1700, PendingEarnings: -1700}, s.Delta)
		assert.Equal(t, int64(1700), s.OrgEarnings)
		assert.False(t, b.EarningsAccrued)
		assert.Equal(t, PaymentStatusPaid, b.PaymentStatus)
		require.NotNil(t, b.CompletedAt)
		assert.Equal(t, int64(2000), b.TotalAmount)
	})

	t.Run("Complete unpaid gateway booking", func(t *testing.T) {
		b := newTestBooking(BookingStatusAccepted)
		b.PaymentMethod = PaymentMethodGateway

		s := b.ApplyTransition(BookingStatusCompleted, "cg", at)
		assert.Equal(t, EarningsDelta{JobsCompleted: 1, TotalEarnings: 1700}, s.Delta)
		assert.Equal(t, PaymentStatusPending, b.PaymentStatus)
	})

	t.Run("Cancel releases pending", func(t *testing.T) {
		b := newTestBooking(BookingStatusPending)
		b.EarningsAccrued = true

		s := b.ApplyTransition(BookingStatusCancelled, "cust", at)
		assert.Equal(t, EarningsDelta{PendingEarnings: -1700}, s.Delta)
		assert.Equal(t, "cust", b.CancelledBy)
		require.NotNil(t, b.CancelledAt)
		assert.Zero(t, s.OrgEarnings)
	})

	t.Run("Accept moves nothing", func(t *testing.T) {
		b := newTestBooking(BookingStatusPending)
		s := b.ApplyTransition(BookingStatusAccepted, "cg", at)
		assert.True(t, s.Delta.IsZero())
	})
}

func TestAccruePending(t *testing.T) {
	b := newTestBooking(BookingStatusPending)
	assert.Equal(t, EarningsDelta{PendingEarnings: 1700}, b.AccruePending())
	assert.True(t, b.AccruePending().IsZero())

	done := newTestBooking(BookingStatusCompleted)
	assert.True(t, done.AccruePending().IsZero())
	assert.False(t, done.EarningsAccrued)
}

func TestBookingInvolves(t *testing.T) {
	b := newTestBooking(BookingStatusPending)
	assert.True(t, b.Involves(Actor{AccountID: "cust", Role: RoleCustomer}))
	assert.True(t, b.Involves(Actor{AccountID: "cg", Role: RoleCaregiver}))
	assert.True(t, b.Involves(Actor{AccountID: "org", Role: RoleOrgAdmin}))
	assert.True(t, b.Involves(Actor{AccountID: "x", Role: RoleSuperAdmin}))
	assert.False(t, b.Involves(Actor{AccountID: "x", Role: RoleCustomer}))
	assert.False(t, b.Involves(Actor{AccountID: "org2", Role: RoleOrgAdmin}))
}
