package service

import (
	"errors"
	"sync"
	"testing"

	"carehub-backend/internal/domain"
	"carehub-backend/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBooking_SnapshotsCommission(t *testing.T) {
	f := newFixture(t)
	f.seedOrg("org-1", 15)
	f.seedCaregiver("cg-1", "org-1", 500)

	b := f.book("cg-1", 4, domain.PaymentMethodCash)

	assert.Equal(t, int64(500), b.HourlyRate)
	assert.Equal(t, int64(2000), b.TotalAmount)
	assert.Equal(t, int64(300), b.PlatformCommission)
	assert.Equal(t, int64(1700), b.VendorEarnings)
	assert.Equal(t, domain.BookingStatusPending, b.Status)
	assert.Equal(t, domain.PaymentStatusPending, b.PaymentStatus)
	assert.Equal(t, "org-1", *b.OrganizationID)

	// cash bookings accrue at creation
	assert.Equal(t, int64(1700), f.caregiver("cg-1").PendingEarnings)

	org, err := f.store.Organizations().GetByID(f.ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, 1, org.TotalBookings)

	// a later rate change never touches the stored booking
	_, err = f.orgs.SetCommissionRate(f.ctx, superAdmin, "org-1", decimal.NewFromInt(40))
	require.NoError(t, err)
	stored, err := f.store.Bookings().GetByID(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300), stored.PlatformCommission)
	assert.True(t, stored.CommissionRate.Equal(decimal.NewFromInt(15)))

	next := f.book("cg-1", 4, domain.PaymentMethodCash)
	assert.Equal(t, int64(800), next.PlatformCommission)
}

func TestCreateBooking_IndependentUsesPlatformDefault(t *testing.T) {
	f := newFixture(t)
	f.seedCaregiver("cg-1", "", 1000)

	b := f.book("cg-1", 2, domain.PaymentMethodGateway)
	assert.Nil(t, b.OrganizationID)
	assert.Equal(t, int64(300), b.PlatformCommission)
	// gateway bookings accrue only once paid
	assert.Equal(t, int64(0), f.caregiver("cg-1").PendingEarnings)

	require.NoError(f.t, f.orgs.SetDefaultCommissionRate(f.ctx, superAdmin, decimal.NewFromInt(10)))
	b = f.book("cg-1", 2, domain.PaymentMethodGateway)
	assert.Equal(t, int64(200), b.PlatformCommission)
}

func TestCreateBooking_Rejections(t *testing.T) {
	valid := BookingRequest{CaregiverID: "cg-1", Date: "2026-11-02", Time: "10:00", DurationHours: 3, Address: "1 Main St", PaymentMethod: domain.PaymentMethodCash}

	tests := []struct {
		name  string
		actor domain.Actor
		setup func(f *fixture)
		req   func(r BookingRequest) BookingRequest
		kind  *domain.Error
	}{
		{
			name:  "unapproved caregiver",
			actor: customer,
			setup: func(f *fixture) {
				c := f.seedCaregiver("cg-1", "", 500)
				c.IsApproved = false
				require.NoError(f.t, f.store.Caregivers().Update(f.ctx, c))
			},
			kind: domain.ErrValidation,
		},
		{
			name:  "missing caregiver",
			actor: customer,
			setup: func(f *fixture) {},
			kind:  domain.ErrNotFound,
		},
		{
			name:  "suspended caregiver",
			actor: customer,
			setup: func(f *fixture) {
				f.seedCaregiver("cg-1", "", 500)
				require.NoError(f.t, f.store.Caregivers().SetModeration(f.ctx, "cg-1", false, true))
			},
			kind: domain.ErrValidation,
		},
		{
			name:  "organization blacklisted before its cascade ran",
			actor: customer,
			setup: func(f *fixture) {
				org := f.seedOrg("org-1", 15)
				f.seedCaregiver("cg-1", "org-1", 500)
				org.IsBlacklisted, org.CascadePending = true, true
				require.NoError(f.t, f.store.Organizations().Update(f.ctx, org))
			},
			kind: domain.ErrValidation,
		},
		{
			name:  "blacklisted customer",
			actor: customer,
			setup: func(f *fixture) {
				f.seedCaregiver("cg-1", "", 500)
				_, err := f.store.Blacklist().AddEntry(f.ctx, &domain.BlacklistEntry{
					ID: "e-1", SubjectID: customer.AccountID, SubjectType: domain.SubjectUser, Reason: "abuse", Source: domain.EntrySourcePlatform,
				})
				require.NoError(f.t, err)
			},
			kind: domain.ErrCustomerBlacklisted,
		},
		{
			name:  "duration too long",
			actor: customer,
			setup: func(f *fixture) { f.seedCaregiver("cg-1", "", 500) },
			req:   func(r BookingRequest) BookingRequest { r.DurationHours = 25; return r },
			kind:  domain.ErrValidation,
		},
		{
			name:  "zero duration",
			actor: customer,
			setup: func(f *fixture) { f.seedCaregiver("cg-1", "", 500) },
			req:   func(r BookingRequest) BookingRequest { r.DurationHours = 0; return r },
			kind:  domain.ErrValidation,
		},
		{
			name:  "bad date",
			actor: customer,
			setup: func(f *fixture) { f.seedCaregiver("cg-1", "", 500) },
			req:   func(r BookingRequest) BookingRequest { r.Date = "2026-02-30"; return r },
			kind:  domain.ErrValidation,
		},
		{
			name:  "caregiver cannot book",
			actor: caregiverActor("cg-2"),
			setup: func(f *fixture) { f.seedCaregiver("cg-1", "", 500) },
			kind:  domain.ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)
			req := valid
			if tt.req != nil {
				req = tt.req(req)
			}

			_, err := f.bookings.CreateBooking(f.ctx, tt.actor, req)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)

			_, total, err := f.store.Bookings().List(f.ctx, repository.BookingFilter{})
			require.NoError(t, err)
			assert.Zero(t, total, "no booking may be stored")
		})
	}
}

func TestTransition_CompletionSettlesEarnings(t *testing.T) {
	f := newFixture(t)
	f.seedOrg("org-1", 15)
	f.seedCaregiver("cg-1", "org-1", 500)
	b := f.book("cg-1", 4, domain.PaymentMethodCash)
	cg := caregiverActor("cg-1")

	res, err := f.bookings.Transition(f.ctx, cg, b.ID, domain.BookingStatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Value.Version)

	res, err = f.bookings.Transition(f.ctx, cg, b.ID, domain.BookingStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCompleted, res.Value.Status)
	assert.Equal(t, domain.PaymentStatusPaid, res.Value.PaymentStatus)
	assert.NotNil(t, res.Value.CompletedAt)

	c := f.caregiver("cg-1")
	assert.Equal(t, 1, c.JobsCompleted)
	assert.Equal(t, int64(1700), c.TotalEarnings)
	assert.Equal(t, int64(0), c.PendingEarnings)

	org, err := f.store.Organizations().GetByID(f.ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1700), org.TotalEarnings)

	_, err = f.bookings.Transition(f.ctx, cg, b.ID, domain.BookingStatusCancelled)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
}

func TestTransition_CancellationReleasesPending(t *testing.T) {
	f := newFixture(t)
	f.seedCaregiver("cg-1", "", 500)
	b := f.book("cg-1", 4, domain.PaymentMethodCash)
	require.Equal(t, int64(1700), f.caregiver("cg-1").PendingEarnings)

	res, err := f.bookings.Transition(f.ctx, customer, b.ID, domain.BookingStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, customer.AccountID, res.Value.CancelledBy)

	c := f.caregiver("cg-1")
	assert.Equal(t, int64(0), c.PendingEarnings)
	assert.Equal(t, int64(0), c.TotalEarnings)
}

func TestTransition_Authorization(t *testing.T) {
	f := newFixture(t)
	f.seedOrg("org-1", 15)
	f.seedCaregiver("cg-1", "org-1", 500)
	b := f.book("cg-1", 1, domain.PaymentMethodCash)

	_, err := f.bookings.Transition(f.ctx, customer, b.ID, domain.BookingStatusAccepted)
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	_, err = f.bookings.Transition(f.ctx, caregiverActor("cg-other"), b.ID, domain.BookingStatusAccepted)
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	// the owning organization admin may cancel, but never accept
	_, err = f.bookings.Transition(f.ctx, orgAdmin, b.ID, domain.BookingStatusAccepted)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	_, err = f.bookings.Transition(f.ctx, orgAdmin, b.ID, domain.BookingStatusCancelled)
	assert.NoError(t, err)
}

func TestTransition_ConcurrentAcceptAndCancel(t *testing.T) {
	f := newFixture(t)
	f.seedCaregiver("cg-1", "", 500)
	b := f.book("cg-1", 4, domain.PaymentMethodCash)

	racing := NewBookingService(newRendezvousStore(f.store, 2), decimal.NewFromInt(15), BookingLimits{}, nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	moves := []struct {
		actor  domain.Actor
		target domain.BookingStatus
	}{
		{caregiverActor("cg-1"), domain.BookingStatusAccepted},
		{customer, domain.BookingStatusCancelled},
	}
	for i, m := range moves {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = racing.Transition(f.ctx, m.actor, b.ID, m.target)
		}()
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)

	stored, err := f.store.Bookings().GetByID(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Version)

	// the pending amount moved at most once
	c := f.caregiver("cg-1")
	if stored.Status == domain.BookingStatusCancelled {
		assert.Equal(t, int64(0), c.PendingEarnings)
	} else {
		assert.Equal(t, int64(1700), c.PendingEarnings)
	}
}

func TestConfirmPayment_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.seedCaregiver("cg-1", "", 500)
	b := f.book("cg-1", 4, domain.PaymentMethodGateway)
	intent := f.issueIntent(b.ID, b.TotalAmount)

	first, err := f.bookings.ConfirmPayment(f.ctx, b.ID, intent.ReferenceID, 2000)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, first.Value.PaymentStatus)
	assert.Equal(t, int64(1700), f.caregiver("cg-1").PendingEarnings)

	second, err := f.bookings.ConfirmPayment(f.ctx, b.ID, intent.ReferenceID, 2000)
	require.NoError(t, err)
	assert.Equal(t, first.Value.Version, second.Value.Version)
	assert.Equal(t, first.Value.PaymentReference, second.Value.PaymentReference)
	assert.Equal(t, int64(1700), f.caregiver("cg-1").PendingEarnings)

	// a different reference for an already paid booking
	other := &domain.PaymentIntent{ReferenceID: "ref-2", BookingID: b.ID, Amount: 2000, Status: domain.PaymentIntentIssued}
	require.NoError(t, f.store.Payments().CreateIntent(f.ctx, other))
	_, err = f.bookings.ConfirmPayment(f.ctx, b.ID, "ref-2", 2000)
	assert.True(t, errors.Is(err, domain.ErrAlreadySettled))
}

func TestConfirmPayment_Failures(t *testing.T) {
	f := newFixture(t)
	f.seedCaregiver("cg-1", "", 500)
	b := f.book("cg-1", 4, domain.PaymentMethodGateway)
	intent := f.issueIntent(b.ID, b.TotalAmount)

	_, err := f.bookings.ConfirmPayment(f.ctx, b.ID, intent.ReferenceID, 1999)
	assert.True(t, errors.Is(err, domain.ErrPaymentMismatch))

	_, err = f.bookings.ConfirmPayment(f.ctx, b.ID, "never-issued", 2000)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = f.bookings.Transition(f.ctx, customer, b.ID, domain.BookingStatusCancelled)
	require.NoError(t, err)
	_, err = f.bookings.ConfirmPayment(f.ctx, b.ID, intent.ReferenceID, 2000)
	assert.True(t, errors.Is(err, domain.ErrAlreadySettled))
	assert.Equal(t, int64(0), f.caregiver("cg-1").PendingEarnings)
}

func TestGatewayBookingLifecycle(t *testing.T) {
	f := newFixture(t)
	f.seedCaregiver("cg-1", "", 500)
	b := f.book("cg-1", 4, domain.PaymentMethodGateway)
	intent := f.issueIntent(b.ID, b.TotalAmount)
	cg := caregiverActor("cg-1")

	_, err := f.bookings.ConfirmPayment(f.ctx, b.ID, intent.ReferenceID, 2000)
	require.NoError(t, err)
	_, err = f.bookings.Transition(f.ctx, cg, b.ID, domain.BookingStatusAccepted)
	require.NoError(t, err)
	_, err = f.bookings.Transition(f.ctx, cg, b.ID, domain.BookingStatusCompleted)
	require.NoError(t, err)

	c := f.caregiver("cg-1")
	assert.Equal(t, int64(0), c.PendingEarnings)
	assert.Equal(t, int64(1700), c.TotalEarnings)

	balance, err := f.analytics.CaregiverBalance(f.ctx, cg, "cg-1")
	require.NoError(t, err)
	assert.False(t, balance.Drifted())
}

func TestListBookings_ScopedByRole(t *testing.T) {
	f := newFixture(t)
	f.seedOrg("org-1", 15)
	f.seedCaregiver("cg-1", "org-1", 500)
	f.seedCaregiver("cg-2", "", 500)
	f.book("cg-1", 1, domain.PaymentMethodCash)
	f.book("cg-2", 1, domain.PaymentMethodCash)

	_, total, err := f.bookings.ListBookings(f.ctx, customer, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	list, total, err := f.bookings.ListBookings(f.ctx, orgAdmin, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "cg-1", list[0].CaregiverID)

	_, total, err = f.bookings.ListBookings(f.ctx, caregiverActor("cg-2"), domain.BookingStatusCompleted, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, total)

	_, err = f.bookings.GetBooking(f.ctx, caregiverActor("cg-2"), list[0].ID)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}
