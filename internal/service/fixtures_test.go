package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"carehub-backend/internal/domain"
	"carehub-backend/internal/repository"
	"carehub-backend/internal/repository/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	superAdmin = domain.Actor{AccountID: "root", Role: domain.RoleSuperAdmin}
	customer   = domain.Actor{AccountID: "cust-1", Role: domain.RoleCustomer}
	orgAdmin   = domain.Actor{AccountID: "org-1", Role: domain.RoleOrgAdmin}
)

func caregiverActor(id string) domain.Actor {
	return domain.Actor{AccountID: id, Role: domain.RoleCaregiver}
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *memory.Store

	identity   IdentityService
	orgs       OrganizationService
	caregivers CaregiverService
	bookings   BookingService
	moderation ModerationService
	analytics  AnalyticsService
}

func newFixture(t *testing.T) *fixture {
	store := memory.NewStore()
	return &fixture{
		t:          t,
		ctx:        context.Background(),
		store:      store,
		identity:   NewIdentityService(store),
		orgs:       NewOrganizationService(store, decimal.NewFromInt(15), nil),
		caregivers: NewCaregiverService(store, nil),
		bookings:   NewBookingService(store, decimal.NewFromInt(15), BookingLimits{}, nil),
		moderation: NewModerationService(store, time.Second),
		analytics:  NewAnalyticsService(store, nil, time.Minute),
	}
}

func (f *fixture) seedOrg(id string, rate int64) *domain.Organization {
	org := &domain.Organization{
		ID:             id,
		Name:           "Org " + id,
		AdminEmail:     id + "@example.com",
		CommissionRate: decimal.NewFromInt(rate),
	}
	org.IsApproved = true
	require.NoError(f.t, f.store.Organizations().Create(f.ctx, org))
	require.NoError(f.t, f.store.Accounts().Create(f.ctx, &domain.Account{ID: id, Role: domain.RoleOrgAdmin, IsApproved: true}))
	return org
}

// seedCaregiver stores an approved, available caregiver; orgID may be empty
// for an independent one.
func (f *fixture) seedCaregiver(id, orgID string, hourlyRate int64) *domain.Caregiver {
	c := &domain.Caregiver{
		ID:          id,
		Name:        "Caregiver " + id,
		Category:    domain.CategoryCaregiver,
		WorkType:    domain.WorkTypeFullTime,
		HourlyRate:  hourlyRate,
		IsAvailable: true,
	}
	c.IsApproved = true
	if orgID != "" {
		c.OrganizationID = &orgID
	}
	require.NoError(f.t, f.store.Caregivers().Create(f.ctx, c))
	require.NoError(f.t, f.store.Accounts().Create(f.ctx, &domain.Account{ID: id, Role: domain.RoleCaregiver, IsApproved: true}))
	return c
}

// seedAccount stores a bare account with the given role.
func (f *fixture) seedAccount(id string, role domain.Role) {
	require.NoError(f.t, f.store.Accounts().Create(f.ctx, &domain.Account{ID: id, Email: id + "@example.com", Role: role}))
}

func (f *fixture) book(caregiverID string, hours int, method domain.PaymentMethod) *domain.Booking {
	res, err := f.bookings.CreateBooking(f.ctx, customer, BookingRequest{
		CaregiverID:   caregiverID,
		Date:          "2026-11-02",
		Time:          "09:30",
		DurationHours: hours,
		Address:       "12 Lake Road",
		PaymentMethod: method,
	})
	require.NoError(f.t, err)
	return res.Value
}

func (f *fixture) caregiver(id string) *domain.Caregiver {
	c, err := f.store.Caregivers().GetByID(f.ctx, id)
	require.NoError(f.t, err)
	return c
}

func (f *fixture) issueIntent(bookingID string, amount int64) *domain.PaymentIntent {
	intent := &domain.PaymentIntent{
		ReferenceID: "ref-" + bookingID,
		BookingID:   bookingID,
		Amount:      amount,
		Status:      domain.PaymentIntentIssued,
	}
	require.NoError(f.t, f.store.Payments().CreateIntent(f.ctx, intent))
	return intent
}

// rendezvousStore makes the first n booking reads wait for each other, so
// concurrent callers all observe the same version before anyone writes.
type rendezvousStore struct {
	repository.Store
	reads *sync.WaitGroup
}

func newRendezvousStore(inner repository.Store, n int) rendezvousStore {
	wg := &sync.WaitGroup{}
	wg.Add(n)
	return rendezvousStore{Store: inner, reads: wg}
}

func (s rendezvousStore) Bookings() repository.BookingRepository {
	return rendezvousBookings{BookingRepository: s.Store.Bookings(), reads: s.reads}
}

type rendezvousBookings struct {
	repository.BookingRepository
	reads *sync.WaitGroup
}

func (r rendezvousBookings) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := r.BookingRepository.GetByID(ctx, id)
	r.reads.Done()
	r.reads.Wait()
	return b, err
}
