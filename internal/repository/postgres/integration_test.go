//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"carehub-backend/internal/domain"
	"carehub-backend/internal/migrations"
	"carehub-backend/internal/repository/postgres"
	"carehub-backend/internal/service"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newTestStore starts a throwaway PostgreSQL, applies the embedded schema and
// returns a store on it.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("carehub_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, migrations.Apply(dsn))

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return postgres.NewStore(db)
}

var root = domain.Actor{AccountID: "root", Role: domain.RoleSuperAdmin}

func TestIntegration_ConcurrentBootstrap(t *testing.T) {
	store := newTestStore(t)
	identity := service.NewIdentityService(store)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := "candidate-" + string(rune('a'+i))
			_, ok, err := identity.CreateFirstSuperAdminIfNeeded(context.Background(), id, id+"@example.com")
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	n, err := store.Accounts().CountByRole(context.Background(), domain.RoleSuperAdmin)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIntegration_BookingRaceAndSettlement(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	rate := decimal.NewFromInt(15)

	identity := service.NewIdentityService(store)
	caregivers := service.NewCaregiverService(store, nil)
	bookings := service.NewBookingService(store, rate, service.BookingLimits{}, nil)

	_, _, err := identity.CreateFirstSuperAdminIfNeeded(ctx, "root", "root@example.com")
	require.NoError(t, err)
	_, err = identity.RegisterAccount(ctx, "cg-1", "cg-1@example.com", domain.RoleCaregiver)
	require.NoError(t, err)
	_, err = identity.RegisterAccount(ctx, "cust-1", "cust-1@example.com", domain.RoleCustomer)
	require.NoError(t, err)

	cgActor := domain.Actor{AccountID: "cg-1", Role: domain.RoleCaregiver}
	_, err = caregivers.CreateCaregiver(ctx, cgActor, &domain.Caregiver{
		Name:        "Sita",
		Category:    domain.CategoryCaregiver,
		WorkType:    domain.WorkTypeFullTime,
		HourlyRate:  500,
		IsAvailable: true,
	})
	require.NoError(t, err)
	_, err = caregivers.ApproveCaregiver(ctx, root, "cg-1")
	require.NoError(t, err)

	res, err := bookings.CreateBooking(ctx, domain.Actor{AccountID: "cust-1", Role: domain.RoleCustomer}, service.BookingRequest{
		CaregiverID:   "cg-1",
		Date:          "2026-11-02",
		Time:          "09:30",
		DurationHours: 4,
		Address:       "Lazimpat",
		PaymentMethod: domain.PaymentMethodCash,
	})
	require.NoError(t, err)
	booking := res.Value

	// accept and cancel race on the same version
	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i, target := range []domain.BookingStatus{domain.BookingStatusAccepted, domain.BookingStatusCancelled} {
		wg.Add(1)
		go func(i int, target domain.BookingStatus) {
			defer wg.Done()
			_, errs[i] = bookings.Transition(ctx, cgActor, booking.ID, target)
		}(i, target)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			failures++
			assert.True(t, errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrInvalidTransition), err)
		}
	}
	assert.LessOrEqual(t, failures, 1)

	stored, err := store.Bookings().GetByID(ctx, booking.ID)
	require.NoError(t, err)
	if failures == 1 {
		assert.Equal(t, 2, stored.Version)
	} else {
		// serialized: accepted, then cancelled from accepted
		assert.Equal(t, domain.BookingStatusCancelled, stored.Status)
		assert.Equal(t, 3, stored.Version)
	}

	cg, err := store.Caregivers().GetByID(ctx, "cg-1")
	require.NoError(t, err)
	if stored.Status == domain.BookingStatusCancelled {
		assert.Zero(t, cg.PendingEarnings)
	} else {
		assert.Equal(t, int64(1700), cg.PendingEarnings)
	}
}

func TestIntegration_OrganizationCascade(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	identity := service.NewIdentityService(store)
	orgs := service.NewOrganizationService(store, decimal.NewFromInt(15), nil)
	caregivers := service.NewCaregiverService(store, nil)
	moderation := service.NewModerationService(store, 5*time.Second)

	_, _, err := identity.CreateFirstSuperAdminIfNeeded(ctx, "root", "root@example.com")
	require.NoError(t, err)
	_, err = identity.RegisterAccount(ctx, "org-1", "org-1@example.com", domain.RoleOrgAdmin)
	require.NoError(t, err)
	orgAdmin := domain.Actor{AccountID: "org-1", Role: domain.RoleOrgAdmin}
	_, err = orgs.RegisterOrganization(ctx, orgAdmin, &domain.Organization{Name: "Himalayan Care", AdminEmail: "org-1@example.com"})
	require.NoError(t, err)

	for _, name := range []string{"Maya", "Gita", "Rita"} {
		id := "cg-" + name
		_, err := identity.RegisterAccount(ctx, id, id+"@example.com", domain.RoleCaregiver)
		require.NoError(t, err)
		_, err = caregivers.CreateCaregiver(ctx, orgAdmin, &domain.Caregiver{
			ID:       id,
			Name:     name,
			Category: domain.CategoryHousehold,
			WorkType: domain.WorkTypeFullTime,
		})
		require.NoError(t, err)
	}

	res, err := moderation.BlacklistOrganization(ctx, root, "org-1", "fraud")
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	entries, err := moderation.ListBlacklist(ctx, root, domain.SubjectCaregiver)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	// repeating is idempotent
	_, err = moderation.BlacklistOrganization(ctx, root, "org-1", "fraud")
	require.NoError(t, err)
	entries, err = moderation.ListBlacklist(ctx, root, domain.SubjectCaregiver)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	require.NoError(t, moderation.Unblacklist(ctx, root, res.Value.ID))
	staff, err := caregivers.ListOrganizationCaregivers(ctx, root, "org-1")
	require.NoError(t, err)
	for _, c := range staff {
		assert.False(t, c.IsBlacklisted, c.Name)
	}
}
