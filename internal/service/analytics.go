package service

import (
	"context"
	"time"

	"carehub-backend/internal/domain"
	"carehub-backend/internal/logger"
	"carehub-backend/internal/repository"
)

type analyticsService struct {
	store repository.Store
	cache AnalyticsCache
	ttl   time.Duration
	now   clock
}

// NewAnalyticsService wires the read-side projections. cache may be nil.
func NewAnalyticsService(store repository.Store, cache AnalyticsCache, ttl time.Duration) AnalyticsService {
	return &analyticsService{store: store, cache: cache, ttl: ttl, now: utcNow}
}

func (s *analyticsService) ComputeAnalytics(ctx context.Context, actor domain.Actor) (*domain.Analytics, error) {
	if !actor.IsSuperAdmin() {
		return nil, domain.Errorf(domain.ErrForbidden, "only a super admin can read platform analytics")
	}
	if s.cache != nil {
		cached, err := s.cache.Get(ctx)
		if err != nil {
			logger.Warn("Analytics cache read failed", "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}
	return s.Recompute(ctx)
}

// Recompute folds organizations, caregivers and the whole booking ledger.
// Running counters are never consulted.
func (s *analyticsService) Recompute(ctx context.Context) (*domain.Analytics, error) {
	logger.EnterMethod("analyticsService.Recompute")

	var a domain.Analytics
	orgs, err := s.store.Organizations().List(ctx, repository.OrganizationFilter{})
	if err != nil {
		logger.ExitMethodWithError("analyticsService.Recompute", err)
		return nil, err
	}
	for i := range orgs {
		a.AddOrganization(&orgs[i])
	}

	caregivers, err := s.store.Caregivers().List(ctx, repository.CaregiverFilter{})
	if err != nil {
		logger.ExitMethodWithError("analyticsService.Recompute", err)
		return nil, err
	}
	for i := range caregivers {
		a.AddCaregiver(&caregivers[i])
	}

	err = s.store.Bookings().ForEach(ctx, repository.BookingFilter{}, func(b *domain.Booking) error {
		a.AddBooking(b)
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("analyticsService.Recompute", err)
		return nil, err
	}
	a.ComputedAt = s.now()

	if s.cache != nil {
		if err := s.cache.Set(ctx, &a, s.ttl); err != nil {
			logger.Warn("Analytics cache write failed", "error", err)
		}
	}

	logger.ExitMethod("analyticsService.Recompute", "bookings", a.TotalBookings, "revenue", a.TotalRevenue)
	return &a, nil
}

func (s *analyticsService) CaregiverBalance(ctx context.Context, actor domain.Actor, caregiverID string) (*domain.CaregiverBalance, error) {
	c, err := s.store.Caregivers().GetByID(ctx, caregiverID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, c) {
		return nil, domain.Errorf(domain.ErrForbidden, "account %s may not read the balance of %s", actor.AccountID, caregiverID)
	}
	ledger, err := ledgerBalance(ctx, s.store, caregiverID)
	if err != nil {
		return nil, err
	}
	return &domain.CaregiverBalance{CaregiverID: caregiverID, Stored: c.StoredBalance(), Ledger: ledger}, nil
}

func ledgerBalance(ctx context.Context, store repository.Store, caregiverID string) (domain.Balance, error) {
	var b domain.Balance
	err := store.Bookings().ForEach(ctx, repository.BookingFilter{CaregiverID: caregiverID}, func(bk *domain.Booking) error {
		b.AddBooking(bk)
		return nil
	})
	return b, err
}

// ReconcileBalances rewrites every caregiver's counters that drifted from the
// booking ledger and returns how many were corrected.
func (s *analyticsService) ReconcileBalances(ctx context.Context) (int, error) {
	logger.EnterMethod("analyticsService.ReconcileBalances")

	caregivers, err := s.store.Caregivers().List(ctx, repository.CaregiverFilter{})
	if err != nil {
		logger.ExitMethodWithError("analyticsService.ReconcileBalances", err)
		return 0, err
	}

	fixed := 0
	for i := range caregivers {
		id := caregivers[i].ID
		var balance domain.CaregiverBalance
		// counters and ledger are read and repaired in one transaction so a
		// concurrent settlement cannot be overwritten
		err := s.store.InTx(ctx, func(tx repository.Store) error {
			c, err := tx.Caregivers().GetByID(ctx, id)
			if err != nil {
				return err
			}
			ledger, err := ledgerBalance(ctx, tx, id)
			if err != nil {
				return err
			}
			balance = domain.CaregiverBalance{CaregiverID: id, Stored: c.StoredBalance(), Ledger: ledger}
			if !balance.Drifted() {
				return nil
			}
			return tx.Caregivers().SetBalance(ctx, id, ledger)
		})
		if err != nil {
			logger.ExitMethodWithError("analyticsService.ReconcileBalances", err, "caregiverID", id)
			return fixed, err
		}
		if !balance.Drifted() {
			continue
		}
		logger.Warn("Caregiver balance corrected",
			"caregiverID", id,
			"storedTotal", balance.Stored.TotalEarnings, "ledgerTotal", balance.Ledger.TotalEarnings,
			"storedPending", balance.Stored.PendingEarnings, "ledgerPending", balance.Ledger.PendingEarnings,
			"storedJobs", balance.Stored.JobsCompleted, "ledgerJobs", balance.Ledger.JobsCompleted)
		fixed++
	}

	logger.ExitMethod("analyticsService.ReconcileBalances", "checked", len(caregivers), "fixed", fixed)
	return fixed, nil
}
