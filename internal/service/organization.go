package service

import (
	"context"
	"errors"

	"carehub-backend/internal/domain"
	"carehub-backend/internal/logger"
	"carehub-backend/internal/repository"
	"carehub-backend/internal/utils"

	"github.com/shopspring/decimal"
)

type organizationService struct {
	store       repository.Store
	defaultRate decimal.Decimal
	cache       AnalyticsCache
	now         clock
}

// NewOrganizationService wires the organization registry. defaultRate is used
// until a super admin stores a platform default. cache may be nil.
func NewOrganizationService(store repository.Store, defaultRate decimal.Decimal, cache AnalyticsCache) OrganizationService {
	return &organizationService{store: store, defaultRate: defaultRate, cache: cache, now: utcNow}
}

func (s *organizationService) RegisterOrganization(ctx context.Context, actor domain.Actor, org *domain.Organization) (Result[*domain.Organization], error) {
	logger.EnterMethod("organizationService.RegisterOrganization", "actorID", actor.AccountID)
	var res Result[*domain.Organization]

	if actor.Role != domain.RoleOrgAdmin {
		err := domain.Errorf(domain.ErrForbidden, "only organization admins can register an organization")
		logger.ExitMethodWithError("organizationService.RegisterOrganization", err, "actorID", actor.AccountID)
		return res, err
	}
	if err := org.Validate(); err != nil {
		logger.ExitMethodWithError("organizationService.RegisterOrganization", err, "actorID", actor.AccountID)
		return res, err
	}

	rate, err := s.platformRate(ctx)
	if err != nil {
		return res, err
	}

	now := s.now()
	created := &domain.Organization{
		ID:              actor.AccountID,
		Name:            org.Name,
		AdminName:       org.AdminName,
		AdminEmail:      org.AdminEmail,
		BusinessPhone:   org.BusinessPhone,
		BusinessAddress: org.BusinessAddress,
		BusinessCity:    org.BusinessCity,
		CommissionRate:  rate,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Organizations().Create(ctx, created); err != nil {
		logger.ExitMethodWithError("organizationService.RegisterOrganization", err, "actorID", actor.AccountID)
		return res, err
	}

	bestEffort("RegisterOrganization", "mark_profile_complete", &res.Warnings, func() error {
		return markProfileComplete(ctx, s.store.Accounts(), created.ID)
	})
	invalidateAnalytics(ctx, s.cache, "RegisterOrganization", &res.Warnings)

	res.Value = created
	logger.ExitMethod("organizationService.RegisterOrganization", "orgID", created.ID)
	return res, nil
}

func (s *organizationService) GetOrganization(ctx context.Context, id string) (*domain.Organization, error) {
	return s.store.Organizations().GetByID(ctx, id)
}

func (s *organizationService) ListOrganizations(ctx context.Context, approvedOnly bool) ([]domain.Organization, error) {
	return s.store.Organizations().List(ctx, repository.OrganizationFilter{ApprovedOnly: approvedOnly})
}

func (s *organizationService) UpdateOrganization(ctx context.Context, actor domain.Actor, patch *domain.Organization) (*domain.Organization, error) {
	org, err := s.store.Organizations().GetByID(ctx, patch.ID)
	if err != nil {
		return nil, err
	}
	if !actor.IsSuperAdmin() && !actor.AdministersOrg(&org.ID) {
		return nil, domain.Errorf(domain.ErrForbidden, "account %s may not edit organization %s", actor.AccountID, org.ID)
	}

	org.Name = patch.Name
	org.AdminName = patch.AdminName
	org.AdminEmail = patch.AdminEmail
	org.BusinessPhone = patch.BusinessPhone
	org.BusinessAddress = patch.BusinessAddress
	org.BusinessCity = patch.BusinessCity
	if err := org.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Organizations().Update(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *organizationService) ApproveOrganization(ctx context.Context, actor domain.Actor, id string) (Result[*domain.Organization], error) {
	return s.review(ctx, actor, id, func(org *domain.Organization) error {
		org.Approve(actor.AccountID, s.now())
		return nil
	})
}

func (s *organizationService) RejectOrganization(ctx context.Context, actor domain.Actor, id, reason string) (Result[*domain.Organization], error) {
	return s.review(ctx, actor, id, func(org *domain.Organization) error {
		return org.Reject(actor.AccountID, reason, s.now())
	})
}

func (s *organizationService) review(ctx context.Context, actor domain.Actor, id string, decide func(*domain.Organization) error) (Result[*domain.Organization], error) {
	logger.EnterMethod("organizationService.review", "actorID", actor.AccountID, "orgID", id)
	var res Result[*domain.Organization]

	if !actor.IsSuperAdmin() {
		err := domain.Errorf(domain.ErrForbidden, "only a super admin can review organizations")
		logger.ExitMethodWithError("organizationService.review", err, "orgID", id)
		return res, err
	}
	org, err := s.store.Organizations().GetByID(ctx, id)
	if err != nil {
		logger.ExitMethodWithError("organizationService.review", err, "orgID", id)
		return res, err
	}
	if err := decide(org); err != nil {
		logger.ExitMethodWithError("organizationService.review", err, "orgID", id)
		return res, err
	}
	if err := s.store.Organizations().Update(ctx, org); err != nil {
		logger.ExitMethodWithError("organizationService.review", err, "orgID", id)
		return res, err
	}

	bestEffort("ReviewOrganization", "mirror_account_approval", &res.Warnings, func() error {
		return mirrorApproval(ctx, s.store.Accounts(), org.ID, org.IsApproved)
	})
	invalidateAnalytics(ctx, s.cache, "ReviewOrganization", &res.Warnings)

	res.Value = org
	logger.ExitMethod("organizationService.review", "orgID", id, "approved", org.IsApproved)
	return res, nil
}

func (s *organizationService) SetCommissionRate(ctx context.Context, actor domain.Actor, id string, rate decimal.Decimal) (*domain.Organization, error) {
	if !actor.IsSuperAdmin() {
		return nil, domain.Errorf(domain.ErrForbidden, "only a super admin can change commission rates")
	}
	if err := utils.ValidateCommissionRate(rate); err != nil {
		return nil, invalid(err)
	}
	org, err := s.store.Organizations().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// existing bookings keep their snapshotted rate
	org.CommissionRate = rate
	if err := s.store.Organizations().Update(ctx, org); err != nil {
		return nil, err
	}
	logger.Info("Commission rate changed", "orgID", id, "rate", rate.String(), "by", actor.AccountID)
	return org, nil
}

// DeleteOrganization removes the organization once no pending or accepted
// booking references it. Its caregivers become independent and go back to
// review; its catalog entries go with it.
func (s *organizationService) DeleteOrganization(ctx context.Context, actor domain.Actor, id string) (Result[struct{}], error) {
	logger.EnterMethod("organizationService.DeleteOrganization", "actorID", actor.AccountID, "orgID", id)
	var res Result[struct{}]

	if !actor.IsSuperAdmin() && !actor.AdministersOrg(&id) {
		err := domain.Errorf(domain.ErrForbidden, "account %s may not delete organization %s", actor.AccountID, id)
		logger.ExitMethodWithError("organizationService.DeleteOrganization", err, "orgID", id)
		return res, err
	}

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Organizations().GetByID(ctx, id); err != nil {
			return err
		}
		active, err := tx.Bookings().CountActive(ctx, repository.BookingFilter{OrganizationID: id})
		if err != nil {
			return err
		}
		if active > 0 {
			return domain.Errorf(domain.ErrHasActiveBookings, "organization %s has %d active bookings", id, active)
		}

		members, err := tx.Caregivers().List(ctx, repository.CaregiverFilter{OrganizationID: &id})
		if err != nil {
			return err
		}
		if err := tx.Organizations().Delete(ctx, id); err != nil {
			return err
		}
		for i := range members {
			c := members[i]
			c.OrganizationID = nil
			c.IsApproved = false
			if err := tx.Caregivers().Update(ctx, &c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("organizationService.DeleteOrganization", err, "orgID", id)
		return res, err
	}

	bestEffort("DeleteOrganization", "delete_admin_account", &res.Warnings, func() error {
		return s.store.Accounts().Delete(ctx, id)
	})
	invalidateAnalytics(ctx, s.cache, "DeleteOrganization", &res.Warnings)

	logger.ExitMethod("organizationService.DeleteOrganization", "orgID", id)
	return res, nil
}

func (s *organizationService) SetDefaultCommissionRate(ctx context.Context, actor domain.Actor, rate decimal.Decimal) error {
	if !actor.IsSuperAdmin() {
		return domain.Errorf(domain.ErrForbidden, "only a super admin can change the default commission rate")
	}
	if err := utils.ValidateCommissionRate(rate); err != nil {
		return invalid(err)
	}
	return s.store.Settings().SetDefaultCommissionRate(ctx, rate, actor.AccountID)
}

func (s *organizationService) platformRate(ctx context.Context) (decimal.Decimal, error) {
	return commissionRate(ctx, s.store, nil, s.defaultRate)
}

// commissionRate reads through store so callers inside a transaction see
// the transaction's view.
func commissionRate(ctx context.Context, store repository.Store, orgID *string, fallback decimal.Decimal) (decimal.Decimal, error) {
	if orgID != nil {
		org, err := store.Organizations().GetByID(ctx, *orgID)
		if err != nil {
			return decimal.Zero, err
		}
		return org.CommissionRate, nil
	}
	rate, err := store.Settings().GetDefaultCommissionRate(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return fallback, nil
	}
	return rate, err
}

func markProfileComplete(ctx context.Context, accounts repository.AccountRepository, id string) error {
	account, err := accounts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if account.ProfileComplete {
		return nil
	}
	account.ProfileComplete = true
	return accounts.Update(ctx, account)
}

func mirrorApproval(ctx context.Context, accounts repository.AccountRepository, id string, approved bool) error {
	account, err := accounts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if account.IsApproved == approved {
		return nil
	}
	account.IsApproved = approved
	return accounts.Update(ctx, account)
}
