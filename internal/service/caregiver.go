package service

import (
	"context"
	"errors"

	"carehub-backend/internal/domain"
	"carehub-backend/internal/logger"
	"carehub-backend/internal/repository"
)

type caregiverService struct {
	store repository.Store
	cache AnalyticsCache
	now   clock
}

// NewCaregiverService wires the caregiver registry. cache may be nil.
func NewCaregiverService(store repository.Store, cache AnalyticsCache) CaregiverService {
	return &caregiverService{store: store, cache: cache, now: utcNow}
}

// canManage: the caregiver itself, its organization's admin, or a super admin.
func canManage(actor domain.Actor, c *domain.Caregiver) bool {
	return actor.IsSuperAdmin() || actor.AdministersOrg(c.OrganizationID) ||
		(actor.Role == domain.RoleCaregiver && actor.AccountID == c.ID)
}

// canReview: the organization admin for linked caregivers, a super admin for all.
func canReview(actor domain.Actor, c *domain.Caregiver) bool {
	return actor.IsSuperAdmin() || actor.AdministersOrg(c.OrganizationID)
}

// CreateCaregiver stores a new profile awaiting review. Organization admins
// create profiles inside their organization; caregivers create their own
// independent profile.
func (s *caregiverService) CreateCaregiver(ctx context.Context, actor domain.Actor, c *domain.Caregiver) (Result[*domain.Caregiver], error) {
	logger.EnterMethod("caregiverService.CreateCaregiver", "actorID", actor.AccountID)
	var res Result[*domain.Caregiver]

	profile := *c
	switch actor.Role {
	case domain.RoleCaregiver:
		profile.ID = actor.AccountID
		profile.OrganizationID = nil
	case domain.RoleOrgAdmin:
		orgID := actor.AccountID
		profile.OrganizationID = &orgID
	case domain.RoleSuperAdmin:
	default:
		err := domain.Errorf(domain.ErrForbidden, "account %s may not create caregiver profiles", actor.AccountID)
		logger.ExitMethodWithError("caregiverService.CreateCaregiver", err, "actorID", actor.AccountID)
		return res, err
	}

	if actor.Role != domain.RoleCaregiver {
		if err := s.checkOwner(ctx, profile.ID); err != nil {
			logger.ExitMethodWithError("caregiverService.CreateCaregiver", err, "actorID", actor.AccountID)
			return res, err
		}
	}
	if err := profile.Validate(); err != nil {
		logger.ExitMethodWithError("caregiverService.CreateCaregiver", err, "actorID", actor.AccountID)
		return res, err
	}
	if profile.OrganizationID != nil {
		if _, err := s.store.Organizations().GetByID(ctx, *profile.OrganizationID); err != nil {
			logger.ExitMethodWithError("caregiverService.CreateCaregiver", err, "actorID", actor.AccountID)
			return res, err
		}
	}
	if err := s.checkServices(ctx, &profile); err != nil {
		logger.ExitMethodWithError("caregiverService.CreateCaregiver", err, "actorID", actor.AccountID)
		return res, err
	}

	now := s.now()
	profile.Approval = domain.Approval{}
	profile.IsSuspended = false
	profile.IsBlacklisted = false
	profile.Rating = 0
	profile.JobsCompleted, profile.TotalEarnings, profile.PendingEarnings = 0, 0, 0
	profile.CreatedAt, profile.UpdatedAt = now, now

	if err := s.store.Caregivers().Create(ctx, &profile); err != nil {
		logger.ExitMethodWithError("caregiverService.CreateCaregiver", err, "actorID", actor.AccountID)
		return res, err
	}

	bestEffort("CreateCaregiver", "mark_profile_complete", &res.Warnings, func() error {
		return markProfileComplete(ctx, s.store.Accounts(), profile.ID)
	})
	invalidateAnalytics(ctx, s.cache, "CreateCaregiver", &res.Warnings)

	res.Value = &profile
	logger.ExitMethod("caregiverService.CreateCaregiver", "caregiverID", profile.ID)
	return res, nil
}

// checkOwner requires an admin-created profile to name a caregiver account
// that has no profile yet. Only that account can later accept and complete
// bookings.
func (s *caregiverService) checkOwner(ctx context.Context, accountID string) error {
	if accountID == "" {
		return domain.Errorf(domain.ErrValidation, "account_id of the caregiver's account is required")
	}
	acct, err := s.store.Accounts().GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if acct.Role != domain.RoleCaregiver {
		return domain.Errorf(domain.ErrValidation, "account %s has role %s, not caregiver", accountID, acct.Role)
	}
	_, err = s.store.Caregivers().GetByID(ctx, accountID)
	switch {
	case err == nil:
		return domain.Errorf(domain.ErrValidation, "account %s already has a caregiver profile", accountID)
	case errors.Is(err, domain.ErrNotFound):
		return nil
	default:
		return err
	}
}

// checkServices rejects offered services that are unknown or owned by a
// different organization.
func (s *caregiverService) checkServices(ctx context.Context, c *domain.Caregiver) error {
	for _, id := range c.ServicesOffered {
		svc, err := s.store.Services().GetByID(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Errorf(domain.ErrValidation, "unknown service %s", id)
		}
		if err != nil {
			return err
		}
		if svc.OrganizationID != nil && (c.OrganizationID == nil || *svc.OrganizationID != *c.OrganizationID) {
			return domain.Errorf(domain.ErrValidation, "service %s belongs to another organization", id)
		}
	}
	return nil
}

func (s *caregiverService) GetCaregiver(ctx context.Context, id string) (*domain.Caregiver, error) {
	return s.store.Caregivers().GetByID(ctx, id)
}

func (s *caregiverService) UpdateCaregiver(ctx context.Context, actor domain.Actor, patch *domain.Caregiver) (*domain.Caregiver, error) {
	c, err := s.store.Caregivers().GetByID(ctx, patch.ID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, c) {
		return nil, domain.Errorf(domain.ErrForbidden, "account %s may not edit caregiver %s", actor.AccountID, c.ID)
	}

	c.Name = patch.Name
	c.Location = patch.Location
	c.Phone = patch.Phone
	c.Category = patch.Category
	c.WorkType = patch.WorkType
	c.Shifts = patch.Shifts
	c.ServicesOffered = patch.ServicesOffered
	c.HourlyRate = patch.HourlyRate
	c.Experience = patch.Experience
	c.ProfileImageURL = patch.ProfileImageURL
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkServices(ctx, c); err != nil {
		return nil, err
	}
	if err := s.store.Caregivers().Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *caregiverService) SetAvailability(ctx context.Context, actor domain.Actor, id string, available bool) (*domain.Caregiver, error) {
	c, err := s.store.Caregivers().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, c) {
		return nil, domain.Errorf(domain.ErrForbidden, "account %s may not change availability of %s", actor.AccountID, id)
	}
	c.IsAvailable = available
	if err := s.store.Caregivers().Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *caregiverService) ApproveCaregiver(ctx context.Context, actor domain.Actor, id string) (Result[*domain.Caregiver], error) {
	return s.review(ctx, actor, id, func(c *domain.Caregiver) error {
		c.Approve(actor.AccountID, s.now())
		return nil
	})
}

func (s *caregiverService) RejectCaregiver(ctx context.Context, actor domain.Actor, id, reason string) (Result[*domain.Caregiver], error) {
	return s.review(ctx, actor, id, func(c *domain.Caregiver) error {
		return c.Reject(actor.AccountID, reason, s.now())
	})
}

func (s *caregiverService) review(ctx context.Context, actor domain.Actor, id string, decide func(*domain.Caregiver) error) (Result[*domain.Caregiver], error) {
	logger.EnterMethod("caregiverService.review", "actorID", actor.AccountID, "caregiverID", id)
	var res Result[*domain.Caregiver]

	c, err := s.store.Caregivers().GetByID(ctx, id)
	if err != nil {
		logger.ExitMethodWithError("caregiverService.review", err, "caregiverID", id)
		return res, err
	}
	if !canReview(actor, c) {
		err := domain.Errorf(domain.ErrForbidden, "account %s may not review caregiver %s", actor.AccountID, id)
		logger.ExitMethodWithError("caregiverService.review", err, "caregiverID", id)
		return res, err
	}
	if err := decide(c); err != nil {
		logger.ExitMethodWithError("caregiverService.review", err, "caregiverID", id)
		return res, err
	}
	if err := s.store.Caregivers().Update(ctx, c); err != nil {
		logger.ExitMethodWithError("caregiverService.review", err, "caregiverID", id)
		return res, err
	}

	bestEffort("ReviewCaregiver", "mirror_account_approval", &res.Warnings, func() error {
		return mirrorApproval(ctx, s.store.Accounts(), c.ID, c.IsApproved)
	})
	invalidateAnalytics(ctx, s.cache, "ReviewCaregiver", &res.Warnings)

	res.Value = c
	logger.ExitMethod("caregiverService.review", "caregiverID", id, "approved", c.IsApproved)
	return res, nil
}

func (s *caregiverService) DeleteCaregiver(ctx context.Context, actor domain.Actor, id string) (Result[struct{}], error) {
	logger.EnterMethod("caregiverService.DeleteCaregiver", "actorID", actor.AccountID, "caregiverID", id)
	var res Result[struct{}]

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		c, err := tx.Caregivers().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !canManage(actor, c) {
			return domain.Errorf(domain.ErrForbidden, "account %s may not delete caregiver %s", actor.AccountID, id)
		}
		active, err := tx.Bookings().CountActive(ctx, repository.BookingFilter{CaregiverID: id})
		if err != nil {
			return err
		}
		if active > 0 {
			return domain.Errorf(domain.ErrHasActiveBookings, "caregiver %s has %d active bookings", id, active)
		}
		return tx.Caregivers().Delete(ctx, id)
	})
	if err != nil {
		logger.ExitMethodWithError("caregiverService.DeleteCaregiver", err, "caregiverID", id)
		return res, err
	}

	bestEffort("DeleteCaregiver", "delete_account", &res.Warnings, func() error {
		return s.store.Accounts().Delete(ctx, id)
	})
	invalidateAnalytics(ctx, s.cache, "DeleteCaregiver", &res.Warnings)

	logger.ExitMethod("caregiverService.DeleteCaregiver", "caregiverID", id)
	return res, nil
}

func (s *caregiverService) ListPublicCaregivers(ctx context.Context, category domain.Category, serviceID string) ([]domain.Caregiver, error) {
	if category != "" && !category.Valid() {
		return nil, domain.Errorf(domain.ErrValidation, "invalid category %q", category)
	}
	return s.store.Caregivers().List(ctx, repository.CaregiverFilter{
		ListableOnly: true,
		Category:     category,
		ServiceID:    serviceID,
	})
}

func (s *caregiverService) ListOrganizationCaregivers(ctx context.Context, actor domain.Actor, orgID string) ([]domain.Caregiver, error) {
	if !actor.IsSuperAdmin() && !actor.AdministersOrg(&orgID) {
		return nil, domain.Errorf(domain.ErrForbidden, "account %s may not list caregivers of %s", actor.AccountID, orgID)
	}
	return s.store.Caregivers().List(ctx, repository.CaregiverFilter{OrganizationID: &orgID})
}
