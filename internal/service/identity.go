package service

import (
	"context"
	"errors"
	"strings"

	"carehub-backend/internal/domain"
	"carehub-backend/internal/logger"
	"carehub-backend/internal/repository"
)

type identityService struct {
	store repository.Store
	now   clock
}

func NewIdentityService(store repository.Store) IdentityService {
	return &identityService{store: store, now: utcNow}
}

func (s *identityService) ResolveAccount(ctx context.Context, principalID string) (*domain.Account, error) {
	account, err := s.store.Accounts().GetByID(ctx, principalID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Errorf(domain.ErrProfileMissing, "principal %s has no account profile", principalID)
	}
	return account, err
}

func (s *identityService) Actor(ctx context.Context, principalID string) (domain.Actor, error) {
	account, err := s.ResolveAccount(ctx, principalID)
	if err != nil {
		return domain.Actor{}, err
	}
	if account.IsSuspended {
		return domain.Actor{}, domain.Errorf(domain.ErrForbidden, "account %s is suspended", account.ID)
	}
	return account.Actor(), nil
}

func (s *identityService) RegisterAccount(ctx context.Context, principalID, email string, role domain.Role) (*domain.Account, error) {
	logger.EnterMethod("identityService.RegisterAccount", "principalID", principalID, "role", role)

	if !role.Valid() {
		err := domain.Errorf(domain.ErrValidation, "unknown role %q", role)
		logger.ExitMethodWithError("identityService.RegisterAccount", err, "principalID", principalID)
		return nil, err
	}
	if !role.SelfAssignable() {
		err := domain.Errorf(domain.ErrForbidden, "role %s cannot be self-assigned", role)
		logger.ExitMethodWithError("identityService.RegisterAccount", err, "principalID", principalID)
		return nil, err
	}

	now := s.now()
	account := &domain.Account{
		ID:    principalID,
		Email: strings.TrimSpace(email),
		Role:  role,
		// caregivers and organizations wait for review; customers do not
		IsApproved:      role == domain.RoleCustomer,
		ProfileComplete: role == domain.RoleCustomer,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Accounts().Create(ctx, account); err != nil {
		logger.ExitMethodWithError("identityService.RegisterAccount", err, "principalID", principalID)
		return nil, err
	}

	logger.ExitMethod("identityService.RegisterAccount", "principalID", principalID, "role", role)
	return account, nil
}

// CreateFirstSuperAdminIfNeeded promotes or creates the principal's account as
// the first super admin. The count check and the write share one transaction
// holding the bootstrap lock, so concurrent callers create at most one.
func (s *identityService) CreateFirstSuperAdminIfNeeded(ctx context.Context, principalID, email string) (*domain.Account, bool, error) {
	logger.EnterMethod("identityService.CreateFirstSuperAdminIfNeeded", "principalID", principalID)

	var (
		account *domain.Account
		created bool
	)
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Accounts().LockBootstrap(ctx); err != nil {
			return err
		}
		n, err := tx.Accounts().CountByRole(ctx, domain.RoleSuperAdmin)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		account, err = s.grantSuperAdmin(ctx, tx, principalID, email)
		created = err == nil
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("identityService.CreateFirstSuperAdminIfNeeded", err, "principalID", principalID)
		return nil, false, err
	}

	logger.ExitMethod("identityService.CreateFirstSuperAdminIfNeeded", "principalID", principalID, "created", created)
	return account, created, nil
}

func (s *identityService) CreateSuperAdmin(ctx context.Context, actor domain.Actor, principalID, email string) (*domain.Account, error) {
	if !actor.IsSuperAdmin() {
		return nil, domain.Errorf(domain.ErrForbidden, "only a super admin can create super admins")
	}
	if strings.TrimSpace(principalID) == "" {
		return nil, domain.Errorf(domain.ErrValidation, "principal id is required")
	}

	var account *domain.Account
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		account, err = s.grantSuperAdmin(ctx, tx, principalID, email)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Super admin created", "by", actor.AccountID, "accountID", account.ID)
	return account, nil
}

// grantSuperAdmin creates the account or promotes an existing one.
func (s *identityService) grantSuperAdmin(ctx context.Context, tx repository.Store, principalID, email string) (*domain.Account, error) {
	now := s.now()
	account, err := tx.Accounts().GetByID(ctx, principalID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		account = &domain.Account{
			ID:              principalID,
			Email:           strings.TrimSpace(email),
			Role:            domain.RoleSuperAdmin,
			IsApproved:      true,
			ProfileComplete: true,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		return account, tx.Accounts().Create(ctx, account)
	case err != nil:
		return nil, err
	}

	if err := refuseLinkedProfile(ctx, tx, account); err != nil {
		return nil, err
	}
	account.Role = domain.RoleSuperAdmin
	account.IsApproved = true
	account.ProfileComplete = true
	if email = strings.TrimSpace(email); email != "" {
		account.Email = email
	}
	return account, tx.Accounts().Update(ctx, account)
}

// refuseLinkedProfile keeps caregiver and organization profiles from losing
// the account that operates them.
func refuseLinkedProfile(ctx context.Context, tx repository.Store, account *domain.Account) error {
	var err error
	switch account.Role {
	case domain.RoleCaregiver:
		_, err = tx.Caregivers().GetByID(ctx, account.ID)
	case domain.RoleOrgAdmin:
		_, err = tx.Organizations().GetByID(ctx, account.ID)
	default:
		return nil
	}
	switch {
	case err == nil:
		return domain.Errorf(domain.ErrValidation, "account %s operates a %s profile and cannot become super admin", account.ID, account.Role)
	case errors.Is(err, domain.ErrNotFound):
		return nil
	default:
		return err
	}
}

func (s *identityService) DeleteSuperAdmin(ctx context.Context, actor domain.Actor, id string) error {
	if !actor.IsSuperAdmin() {
		return domain.Errorf(domain.ErrForbidden, "only a super admin can delete super admins")
	}

	return s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Accounts().LockBootstrap(ctx); err != nil {
			return err
		}
		account, err := tx.Accounts().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if account.Role != domain.RoleSuperAdmin {
			return domain.Errorf(domain.ErrValidation, "account %s is not a super admin", id)
		}
		n, err := tx.Accounts().CountByRole(ctx, domain.RoleSuperAdmin)
		if err != nil {
			return err
		}
		if n <= 1 {
			return domain.Errorf(domain.ErrValidation, "cannot delete the last super admin")
		}
		return tx.Accounts().Delete(ctx, id)
	})
}
