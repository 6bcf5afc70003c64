package service

import (
	"context"

	"carehub-backend/internal/domain"
	"carehub-backend/internal/repository"
)

type catalogService struct {
	store repository.Store
	now   clock
}

func NewCatalogService(store repository.Store) CatalogService {
	return &catalogService{store: store, now: utcNow}
}

// CreateService adds a catalog entry. Super admins create global entries
// unless they name an organization; organization admins always create
// entries owned by their organization.
func (s *catalogService) CreateService(ctx context.Context, actor domain.Actor, svc *domain.Service) (*domain.Service, error) {
	created := *svc
	switch {
	case actor.IsSuperAdmin():
		if created.OrganizationID != nil {
			if _, err := s.store.Organizations().GetByID(ctx, *created.OrganizationID); err != nil {
				return nil, err
			}
		}
	case actor.Role == domain.RoleOrgAdmin:
		orgID := actor.AccountID
		created.OrganizationID = &orgID
	default:
		return nil, domain.Errorf(domain.ErrForbidden, "account %s may not create services", actor.AccountID)
	}
	if err := created.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	created.ID = newID()
	created.CreatedAt, created.UpdatedAt = now, now
	if err := s.store.Services().Create(ctx, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateService edits label and category; ownership never changes.
func (s *catalogService) UpdateService(ctx context.Context, actor domain.Actor, patch *domain.Service) (*domain.Service, error) {
	svc, err := s.store.Services().GetByID(ctx, patch.ID)
	if err != nil {
		return nil, err
	}
	if !actor.IsSuperAdmin() && !actor.AdministersOrg(svc.OrganizationID) {
		return nil, domain.Errorf(domain.ErrForbidden, "account %s may not edit service %s", actor.AccountID, svc.ID)
	}
	svc.Label = patch.Label
	svc.Category = patch.Category
	if err := svc.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Services().Update(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *catalogService) ListServices(ctx context.Context, orgID *string) ([]domain.Service, error) {
	return s.store.Services().List(ctx, orgID)
}
