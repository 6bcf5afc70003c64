package postgres

import (
	"context"
	"time"

	"carehub-backend/internal/domain"
)

type serviceRepository struct {
	db dbtx
}

func (r *serviceRepository) Create(ctx context.Context, s *domain.Service) error {
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	query := `INSERT INTO services (id, label, category, organization_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query, s.ID, s.Label, s.Category, nullable(s.OrganizationID), s.CreatedAt, s.UpdatedAt)
	return err
}

func (r *serviceRepository) GetByID(ctx context.Context, id string) (*domain.Service, error) {
	s := &domain.Service{}
	query := `SELECT id, label, category, organization_id, created_at, updated_at FROM services WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.Label, &s.Category, &s.OrganizationID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "service", id)
	}
	return s, nil
}

func (r *serviceRepository) Update(ctx context.Context, s *domain.Service) error {
	s.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `UPDATE services SET label=$1, category=$2, updated_at=$3 WHERE id=$4`, s.Label, s.Category, s.UpdatedAt, s.ID)
	if err != nil {
		return err
	}
	return expectRow(res, "service", s.ID)
}

func (r *serviceRepository) List(ctx context.Context, orgID *string) ([]domain.Service, error) {
	query := `SELECT id, label, category, organization_id, created_at, updated_at FROM services
	          WHERE organization_id IS NULL OR organization_id = $1 ORDER BY label`
	rows, err := r.db.QueryContext(ctx, query, nullable(orgID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []domain.Service
	for rows.Next() {
		var s domain.Service
		if err := rows.Scan(&s.ID, &s.Label, &s.Category, &s.OrganizationID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		services = append(services, s)
	}
	return services, rows.Err()
}
