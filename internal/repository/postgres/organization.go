package postgres

import (
	"context"
	"database/sql"
	"time"

	"carehub-backend/internal/domain"
	"carehub-backend/internal/repository"
)

const organizationColumns = `o.id, o.name, o.admin_name, o.admin_email, o.business_phone, o.business_address, o.business_city,
	o.commission_rate, o.is_approved, o.rejection_reason, o.reviewed_by, o.reviewed_at, o.is_blacklisted, o.cascade_pending,
	(SELECT count(*) FROM caregivers c WHERE c.organization_id = o.id), o.total_bookings, o.total_earnings, o.created_at, o.updated_at`

type organizationRepository struct {
	db dbtx
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrganization(s scanner, o *domain.Organization) error {
	return s.Scan(&o.ID, &o.Name, &o.AdminName, &o.AdminEmail, &o.BusinessPhone, &o.BusinessAddress, &o.BusinessCity,
		&o.CommissionRate, &o.IsApproved, &o.RejectionReason, &o.ReviewedBy, &o.ReviewedAt, &o.IsBlacklisted, &o.CascadePending,
		&o.TotalCaregivers, &o.TotalBookings, &o.TotalEarnings, &o.CreatedAt, &o.UpdatedAt)
}

func (r *organizationRepository) Create(ctx context.Context, o *domain.Organization) error {
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now
	query := `INSERT INTO organizations (id, name, admin_name, admin_email, business_phone, business_address, business_city,
	          commission_rate, is_approved, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.ExecContext(ctx, query, o.ID, o.Name, o.AdminName, o.AdminEmail, o.BusinessPhone, o.BusinessAddress, o.BusinessCity,
		o.CommissionRate, o.IsApproved, o.CreatedAt, o.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.Errorf(domain.ErrConflict, "organization %s already exists", o.ID)
	}
	return err
}

func (r *organizationRepository) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	o := &domain.Organization{}
	query := `SELECT ` + organizationColumns + ` FROM organizations o WHERE o.id = $1`
	if err := scanOrganization(r.db.QueryRowContext(ctx, query, id), o); err != nil {
		return nil, notFound(err, "organization", id)
	}
	return o, nil
}

func (r *organizationRepository) List(ctx context.Context, filter repository.OrganizationFilter) ([]domain.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations o`
	if filter.ApprovedOnly {
		query += ` WHERE o.is_approved AND NOT o.is_blacklisted`
	}
	query += ` ORDER BY o.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return collectOrganizations(rows)
}

func (r *organizationRepository) ListCascadePending(ctx context.Context) ([]domain.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations o WHERE o.cascade_pending ORDER BY o.updated_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return collectOrganizations(rows)
}

func collectOrganizations(rows *sql.Rows) ([]domain.Organization, error) {
	defer rows.Close()
	var orgs []domain.Organization
	for rows.Next() {
		var o domain.Organization
		if err := scanOrganization(rows, &o); err != nil {
			return nil, err
		}
		orgs = append(orgs, o)
	}
	return orgs, rows.Err()
}

func (r *organizationRepository) Update(ctx context.Context, o *domain.Organization) error {
	o.UpdatedAt = time.Now().UTC()
	query := `UPDATE organizations SET name=$1, admin_name=$2, admin_email=$3, business_phone=$4, business_address=$5, business_city=$6,
	          commission_rate=$7, is_approved=$8, rejection_reason=$9, reviewed_by=$10, reviewed_at=$11, is_blacklisted=$12,
	          cascade_pending=$13, updated_at=$14 WHERE id=$15`
	res, err := r.db.ExecContext(ctx, query, o.Name, o.AdminName, o.AdminEmail, o.BusinessPhone, o.BusinessAddress, o.BusinessCity,
		o.CommissionRate, o.IsApproved, o.RejectionReason, o.ReviewedBy, o.ReviewedAt, o.IsBlacklisted,
		o.CascadePending, o.UpdatedAt, o.ID)
	if err != nil {
		return err
	}
	return expectRow(res, "organization", o.ID)
}

func (r *organizationRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectRow(res, "organization", id)
}

func (r *organizationRepository) AddCounters(ctx context.Context, id string, bookings int, earnings int64) error {
	query := `UPDATE organizations SET total_bookings = total_bookings + $1, total_earnings = total_earnings + $2, updated_at = $3 WHERE id = $4`
	res, err := r.db.ExecContext(ctx, query, bookings, earnings, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return expectRow(res, "organization", id)
}
