package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"carehub-backend/internal/domain"
	"carehub-backend/internal/repository"

	"github.com/lib/pq"
)

const caregiverColumns = `id, name, location, phone, category, work_type, shifts, services_offered, hourly_rate, experience,
	profile_image_url, is_available, is_approved, rejection_reason, reviewed_by, reviewed_at, is_suspended, is_blacklisted,
	organization_id, rating, jobs_completed, total_earnings, pending_earnings, created_at, updated_at`

type caregiverRepository struct {
	db dbtx
}

func scanCaregiver(s scanner, c *domain.Caregiver) error {
	return s.Scan(&c.ID, &c.Name, &c.Location, &c.Phone, &c.Category, &c.WorkType, pq.Array(&c.Shifts), pq.Array(&c.ServicesOffered),
		&c.HourlyRate, &c.Experience, &c.ProfileImageURL, &c.IsAvailable, &c.IsApproved, &c.RejectionReason, &c.ReviewedBy,
		&c.ReviewedAt, &c.IsSuspended, &c.IsBlacklisted, &c.OrganizationID, &c.Rating, &c.JobsCompleted, &c.TotalEarnings,
		&c.PendingEarnings, &c.CreatedAt, &c.UpdatedAt)
}

func (r *caregiverRepository) Create(ctx context.Context, c *domain.Caregiver) error {
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	query := `INSERT INTO caregivers (id, name, location, phone, category, work_type, shifts, services_offered, hourly_rate,
	          experience, profile_image_url, is_available, is_approved, organization_id, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.db.ExecContext(ctx, query, c.ID, c.Name, c.Location, c.Phone, c.Category, c.WorkType, textArray(c.Shifts),
		textArray(c.ServicesOffered), c.HourlyRate, c.Experience, c.ProfileImageURL, c.IsAvailable, c.IsApproved,
		nullable(c.OrganizationID), c.CreatedAt, c.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.Errorf(domain.ErrConflict, "caregiver %s already exists", c.ID)
	}
	return err
}

func (r *caregiverRepository) GetByID(ctx context.Context, id string) (*domain.Caregiver, error) {
	c := &domain.Caregiver{}
	query := `SELECT ` + caregiverColumns + ` FROM caregivers WHERE id = $1`
	if err := scanCaregiver(r.db.QueryRowContext(ctx, query, id), c); err != nil {
		return nil, notFound(err, "caregiver", id)
	}
	return c, nil
}

func (r *caregiverRepository) List(ctx context.Context, filter repository.CaregiverFilter) ([]domain.Caregiver, error) {
	var conds []string
	var args []any
	if filter.OrganizationID != nil {
		args = append(args, *filter.OrganizationID)
		conds = append(conds, fmt.Sprintf("organization_id = $%d", len(args)))
	}
	if filter.ListableOnly {
		conds = append(conds, "is_approved AND NOT is_suspended AND NOT is_blacklisted AND is_available",
			"(organization_id IS NULL OR organization_id NOT IN (SELECT o.id FROM organizations o WHERE o.is_blacklisted))")
	}
	if filter.Category != "" && filter.Category != domain.CategoryBoth {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("category IN ($%d, 'both')", len(args)))
	}
	if filter.ServiceID != "" {
		args = append(args, filter.ServiceID)
		conds = append(conds, fmt.Sprintf("$%d = ANY(services_offered)", len(args)))
	}

	query := `SELECT ` + caregiverColumns + ` FROM caregivers`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY rating DESC, created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var caregivers []domain.Caregiver
	for rows.Next() {
		var c domain.Caregiver
		if err := scanCaregiver(rows, &c); err != nil {
			return nil, err
		}
		caregivers = append(caregivers, c)
	}
	return caregivers, rows.Err()
}

// Update writes profile, approval and availability fields. Counters and
// moderation flags have their own statements.
func (r *caregiverRepository) Update(ctx context.Context, c *domain.Caregiver) error {
	c.UpdatedAt = time.Now().UTC()
	query := `UPDATE caregivers SET name=$1, location=$2, phone=$3, category=$4, work_type=$5, shifts=$6, services_offered=$7,
	          hourly_rate=$8, experience=$9, profile_image_url=$10, is_available=$11, is_approved=$12, rejection_reason=$13,
	          reviewed_by=$14, reviewed_at=$15, organization_id=$16, updated_at=$17 WHERE id=$18`
	res, err := r.db.ExecContext(ctx, query, c.Name, c.Location, c.Phone, c.Category, c.WorkType, textArray(c.Shifts),
		textArray(c.ServicesOffered), c.HourlyRate, c.Experience, c.ProfileImageURL, c.IsAvailable, c.IsApproved,
		c.RejectionReason, c.ReviewedBy, c.ReviewedAt, nullable(c.OrganizationID), c.UpdatedAt, c.ID)
	if err != nil {
		return err
	}
	return expectRow(res, "caregiver", c.ID)
}

func (r *caregiverRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM caregivers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectRow(res, "caregiver", id)
}

func (r *caregiverRepository) ApplyEarnings(ctx context.Context, id string, d domain.EarningsDelta) error {
	query := `UPDATE caregivers SET jobs_completed = jobs_completed + $1, total_earnings = total_earnings + $2,
	          pending_earnings = pending_earnings + $3, updated_at = $4 WHERE id = $5`
	res, err := r.db.ExecContext(ctx, query, d.JobsCompleted, d.TotalEarnings, d.PendingEarnings, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return expectRow(res, "caregiver", id)
}

func (r *caregiverRepository) SetBalance(ctx context.Context, id string, b domain.Balance) error {
	query := `UPDATE caregivers SET jobs_completed = $1, total_earnings = $2, pending_earnings = $3, updated_at = $4 WHERE id = $5`
	res, err := r.db.ExecContext(ctx, query, b.JobsCompleted, b.TotalEarnings, b.PendingEarnings, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return expectRow(res, "caregiver", id)
}

func (r *caregiverRepository) SetModeration(ctx context.Context, id string, blacklisted, suspended bool) error {
	query := `UPDATE caregivers SET is_blacklisted = $1, is_suspended = $2, updated_at = $3 WHERE id = $4`
	res, err := r.db.ExecContext(ctx, query, blacklisted, suspended, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return expectRow(res, "caregiver", id)
}
