package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"carehub-backend/internal/domain"
	"carehub-backend/internal/repository"
)

const (
	reportColumns = `id, booking_id, user_id, subject_id, subject_type, organization_id, reported_by, reason, description,
	status, reviewed_by, reviewed_at, created_at`
	entryColumns = `id, subject_id, subject_type, organization_id, reason, description, source, report_id, cascade_org_id,
	added_at, approved_by`
)

type blacklistRepository struct {
	db dbtx
}

func scanReport(s scanner, rp *domain.Report) error {
	return s.Scan(&rp.ID, &rp.BookingID, &rp.UserID, &rp.SubjectID, &rp.SubjectType, &rp.OrganizationID, &rp.ReportedBy,
		&rp.Reason, &rp.Description, &rp.Status, &rp.ReviewedBy, &rp.ReviewedAt, &rp.CreatedAt)
}

func scanEntry(s scanner, e *domain.BlacklistEntry) error {
	return s.Scan(&e.ID, &e.SubjectID, &e.SubjectType, &e.OrganizationID, &e.Reason, &e.Description, &e.Source,
		&e.ReportID, &e.CascadeOrgID, &e.AddedAt, &e.ApprovedBy)
}

func (r *blacklistRepository) CreateReport(ctx context.Context, rp *domain.Report) error {
	rp.CreatedAt = time.Now().UTC()
	query := `INSERT INTO blacklist_reports (id, booking_id, user_id, subject_id, subject_type, organization_id, reported_by,
	          reason, description, status, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.ExecContext(ctx, query, rp.ID, rp.BookingID, rp.UserID, rp.SubjectID, rp.SubjectType,
		nullable(rp.OrganizationID), rp.ReportedBy, rp.Reason, rp.Description, rp.Status, rp.CreatedAt)
	return err
}

func (r *blacklistRepository) GetReport(ctx context.Context, id string) (*domain.Report, error) {
	rp := &domain.Report{}
	if err := scanReport(r.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM blacklist_reports WHERE id = $1`, id), rp); err != nil {
		return nil, notFound(err, "report", id)
	}
	return rp, nil
}

// UpdateReport only moves a report out of pending; a second adjudication
// finds no row and is a conflict.
func (r *blacklistRepository) UpdateReport(ctx context.Context, rp *domain.Report) error {
	query := `UPDATE blacklist_reports SET status=$1, reviewed_by=$2, reviewed_at=$3 WHERE id=$4 AND status='pending'`
	res, err := r.db.ExecContext(ctx, query, rp.Status, rp.ReviewedBy, rp.ReviewedAt, rp.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.Errorf(domain.ErrConflict, "report %s is no longer pending", rp.ID)
	}
	return nil
}

func (r *blacklistRepository) ListReports(ctx context.Context, f repository.ReportFilter) ([]domain.Report, error) {
	var conds []string
	var args []any
	if f.OrganizationID != nil {
		args = append(args, *f.OrganizationID)
		conds = append(conds, fmt.Sprintf("organization_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	query := `SELECT ` + reportColumns + ` FROM blacklist_reports`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []domain.Report
	for rows.Next() {
		var rp domain.Report
		if err := scanReport(rows, &rp); err != nil {
			return nil, err
		}
		reports = append(reports, rp)
	}
	return reports, rows.Err()
}

func (r *blacklistRepository) AddEntry(ctx context.Context, e *domain.BlacklistEntry) (bool, error) {
	if e.AddedAt.IsZero() {
		e.AddedAt = time.Now().UTC()
	}
	query := `INSERT INTO blacklist_entries (id, subject_id, subject_type, organization_id, reason, description, source,
	          report_id, cascade_org_id, added_at, approved_by) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	          ON CONFLICT (subject_id, cascade_org_id) WHERE cascade_org_id IS NOT NULL DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, e.ID, e.SubjectID, e.SubjectType, nullable(e.OrganizationID), e.Reason,
		e.Description, e.Source, nullable(e.ReportID), nullable(e.CascadeOrgID), e.AddedAt, e.ApprovedBy)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *blacklistRepository) GetEntry(ctx context.Context, id string) (*domain.BlacklistEntry, error) {
	e := &domain.BlacklistEntry{}
	if err := scanEntry(r.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM blacklist_entries WHERE id = $1`, id), e); err != nil {
		return nil, notFound(err, "blacklist entry", id)
	}
	return e, nil
}

func (r *blacklistRepository) DeleteEntry(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM blacklist_entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectRow(res, "blacklist entry", id)
}

func (r *blacklistRepository) DeleteCascadeEntries(ctx context.Context, orgID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `DELETE FROM blacklist_entries WHERE cascade_org_id = $1 RETURNING subject_id`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		subjects = append(subjects, id)
	}
	return subjects, rows.Err()
}

func (r *blacklistRepository) ListEntries(ctx context.Context, f repository.EntryFilter) ([]domain.BlacklistEntry, error) {
	var conds []string
	var args []any
	if f.OrganizationID != nil {
		args = append(args, *f.OrganizationID)
		conds = append(conds, fmt.Sprintf("organization_id = $%d", len(args)))
	}
	if f.SubjectType != "" {
		args = append(args, f.SubjectType)
		conds = append(conds, fmt.Sprintf("subject_type = $%d", len(args)))
	}
	if f.SubjectID != "" {
		args = append(args, f.SubjectID)
		conds = append(conds, fmt.Sprintf("subject_id = $%d", len(args)))
	}
	query := `SELECT ` + entryColumns + ` FROM blacklist_entries`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY added_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.BlacklistEntry
	for rows.Next() {
		var e domain.BlacklistEntry
		if err := scanEntry(rows, &e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *blacklistRepository) CountEntries(ctx context.Context, subjectType domain.SubjectType, subjectID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM blacklist_entries WHERE subject_type = $1 AND subject_id = $2`, subjectType, subjectID).Scan(&n)
	return n, err
}
