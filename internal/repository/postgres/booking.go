package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"carehub-backend/internal/domain"
	"carehub-backend/internal/logger"
	"carehub-backend/internal/repository"
)

const bookingColumns = `id, user_id, caregiver_id, organization_id, service_id, booking_date, booking_time, duration_hours,
	address, notes, status, hourly_rate, commission_rate, total_amount, platform_commission, vendor_earnings, payment_method,
	payment_status, payment_reference, earnings_accrued, cancelled_by, version, created_at, updated_at, completed_at, cancelled_at`

type bookingRepository struct {
	db dbtx
}

func scanBooking(s scanner, b *domain.Booking) error {
	return s.Scan(&b.ID, &b.UserID, &b.CaregiverID, &b.OrganizationID, &b.ServiceID, &b.Date, &b.Time, &b.DurationHours,
		&b.Address, &b.Notes, &b.Status, &b.HourlyRate, &b.CommissionRate, &b.TotalAmount, &b.PlatformCommission,
		&b.VendorEarnings, &b.PaymentMethod, &b.PaymentStatus, &b.PaymentReference, &b.EarningsAccrued, &b.CancelledBy,
		&b.Version, &b.CreatedAt, &b.UpdatedAt, &b.CompletedAt, &b.CancelledAt)
}

func (r *bookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	logger.EnterMethod("bookingRepository.Create", "bookingID", b.ID, "caregiverID", b.CaregiverID)

	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	if b.Version == 0 {
		b.Version = 1
	}
	query := `INSERT INTO bookings (id, user_id, caregiver_id, organization_id, service_id, booking_date, booking_time,
	          duration_hours, address, notes, status, hourly_rate, commission_rate, total_amount, platform_commission,
	          vendor_earnings, payment_method, payment_status, payment_reference, earnings_accrued, version, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`
	logger.DatabaseCall("insert", query, "bookingID", b.ID)
	_, err := r.db.ExecContext(ctx, query, b.ID, b.UserID, b.CaregiverID, nullable(b.OrganizationID), b.ServiceID, b.Date,
		b.Time, b.DurationHours, b.Address, b.Notes, b.Status, b.HourlyRate, b.CommissionRate, b.TotalAmount,
		b.PlatformCommission, b.VendorEarnings, b.PaymentMethod, b.PaymentStatus, b.PaymentReference, b.EarningsAccrued,
		b.Version, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		logger.ExitMethodWithError("bookingRepository.Create", err, "bookingID", b.ID)
		return err
	}

	logger.ExitMethod("bookingRepository.Create", "bookingID", b.ID)
	return nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	b := &domain.Booking{}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	if err := scanBooking(r.db.QueryRowContext(ctx, query, id), b); err != nil {
		return nil, notFound(err, "booking", id)
	}
	return b, nil
}

// Update is a compare-and-swap on the version column. Only mutable lifecycle
// fields are written; the amounts fixed at creation are never touched.
func (r *bookingRepository) Update(ctx context.Context, b *domain.Booking) error {
	logger.EnterMethod("bookingRepository.Update", "bookingID", b.ID, "status", b.Status, "version", b.Version)

	query := `UPDATE bookings SET status=$1, payment_status=$2, payment_reference=$3, earnings_accrued=$4, cancelled_by=$5,
	          completed_at=$6, cancelled_at=$7, updated_at=$8, version = version + 1
	          WHERE id=$9 AND version=$10`
	logger.DatabaseCall("update", query, "bookingID", b.ID)
	res, err := r.db.ExecContext(ctx, query, b.Status, b.PaymentStatus, b.PaymentReference, b.EarningsAccrued, b.CancelledBy,
		b.CompletedAt, b.CancelledAt, b.UpdatedAt, b.ID, b.Version)
	if err != nil {
		logger.ExitMethodWithError("bookingRepository.Update", err, "bookingID", b.ID)
		return err
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult("update", n, err, "bookingID", b.ID)
	if err != nil {
		return err
	}
	if n == 0 {
		err = domain.Errorf(domain.ErrConflict, "booking %s was modified concurrently", b.ID)
		logger.ExitMethodWithError("bookingRepository.Update", err, "bookingID", b.ID)
		return err
	}

	b.Version++
	logger.ExitMethod("bookingRepository.Update", "bookingID", b.ID, "version", b.Version)
	return nil
}

func bookingConditions(f repository.BookingFilter, withStatus bool) (string, []any) {
	var conds []string
	var args []any
	add := func(expr string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}
	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if f.CaregiverID != "" {
		add("caregiver_id = $%d", f.CaregiverID)
	}
	if f.OrganizationID != "" {
		add("organization_id = $%d", f.OrganizationID)
	}
	if withStatus && f.Status != "" {
		add("status = $%d", f.Status)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *bookingRepository) List(ctx context.Context, f repository.BookingFilter) ([]domain.Booking, int, error) {
	where, args := bookingConditions(f, true)

	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM bookings`+where, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	page, pageSize := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	query := `SELECT ` + bookingColumns + ` FROM bookings` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, 0, err
		}
		bookings = append(bookings, b)
	}
	return bookings, count, rows.Err()
}

func (r *bookingRepository) CountActive(ctx context.Context, f repository.BookingFilter) (int, error) {
	where, args := bookingConditions(f, false)
	if where == "" {
		where = " WHERE status IN ('pending', 'accepted')"
	} else {
		where += " AND status IN ('pending', 'accepted')"
	}
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM bookings`+where, args...).Scan(&n)
	return n, err
}

// ForEach streams matching bookings in creation order without paging.
func (r *bookingRepository) ForEach(ctx context.Context, f repository.BookingFilter, fn func(*domain.Booking) error) error {
	where, args := bookingConditions(f, true)
	rows, err := r.db.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings`+where+` ORDER BY created_at`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var b domain.Booking
		if err := scanBooking(rows, &b); err != nil {
			return err
		}
		if err := fn(&b); err != nil {
			return err
		}
	}
	return rows.Err()
}
