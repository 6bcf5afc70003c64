package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"carehub-backend/internal/domain"
	"carehub-backend/internal/repository"

	"github.com/lib/pq"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db   *sql.DB
	inTx bool

	accounts      repository.AccountRepository
	organizations repository.OrganizationRepository
	caregivers    repository.CaregiverRepository
	services      repository.ServiceRepository
	bookings      repository.BookingRepository
	payments      repository.PaymentRepository
	blacklist     repository.BlacklistRepository
	settings      repository.SettingsRepository
}

func NewStore(db *sql.DB) *Store {
	return newStore(db, db, false)
}

func newStore(db *sql.DB, q dbtx, inTx bool) *Store {
	return &Store{
		db:            db,
		inTx:          inTx,
		accounts:      &accountRepository{db: q},
		organizations: &organizationRepository{db: q},
		caregivers:    &caregiverRepository{db: q},
		services:      &serviceRepository{db: q},
		bookings:      &bookingRepository{db: q},
		payments:      &paymentRepository{db: q},
		blacklist:     &blacklistRepository{db: q},
		settings:      &settingsRepository{db: q},
	}
}

func (s *Store) Accounts() repository.AccountRepository           { return s.accounts }
func (s *Store) Organizations() repository.OrganizationRepository { return s.organizations }
func (s *Store) Caregivers() repository.CaregiverRepository       { return s.caregivers }
func (s *Store) Services() repository.ServiceRepository           { return s.services }
func (s *Store) Bookings() repository.BookingRepository           { return s.bookings }
func (s *Store) Payments() repository.PaymentRepository           { return s.payments }
func (s *Store) Blacklist() repository.BlacklistRepository        { return s.blacklist }
func (s *Store) Settings() repository.SettingsRepository          { return s.settings }

// InTx runs fn inside one database transaction. Nested calls join the
// outer transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx repository.Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(newStore(s.db, tx, true)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Errorf(domain.ErrNotFound, "%s %s not found", what, id)
	}
	return err
}

// expectRow maps a zero-row update or delete to ErrNotFound.
func expectRow(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.Errorf(domain.ErrNotFound, "%s %s not found", what, id)
	}
	return nil
}

func textArray(values []string) any {
	if values == nil {
		values = []string{}
	}
	return pq.Array(values)
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
