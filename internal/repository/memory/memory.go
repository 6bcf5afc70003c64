// Package memory is an in-process repository.Store. Transactions take the
// store-wide lock and restore a snapshot when fn fails, so they are
// serializable.
package memory

import (
	"context"
	"maps"
	"sync"

	"carehub-backend/internal/domain"
	"carehub-backend/internal/repository"

	"github.com/shopspring/decimal"
)

type state struct {
	accounts      map[string]domain.Account
	organizations map[string]domain.Organization
	caregivers    map[string]domain.Caregiver
	services      map[string]domain.Service
	bookings      map[string]domain.Booking
	intents       map[string]domain.PaymentIntent
	reports       map[string]domain.Report
	entries       map[string]domain.BlacklistEntry
	commission    *decimal.Decimal
}

func newState() *state {
	return &state{
		accounts:      map[string]domain.Account{},
		organizations: map[string]domain.Organization{},
		caregivers:    map[string]domain.Caregiver{},
		services:      map[string]domain.Service{},
		bookings:      map[string]domain.Booking{},
		intents:       map[string]domain.PaymentIntent{},
		reports:       map[string]domain.Report{},
		entries:       map[string]domain.BlacklistEntry{},
	}
}

// clone copies the maps. Stored values are replaced, never mutated in place,
// so a shallow copy is a full snapshot.
func (s *state) clone() *state {
	return &state{
		accounts:      maps.Clone(s.accounts),
		organizations: maps.Clone(s.organizations),
		caregivers:    maps.Clone(s.caregivers),
		services:      maps.Clone(s.services),
		bookings:      maps.Clone(s.bookings),
		intents:       maps.Clone(s.intents),
		reports:       maps.Clone(s.reports),
		entries:       maps.Clone(s.entries),
		commission:    s.commission,
	}
}

type database struct {
	mu sync.Mutex
	st *state
}

type Store struct {
	db   *database
	inTx bool
}

func NewStore() *Store {
	return &Store{db: &database{st: newState()}}
}

// lock takes the store lock unless the caller already holds it through InTx.
func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.db.mu.Lock()
	return s.db.mu.Unlock
}

func (s *Store) Accounts() repository.AccountRepository           { return accountRepository{s} }
func (s *Store) Organizations() repository.OrganizationRepository { return organizationRepository{s} }
func (s *Store) Caregivers() repository.CaregiverRepository       { return caregiverRepository{s} }
func (s *Store) Services() repository.ServiceRepository           { return serviceRepository{s} }
func (s *Store) Bookings() repository.BookingRepository           { return bookingRepository{s} }
func (s *Store) Payments() repository.PaymentRepository           { return paymentRepository{s} }
func (s *Store) Blacklist() repository.BlacklistRepository        { return blacklistRepository{s} }
func (s *Store) Settings() repository.SettingsRepository          { return settingsRepository{s} }

func (s *Store) InTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	snapshot := s.db.st.clone()
	committed := false
	defer func() {
		if !committed {
			s.db.st = snapshot
		}
	}()

	if err := fn(&Store{db: s.db, inTx: true}); err != nil {
		return err
	}
	committed = true
	return nil
}
