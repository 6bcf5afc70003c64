package service

import (
	"context"

	"carehub-backend/internal/domain"
	"carehub-backend/internal/repository"

	"github.com/stretchr/testify/mock"
)

// MockAccountRepo
type MockAccountRepo struct {
	mock.Mock
}

func (m *MockAccountRepo) Create(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}
func (m *MockAccountRepo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockAccountRepo) Update(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}
func (m *MockAccountRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockAccountRepo) CountByRole(ctx context.Context, role domain.Role) (int, error) {
	args := m.Called(ctx, role)
	return args.Int(0), args.Error(1)
}
func (m *MockAccountRepo) LockBootstrap(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockBookingRepo
type MockBookingRepo struct {
	mock.Mock
}

func (m *MockBookingRepo) Create(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}
func (m *MockBookingRepo) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}
func (m *MockBookingRepo) Update(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}
func (m *MockBookingRepo) List(ctx context.Context, filter repository.BookingFilter) ([]domain.Booking, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Booking), args.Int(1), args.Error(2)
}
func (m *MockBookingRepo) CountActive(ctx context.Context, filter repository.BookingFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}
func (m *MockBookingRepo) ForEach(ctx context.Context, filter repository.BookingFilter, fn func(*domain.Booking) error) error {
	args := m.Called(ctx, filter, fn)
	return args.Error(0)
}

// mockStore serves the memory store except for the repositories replaced by
// mocks. Transactions run fn against the same overrides.
type mockStore struct {
	repository.Store
	accounts repository.AccountRepository
	bookings repository.BookingRepository
}

func (s *mockStore) Accounts() repository.AccountRepository {
	if s.accounts != nil {
		return s.accounts
	}
	return s.Store.Accounts()
}

func (s *mockStore) Bookings() repository.BookingRepository {
	if s.bookings != nil {
		return s.bookings
	}
	return s.Store.Bookings()
}

func (s *mockStore) InTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.InTx(ctx, func(tx repository.Store) error {
		return fn(&mockStore{Store: tx, accounts: s.accounts, bookings: s.bookings})
	})
}
