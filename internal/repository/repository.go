package repository

import (
	"context"
	"time"

	"carehub-backend/internal/domain"

	"github.com/shopspring/decimal"
)

type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	Update(ctx context.Context, account *domain.Account) error
	Delete(ctx context.Context, id string) error
	CountByRole(ctx context.Context, role domain.Role) (int, error)

	// LockBootstrap serializes super-admin bootstrap for the rest of the
	// enclosing transaction.
	LockBootstrap(ctx context.Context) error
}

type OrganizationFilter struct {
	ApprovedOnly bool
}

type OrganizationRepository interface {
	Create(ctx context.Context, org *domain.Organization) error
	GetByID(ctx context.Context, id string) (*domain.Organization, error)
	List(ctx context.Context, filter OrganizationFilter) ([]domain.Organization, error)
	Update(ctx context.Context, org *domain.Organization) error
	Delete(ctx context.Context, id string) error

	// AddCounters adds to the cached booking and earnings totals.
	AddCounters(ctx context.Context, id string, bookings int, earnings int64) error
	ListCascadePending(ctx context.Context) ([]domain.Organization, error)
}

type CaregiverFilter struct {
	OrganizationID *string
	ListableOnly   bool
	Category       domain.Category
	ServiceID      string
}

type CaregiverRepository interface {
	Create(ctx context.Context, caregiver *domain.Caregiver) error
	GetByID(ctx context.Context, id string) (*domain.Caregiver, error)
	List(ctx context.Context, filter CaregiverFilter) ([]domain.Caregiver, error)
	Update(ctx context.Context, caregiver *domain.Caregiver) error
	Delete(ctx context.Context, id string) error

	ApplyEarnings(ctx context.Context, id string, delta domain.EarningsDelta) error
	SetBalance(ctx context.Context, id string, balance domain.Balance) error
	SetModeration(ctx context.Context, id string, blacklisted, suspended bool) error
}

type ServiceRepository interface {
	Create(ctx context.Context, svc *domain.Service) error
	GetByID(ctx context.Context, id string) (*domain.Service, error)
	Update(ctx context.Context, svc *domain.Service) error
	// List returns global services plus those owned by orgID when set.
	List(ctx context.Context, orgID *string) ([]domain.Service, error)
}

type BookingFilter struct {
	UserID         string
	CaregiverID    string
	OrganizationID string
	Status         domain.BookingStatus
	Page           int
	PageSize       int
}

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	// Update writes booking only if its stored version still equals
	// booking.Version, then bumps the version. A lost race is ErrConflict.
	Update(ctx context.Context, booking *domain.Booking) error
	List(ctx context.Context, filter BookingFilter) ([]domain.Booking, int, error)
	// CountActive counts pending and accepted bookings matching the party
	// fields of filter.
	CountActive(ctx context.Context, filter BookingFilter) (int, error)
	ForEach(ctx context.Context, filter BookingFilter, fn func(*domain.Booking) error) error
}

type PaymentRepository interface {
	CreateIntent(ctx context.Context, intent *domain.PaymentIntent) error
	GetIntent(ctx context.Context, referenceID string) (*domain.PaymentIntent, error)
	UpdateIntent(ctx context.Context, intent *domain.PaymentIntent) error
	ExpireIntents(ctx context.Context, issuedBefore time.Time) (int, error)
}

type ReportFilter struct {
	OrganizationID *string
	Status         domain.ReportStatus
}

type EntryFilter struct {
	OrganizationID *string
	SubjectType    domain.SubjectType
	SubjectID      string
}

type BlacklistRepository interface {
	CreateReport(ctx context.Context, report *domain.Report) error
	GetReport(ctx context.Context, id string) (*domain.Report, error)
	UpdateReport(ctx context.Context, report *domain.Report) error
	ListReports(ctx context.Context, filter ReportFilter) ([]domain.Report, error)

	// AddEntry stores entry. Cascade entries are unique per subject and
	// organization; adding one twice returns false without error.
	AddEntry(ctx context.Context, entry *domain.BlacklistEntry) (bool, error)
	GetEntry(ctx context.Context, id string) (*domain.BlacklistEntry, error)
	DeleteEntry(ctx context.Context, id string) error
	// DeleteCascadeEntries removes entries produced by orgID's cascade and
	// returns their subject ids.
	DeleteCascadeEntries(ctx context.Context, orgID string) ([]string, error)
	ListEntries(ctx context.Context, filter EntryFilter) ([]domain.BlacklistEntry, error)
	CountEntries(ctx context.Context, subjectType domain.SubjectType, subjectID string) (int, error)
}

type SettingsRepository interface {
	// GetDefaultCommissionRate returns ErrNotFound when never set.
	GetDefaultCommissionRate(ctx context.Context) (decimal.Decimal, error)
	SetDefaultCommissionRate(ctx context.Context, rate decimal.Decimal, updatedBy string) error
}

// Store bundles the repositories and owns the transaction boundary. Inside
// InTx every repository obtained from tx shares one transaction; fn returning
// an error rolls all of it back.
type Store interface {
	Accounts() AccountRepository
	Organizations() OrganizationRepository
	Caregivers() CaregiverRepository
	Services() ServiceRepository
	Bookings() BookingRepository
	Payments() PaymentRepository
	Blacklist() BlacklistRepository
	Settings() SettingsRepository

	InTx(ctx context.Context, fn func(tx Store) error) error
}
