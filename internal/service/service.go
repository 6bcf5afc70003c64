package service

import (
	"context"
	"time"

	"carehub-backend/internal/domain"
	"carehub-backend/internal/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Result carries an operation's value together with the best-effort steps
// that failed without rolling it back.
type Result[T any] struct {
	Value    T                `json:"value"`
	Warnings []domain.Warning `json:"warnings,omitempty"`
}

// bestEffort runs a secondary write. A failure is logged and appended to
// warnings instead of being returned.
func bestEffort(operation, step string, warnings *[]domain.Warning, fn func() error) {
	if err := fn(); err != nil {
		logger.PartialSuccess(operation, step, err)
		*warnings = append(*warnings, domain.Warning{Step: step, Message: err.Error()})
	}
}

// invalid converts a plain input error into a ValidationError.
func invalid(err error) error {
	return domain.Errorf(domain.ErrValidation, "%v", err)
}

// invalidateAnalytics drops the cached snapshot after a write that changes
// its counts. A nil cache is a no-op.
func invalidateAnalytics(ctx context.Context, cache AnalyticsCache, operation string, warnings *[]domain.Warning) {
	if cache == nil {
		return
	}
	bestEffort(operation, "invalidate_analytics", warnings, func() error {
		return cache.Invalidate(ctx)
	})
}

func newID() string {
	return uuid.NewString()
}

type clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}

type IdentityService interface {
	ResolveAccount(ctx context.Context, principalID string) (*domain.Account, error)
	// Actor resolves a principal into the authorization view used by every
	// other service. Suspended accounts are Forbidden.
	Actor(ctx context.Context, principalID string) (domain.Actor, error)
	RegisterAccount(ctx context.Context, principalID, email string, role domain.Role) (*domain.Account, error)
	CreateFirstSuperAdminIfNeeded(ctx context.Context, principalID, email string) (*domain.Account, bool, error)
	CreateSuperAdmin(ctx context.Context, actor domain.Actor, principalID, email string) (*domain.Account, error)
	DeleteSuperAdmin(ctx context.Context, actor domain.Actor, id string) error
}

type OrganizationService interface {
	RegisterOrganization(ctx context.Context, actor domain.Actor, org *domain.Organization) (Result[*domain.Organization], error)
	GetOrganization(ctx context.Context, id string) (*domain.Organization, error)
	ListOrganizations(ctx context.Context, approvedOnly bool) ([]domain.Organization, error)
	UpdateOrganization(ctx context.Context, actor domain.Actor, org *domain.Organization) (*domain.Organization, error)
	ApproveOrganization(ctx context.Context, actor domain.Actor, id string) (Result[*domain.Organization], error)
	RejectOrganization(ctx context.Context, actor domain.Actor, id, reason string) (Result[*domain.Organization], error)
	SetCommissionRate(ctx context.Context, actor domain.Actor, id string, rate decimal.Decimal) (*domain.Organization, error)
	DeleteOrganization(ctx context.Context, actor domain.Actor, id string) (Result[struct{}], error)
	SetDefaultCommissionRate(ctx context.Context, actor domain.Actor, rate decimal.Decimal) error
}

type CaregiverService interface {
	CreateCaregiver(ctx context.Context, actor domain.Actor, c *domain.Caregiver) (Result[*domain.Caregiver], error)
	GetCaregiver(ctx context.Context, id string) (*domain.Caregiver, error)
	UpdateCaregiver(ctx context.Context, actor domain.Actor, c *domain.Caregiver) (*domain.Caregiver, error)
	SetAvailability(ctx context.Context, actor domain.Actor, id string, available bool) (*domain.Caregiver, error)
	ApproveCaregiver(ctx context.Context, actor domain.Actor, id string) (Result[*domain.Caregiver], error)
	RejectCaregiver(ctx context.Context, actor domain.Actor, id, reason string) (Result[*domain.Caregiver], error)
	DeleteCaregiver(ctx context.Context, actor domain.Actor, id string) (Result[struct{}], error)
	ListPublicCaregivers(ctx context.Context, category domain.Category, serviceID string) ([]domain.Caregiver, error)
	ListOrganizationCaregivers(ctx context.Context, actor domain.Actor, orgID string) ([]domain.Caregiver, error)
}

type CatalogService interface {
	CreateService(ctx context.Context, actor domain.Actor, svc *domain.Service) (*domain.Service, error)
	UpdateService(ctx context.Context, actor domain.Actor, svc *domain.Service) (*domain.Service, error)
	ListServices(ctx context.Context, orgID *string) ([]domain.Service, error)
}

// BookingRequest is the customer's input to CreateBooking.
type BookingRequest struct {
	CaregiverID   string
	ServiceID     string
	Date          string
	Time          string
	DurationHours int
	Address       string
	Notes         string
	PaymentMethod domain.PaymentMethod
}

type BookingService interface {
	CreateBooking(ctx context.Context, actor domain.Actor, req BookingRequest) (Result[*domain.Booking], error)
	Transition(ctx context.Context, actor domain.Actor, bookingID string, target domain.BookingStatus) (Result[*domain.Booking], error)
	ConfirmPayment(ctx context.Context, bookingID, referenceID string, amountPaid int64) (Result[*domain.Booking], error)
	GetBooking(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error)
	ListBookings(ctx context.Context, actor domain.Actor, status domain.BookingStatus, page, pageSize int) ([]domain.Booking, int, error)
}

// PaymentSession is what a customer needs to continue at the gateway.
type PaymentSession struct {
	Intent      *domain.PaymentIntent `json:"intent"`
	RedirectURL string                `json:"redirect_url"`
}

type PaymentService interface {
	InitiatePayment(ctx context.Context, actor domain.Actor, bookingID string) (*PaymentSession, error)
	HandleGatewayCallback(ctx context.Context, cb domain.GatewayCallback) (Result[*domain.Booking], error)
	ExpirePaymentIntents(ctx context.Context) (int, error)
}

type ModerationService interface {
	SubmitReport(ctx context.Context, actor domain.Actor, bookingID, reason, description string) (*domain.Report, error)
	ApproveReport(ctx context.Context, actor domain.Actor, reportID string) (*domain.BlacklistEntry, error)
	RejectReport(ctx context.Context, actor domain.Actor, reportID string) (*domain.Report, error)
	BlacklistCaregiver(ctx context.Context, actor domain.Actor, caregiverID, reason, description string) (*domain.BlacklistEntry, error)
	BlacklistOrganization(ctx context.Context, actor domain.Actor, orgID, reason string) (Result[*domain.BlacklistEntry], error)
	Unblacklist(ctx context.Context, actor domain.Actor, entryID string) error
	ResumeCascades(ctx context.Context) (int, error)
	ListReports(ctx context.Context, actor domain.Actor, status domain.ReportStatus) ([]domain.Report, error)
	ListBlacklist(ctx context.Context, actor domain.Actor, subjectType domain.SubjectType) ([]domain.BlacklistEntry, error)
}

type AnalyticsService interface {
	ComputeAnalytics(ctx context.Context, actor domain.Actor) (*domain.Analytics, error)
	// Recompute folds the booking ledger, bypassing and refreshing the cache.
	Recompute(ctx context.Context) (*domain.Analytics, error)
	CaregiverBalance(ctx context.Context, actor domain.Actor, caregiverID string) (*domain.CaregiverBalance, error)
	ReconcileBalances(ctx context.Context) (int, error)
}

// AnalyticsCache stores the latest analytics snapshot. Get returns nil
// without error on a miss.
type AnalyticsCache interface {
	Get(ctx context.Context) (*domain.Analytics, error)
	Set(ctx context.Context, a *domain.Analytics, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// PaymentGateway is the redirect-based payment processor.
type PaymentGateway interface {
	RedirectURL(intent *domain.PaymentIntent) (string, error)
	// VerifySignature checks the callback was signed with the merchant secret.
	VerifySignature(cb domain.GatewayCallback) error
	// Verify asks the gateway for the authoritative outcome of a reference.
	// A deadline overrun is domain.ErrGatewayTimeout.
	Verify(ctx context.Context, referenceID string, amount int64) (domain.GatewayStatus, error)
}
