package service

import (
	"context"
	"errors"
	"strings"

	"carehub-backend/internal/domain"
	"carehub-backend/internal/logger"
	"carehub-backend/internal/repository"
	"carehub-backend/internal/utils"

	"github.com/shopspring/decimal"
)

// BookingLimits bounds the duration of a booking in hours.
type BookingLimits struct {
	MinDurationHours int
	MaxDurationHours int
}

type bookingService struct {
	store       repository.Store
	defaultRate decimal.Decimal
	limits      BookingLimits
	cache       AnalyticsCache
	now         clock
}

// NewBookingService wires the booking engine. defaultRate applies until a
// platform default is stored; cache may be nil.
func NewBookingService(store repository.Store, defaultRate decimal.Decimal, limits BookingLimits, cache AnalyticsCache) BookingService {
	if limits.MinDurationHours == 0 {
		limits.MinDurationHours = 1
	}
	if limits.MaxDurationHours == 0 {
		limits.MaxDurationHours = 24
	}
	return &bookingService{store: store, defaultRate: defaultRate, limits: limits, cache: cache, now: utcNow}
}

func (s *bookingService) validate(req BookingRequest) error {
	if strings.TrimSpace(req.CaregiverID) == "" {
		return domain.Errorf(domain.ErrValidation, "caregiver id is required")
	}
	if req.DurationHours < s.limits.MinDurationHours || req.DurationHours > s.limits.MaxDurationHours {
		return domain.Errorf(domain.ErrValidation, "duration must be between %d and %d hours",
			s.limits.MinDurationHours, s.limits.MaxDurationHours)
	}
	if _, err := utils.ParseBookingDate(req.Date); err != nil {
		return invalid(err)
	}
	if _, _, err := utils.ParseBookingTime(req.Time); err != nil {
		return invalid(err)
	}
	if strings.TrimSpace(req.Address) == "" {
		return domain.Errorf(domain.ErrValidation, "address is required")
	}
	if !req.PaymentMethod.Valid() {
		return domain.Errorf(domain.ErrValidation, "invalid payment method %q", req.PaymentMethod)
	}
	return nil
}

// CreateBooking checks the customer and caregiver preconditions, snapshots
// rate and commission, and stores the booking as pending. Cash bookings
// accrue the vendor share as pending earnings in the same transaction.
func (s *bookingService) CreateBooking(ctx context.Context, actor domain.Actor, req BookingRequest) (Result[*domain.Booking], error) {
	logger.EnterMethod("bookingService.CreateBooking", "customerID", actor.AccountID, "caregiverID", req.CaregiverID)
	var res Result[*domain.Booking]

	if actor.Role != domain.RoleCustomer {
		err := domain.Errorf(domain.ErrForbidden, "only customers can create bookings")
		logger.ExitMethodWithError("bookingService.CreateBooking", err, "customerID", actor.AccountID)
		return res, err
	}
	if err := s.validate(req); err != nil {
		logger.ExitMethodWithError("bookingService.CreateBooking", err, "customerID", actor.AccountID)
		return res, err
	}

	var booking *domain.Booking
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		listed, err := tx.Blacklist().CountEntries(ctx, domain.SubjectUser, actor.AccountID)
		if err != nil {
			return err
		}
		if listed > 0 {
			return domain.Errorf(domain.ErrCustomerBlacklisted, "customer %s is blacklisted", actor.AccountID)
		}

		caregiver, err := tx.Caregivers().GetByID(ctx, req.CaregiverID)
		if err != nil {
			return err
		}
		if err := caregiver.Bookable(); err != nil {
			return err
		}
		if req.ServiceID != "" && !offers(caregiver, req.ServiceID) {
			return domain.Errorf(domain.ErrValidation, "caregiver %s does not offer service %s", caregiver.ID, req.ServiceID)
		}

		if caregiver.OrganizationID != nil {
			org, err := tx.Organizations().GetByID(ctx, *caregiver.OrganizationID)
			if err != nil {
				return err
			}
			// the org flag commits before its cascade reaches the caregivers
			if org.IsBlacklisted {
				return domain.Errorf(domain.ErrValidation, "organization %s of caregiver %s is blacklisted", org.ID, caregiver.ID)
			}
		}
		rate, err := commissionRate(ctx, tx, caregiver.OrganizationID, s.defaultRate)
		if err != nil {
			return err
		}
		charges, err := utils.CalculateBookingCharges(caregiver.HourlyRate, req.DurationHours, rate)
		if err != nil {
			return invalid(err)
		}

		now := s.now()
		booking = &domain.Booking{
			ID:                 newID(),
			UserID:             actor.AccountID,
			CaregiverID:        caregiver.ID,
			OrganizationID:     caregiver.OrganizationID,
			ServiceID:          req.ServiceID,
			Date:               req.Date,
			Time:               req.Time,
			DurationHours:      req.DurationHours,
			Address:            strings.TrimSpace(req.Address),
			Notes:              req.Notes,
			Status:             domain.BookingStatusPending,
			HourlyRate:         charges.HourlyRate,
			CommissionRate:     charges.CommissionRate,
			TotalAmount:        charges.TotalAmount,
			PlatformCommission: charges.PlatformCommission,
			VendorEarnings:     charges.VendorEarnings,
			PaymentMethod:      req.PaymentMethod,
			PaymentStatus:      domain.PaymentStatusPending,
			CreatedAt:          now,
			UpdatedAt:          now,
		}

		var accrued domain.EarningsDelta
		if booking.PaymentMethod == domain.PaymentMethodCash {
			accrued = booking.AccruePending()
		}
		if err := tx.Bookings().Create(ctx, booking); err != nil {
			return err
		}
		if !accrued.IsZero() {
			if err := tx.Caregivers().ApplyEarnings(ctx, caregiver.ID, accrued); err != nil {
				return err
			}
		}
		if booking.OrganizationID != nil {
			return tx.Organizations().AddCounters(ctx, *booking.OrganizationID, 1, 0)
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("bookingService.CreateBooking", err, "customerID", actor.AccountID)
		return res, err
	}
	invalidateAnalytics(ctx, s.cache, "CreateBooking", &res.Warnings)

	res.Value = booking
	logger.ExitMethod("bookingService.CreateBooking", "bookingID", booking.ID, "total", booking.TotalAmount)
	return res, nil
}

func offers(c *domain.Caregiver, serviceID string) bool {
	for _, id := range c.ServicesOffered {
		if id == serviceID {
			return true
		}
	}
	return false
}

// Transition moves a booking along the state machine. The booking write is
// version-checked; a concurrent writer that got there first makes this call
// fail with Conflict and nothing is applied.
func (s *bookingService) Transition(ctx context.Context, actor domain.Actor, bookingID string, target domain.BookingStatus) (Result[*domain.Booking], error) {
	logger.EnterMethod("bookingService.Transition", "actorID", actor.AccountID, "bookingID", bookingID, "target", target)
	var res Result[*domain.Booking]

	booking, err := s.store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		logger.ExitMethodWithError("bookingService.Transition", err, "bookingID", bookingID)
		return res, err
	}
	if err := domain.CheckTransition(booking, actor, target); err != nil {
		logger.ExitMethodWithError("bookingService.Transition", err, "bookingID", bookingID)
		return res, err
	}

	settlement := booking.ApplyTransition(target, actor.AccountID, s.now())
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Bookings().Update(ctx, booking); err != nil {
			return err
		}
		if !settlement.Delta.IsZero() {
			if err := tx.Caregivers().ApplyEarnings(ctx, booking.CaregiverID, settlement.Delta); err != nil {
				return err
			}
		}
		if settlement.OrgEarnings != 0 && booking.OrganizationID != nil {
			return tx.Organizations().AddCounters(ctx, *booking.OrganizationID, 0, settlement.OrgEarnings)
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("bookingService.Transition", err, "bookingID", bookingID)
		return res, err
	}

	if target == domain.BookingStatusCompleted {
		invalidateAnalytics(ctx, s.cache, "Transition", &res.Warnings)
	}

	res.Value = booking
	logger.ExitMethod("bookingService.Transition", "bookingID", bookingID, "status", booking.Status, "version", booking.Version)
	return res, nil
}

// ConfirmPayment records a gateway payment for an issued reference. A
// reference that already settled the booking returns the booking unchanged,
// so repeated confirmations never credit earnings twice.
func (s *bookingService) ConfirmPayment(ctx context.Context, bookingID, referenceID string, amountPaid int64) (Result[*domain.Booking], error) {
	logger.EnterMethod("bookingService.ConfirmPayment", "bookingID", bookingID, "referenceID", referenceID)
	var res Result[*domain.Booking]

	booking, err := s.applyPayment(ctx, bookingID, referenceID, amountPaid)
	if errors.Is(err, domain.ErrConflict) {
		// a concurrent confirmation of the same reference counts as success
		booking, err = s.settledBy(ctx, bookingID, referenceID, err)
	}
	if err != nil {
		logger.ExitMethodWithError("bookingService.ConfirmPayment", err, "bookingID", bookingID, "referenceID", referenceID)
		return res, err
	}

	res.Value = booking
	logger.ExitMethod("bookingService.ConfirmPayment", "bookingID", bookingID, "referenceID", referenceID)
	return res, nil
}

func (s *bookingService) applyPayment(ctx context.Context, bookingID, referenceID string, amountPaid int64) (*domain.Booking, error) {
	intent, err := s.store.Payments().GetIntent(ctx, referenceID)
	if err != nil {
		return nil, err
	}
	if intent.BookingID != bookingID {
		return nil, domain.Errorf(domain.ErrValidation, "reference %s was not issued for booking %s", referenceID, bookingID)
	}
	booking, err := s.store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if intent.Status == domain.PaymentIntentPaid && booking.PaymentReference == referenceID {
		return booking, nil
	}
	switch {
	case booking.PaymentStatus == domain.PaymentStatusPaid:
		return nil, domain.Errorf(domain.ErrAlreadySettled, "booking %s is already paid", bookingID)
	case booking.Status == domain.BookingStatusCancelled:
		return nil, domain.Errorf(domain.ErrAlreadySettled, "booking %s is cancelled", bookingID)
	case intent.Status != domain.PaymentIntentIssued:
		return nil, domain.Errorf(domain.ErrAlreadySettled, "reference %s is %s", referenceID, intent.Status)
	}
	if amountPaid != booking.TotalAmount {
		return nil, domain.Errorf(domain.ErrPaymentMismatch, "paid %d, booking total is %d", amountPaid, booking.TotalAmount)
	}

	now := s.now()
	booking.PaymentStatus = domain.PaymentStatusPaid
	booking.PaymentReference = referenceID
	booking.UpdatedAt = now
	accrued := booking.AccruePending()

	intent.Status = domain.PaymentIntentPaid
	intent.UpdatedAt = now

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Bookings().Update(ctx, booking); err != nil {
			return err
		}
		if err := tx.Payments().UpdateIntent(ctx, intent); err != nil {
			return err
		}
		if !accrued.IsZero() {
			return tx.Caregivers().ApplyEarnings(ctx, booking.CaregiverID, accrued)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// settledBy re-reads after a lost race and reports success only if the
// winner settled the booking with the same reference.
func (s *bookingService) settledBy(ctx context.Context, bookingID, referenceID string, raceErr error) (*domain.Booking, error) {
	booking, err := s.store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.PaymentStatus == domain.PaymentStatusPaid && booking.PaymentReference == referenceID {
		return booking, nil
	}
	return nil, raceErr
}

func (s *bookingService) GetBooking(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error) {
	booking, err := s.store.Bookings().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !booking.Involves(actor) {
		return nil, domain.Errorf(domain.ErrForbidden, "account %s may not read booking %s", actor.AccountID, id)
	}
	return booking, nil
}

// ListBookings scopes the listing by role: customers see their own bookings,
// caregivers their assignments, organization admins their organization's and
// super admins everything.
func (s *bookingService) ListBookings(ctx context.Context, actor domain.Actor, status domain.BookingStatus, page, pageSize int) ([]domain.Booking, int, error) {
	if status != "" && !status.Valid() {
		return nil, 0, domain.Errorf(domain.ErrValidation, "unknown booking status %q", status)
	}
	filter := repository.BookingFilter{Status: status, Page: page, PageSize: pageSize}
	switch actor.Role {
	case domain.RoleCustomer:
		filter.UserID = actor.AccountID
	case domain.RoleCaregiver:
		filter.CaregiverID = actor.AccountID
	case domain.RoleOrgAdmin:
		filter.OrganizationID = actor.AccountID
	case domain.RoleSuperAdmin:
	default:
		return nil, 0, domain.Errorf(domain.ErrForbidden, "unknown role %q", actor.Role)
	}
	return s.store.Bookings().List(ctx, filter)
}
