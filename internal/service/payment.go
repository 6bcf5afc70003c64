package service

import (
	"context"
	"time"

	"carehub-backend/internal/domain"
	"carehub-backend/internal/logger"
	"carehub-backend/internal/repository"
)

type paymentService struct {
	store        repository.Store
	bookings     BookingService
	gateway      PaymentGateway
	intentExpiry time.Duration
	now          clock
}

// NewPaymentService wires gateway payments. Issued references older than
// intentExpiry are expired by ExpirePaymentIntents.
func NewPaymentService(store repository.Store, bookings BookingService, gateway PaymentGateway, intentExpiry time.Duration) PaymentService {
	return &paymentService{
		store:        store,
		bookings:     bookings,
		gateway:      gateway,
		intentExpiry: intentExpiry,
		now:          utcNow,
	}
}

// InitiatePayment issues a fresh reference for the customer's gateway booking
// and returns where to send the customer.
func (s *paymentService) InitiatePayment(ctx context.Context, actor domain.Actor, bookingID string) (*PaymentSession, error) {
	logger.EnterMethod("paymentService.InitiatePayment", "actorID", actor.AccountID, "bookingID", bookingID)

	booking, err := s.store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		logger.ExitMethodWithError("paymentService.InitiatePayment", err, "bookingID", bookingID)
		return nil, err
	}

	switch {
	case actor.Role != domain.RoleCustomer || booking.UserID != actor.AccountID:
		err = domain.Errorf(domain.ErrForbidden, "only the booking's customer can pay for it")
	case booking.PaymentMethod != domain.PaymentMethodGateway:
		err = domain.Errorf(domain.ErrValidation, "booking %s is paid in cash", bookingID)
	case booking.PaymentStatus == domain.PaymentStatusPaid:
		err = domain.Errorf(domain.ErrAlreadySettled, "booking %s is already paid", bookingID)
	case booking.Status == domain.BookingStatusCancelled:
		err = domain.Errorf(domain.ErrInvalidTransition, "booking %s is cancelled", bookingID)
	}
	if err != nil {
		logger.ExitMethodWithError("paymentService.InitiatePayment", err, "bookingID", bookingID)
		return nil, err
	}

	now := s.now()
	intent := &domain.PaymentIntent{
		ReferenceID: newID(),
		BookingID:   booking.ID,
		Amount:      booking.TotalAmount,
		Status:      domain.PaymentIntentIssued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	url, err := s.gateway.RedirectURL(intent)
	if err != nil {
		logger.ExitMethodWithError("paymentService.InitiatePayment", err, "bookingID", bookingID)
		return nil, err
	}
	if err := s.store.Payments().CreateIntent(ctx, intent); err != nil {
		logger.ExitMethodWithError("paymentService.InitiatePayment", err, "bookingID", bookingID)
		return nil, err
	}

	logger.ExitMethod("paymentService.InitiatePayment", "bookingID", bookingID, "referenceID", intent.ReferenceID)
	return &PaymentSession{Intent: intent, RedirectURL: url}, nil
}

// HandleGatewayCallback settles a booking from the gateway's asynchronous
// report. Only signed callbacks for references issued here are considered,
// and the outcome is confirmed with the gateway before anything is credited.
func (s *paymentService) HandleGatewayCallback(ctx context.Context, cb domain.GatewayCallback) (Result[*domain.Booking], error) {
	logger.EnterMethod("paymentService.HandleGatewayCallback", "referenceID", cb.ReferenceID, "status", cb.Status)
	var res Result[*domain.Booking]

	if err := s.gateway.VerifySignature(cb); err != nil {
		logger.ExitMethodWithError("paymentService.HandleGatewayCallback", err, "referenceID", cb.ReferenceID)
		return res, err
	}
	intent, err := s.store.Payments().GetIntent(ctx, cb.ReferenceID)
	if err != nil {
		logger.ExitMethodWithError("paymentService.HandleGatewayCallback", err, "referenceID", cb.ReferenceID)
		return res, err
	}
	if cb.Amount != intent.Amount {
		err := domain.Errorf(domain.ErrPaymentMismatch, "reference %s: gateway reported %d, issued %d", cb.ReferenceID, cb.Amount, intent.Amount)
		logger.ExitMethodWithError("paymentService.HandleGatewayCallback", err, "referenceID", cb.ReferenceID)
		return res, err
	}

	status := cb.Status
	if status == domain.GatewayStatusSuccess {
		// the callback is only a hint; the gateway's answer decides
		status, err = s.gateway.Verify(ctx, cb.ReferenceID, cb.Amount)
		if err != nil {
			logger.ExitMethodWithError("paymentService.HandleGatewayCallback", err, "referenceID", cb.ReferenceID)
			return res, err
		}
	}

	if status != domain.GatewayStatusSuccess {
		booking, err := s.markFailed(ctx, intent, cb.TransactionID)
		if err != nil {
			logger.ExitMethodWithError("paymentService.HandleGatewayCallback", err, "referenceID", cb.ReferenceID)
			return res, err
		}
		res.Value = booking
		logger.ExitMethod("paymentService.HandleGatewayCallback", "referenceID", cb.ReferenceID, "paid", false)
		return res, nil
	}

	res, err = s.bookings.ConfirmPayment(ctx, intent.BookingID, intent.ReferenceID, cb.Amount)
	if err != nil {
		logger.ExitMethodWithError("paymentService.HandleGatewayCallback", err, "referenceID", cb.ReferenceID)
		return res, err
	}
	if cb.TransactionID != "" {
		bestEffort("HandleGatewayCallback", "record_transaction_id", &res.Warnings, func() error {
			return s.recordTransaction(ctx, cb.ReferenceID, cb.TransactionID)
		})
	}

	logger.ExitMethod("paymentService.HandleGatewayCallback", "referenceID", cb.ReferenceID, "paid", true)
	return res, nil
}

func (s *paymentService) recordTransaction(ctx context.Context, referenceID, transactionID string) error {
	intent, err := s.store.Payments().GetIntent(ctx, referenceID)
	if err != nil {
		return err
	}
	if intent.TransactionID == transactionID {
		return nil
	}
	intent.TransactionID = transactionID
	intent.UpdatedAt = s.now()
	return s.store.Payments().UpdateIntent(ctx, intent)
}

// markFailed records a failed gateway outcome. Settled references are left
// alone and a paid booking is never downgraded.
func (s *paymentService) markFailed(ctx context.Context, intent *domain.PaymentIntent, transactionID string) (*domain.Booking, error) {
	booking, err := s.store.Bookings().GetByID(ctx, intent.BookingID)
	if err != nil {
		return nil, err
	}
	if intent.Status != domain.PaymentIntentIssued {
		return booking, nil
	}

	now := s.now()
	intent.Status = domain.PaymentIntentFailed
	intent.TransactionID = transactionID
	intent.UpdatedAt = now

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Payments().UpdateIntent(ctx, intent); err != nil {
			return err
		}
		if booking.PaymentStatus == domain.PaymentStatusPaid {
			return nil
		}
		booking.PaymentStatus = domain.PaymentStatusFailed
		booking.UpdatedAt = now
		return tx.Bookings().Update(ctx, booking)
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *paymentService) ExpirePaymentIntents(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.intentExpiry)
	n, err := s.store.Payments().ExpireIntents(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.Info("Expired payment intents", "count", n, "issuedBefore", cutoff)
	}
	return n, nil
}
