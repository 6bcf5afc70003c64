package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusAccepted  BookingStatus = "accepted"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusAccepted, BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

type PaymentMethod string

const (
	PaymentMethodCash    PaymentMethod = "cash"
	PaymentMethodGateway PaymentMethod = "gateway"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCash || m == PaymentMethodGateway
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// Booking amounts are in currency minor units. HourlyRate, CommissionRate and
// the three derived amounts are fixed at creation.
type Booking struct {
	ID                 string          `json:"id"`
	UserID             string          `json:"user_id"`
	CaregiverID        string          `json:"caregiver_id"`
	OrganizationID     *string         `json:"organization_id"`
	ServiceID          string          `json:"service_id,omitempty"`
	Date               string          `json:"date"`
	Time               string          `json:"time"`
	DurationHours      int             `json:"duration_hours"`
	Address            string          `json:"address"`
	Notes              string          `json:"notes,omitempty"`
	Status             BookingStatus   `json:"status"`
	HourlyRate         int64           `json:"hourly_rate"`
	CommissionRate     decimal.Decimal `json:"commission_rate"`
	TotalAmount        int64           `json:"total_amount"`
	PlatformCommission int64           `json:"platform_commission"`
	VendorEarnings     int64           `json:"vendor_earnings"`
	PaymentMethod      PaymentMethod   `json:"payment_method"`
	PaymentStatus      PaymentStatus   `json:"payment_status"`
	PaymentReference   string          `json:"payment_reference,omitempty"`
	EarningsAccrued    bool            `json:"earnings_accrued"`
	CancelledBy        string          `json:"cancelled_by,omitempty"`
	Version            int             `json:"version"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
	CancelledAt        *time.Time      `json:"cancelled_at,omitempty"`
}

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:  {BookingStatusAccepted, BookingStatusCancelled},
	BookingStatusAccepted: {BookingStatusCompleted, BookingStatusCancelled},
}

// CanMove reports whether the state machine has an edge from -> to.
func CanMove(from, to BookingStatus) bool {
	for _, next := range bookingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition decides whether actor may move b to target. It depends only
// on b's status and parties, the actor and the target, and performs no I/O.
// Missing edges are InvalidTransition for every actor.
func CheckTransition(b *Booking, actor Actor, target BookingStatus) error {
	if !target.Valid() {
		return Errorf(ErrValidation, "unknown booking status %q", target)
	}
	if !CanMove(b.Status, target) {
		return Errorf(ErrInvalidTransition, "booking %s cannot move from %s to %s", b.ID, b.Status, target)
	}

	assignedCaregiver := actor.Role == RoleCaregiver && actor.AccountID == b.CaregiverID
	ownCustomer := actor.Role == RoleCustomer && actor.AccountID == b.UserID
	admin := actor.IsSuperAdmin() || actor.AdministersOrg(b.OrganizationID)

	switch target {
	case BookingStatusAccepted, BookingStatusCompleted:
		if assignedCaregiver {
			return nil
		}
	case BookingStatusCancelled:
		if assignedCaregiver || ownCustomer || admin {
			return nil
		}
	}
	return Errorf(ErrForbidden, "account %s may not move booking %s to %s", actor.AccountID, b.ID, target)
}

// Involves reports whether the actor may read the booking.
func (b *Booking) Involves(actor Actor) bool {
	switch {
	case actor.IsSuperAdmin():
		return true
	case actor.AdministersOrg(b.OrganizationID):
		return true
	}
	return actor.AccountID == b.UserID || actor.AccountID == b.CaregiverID
}

// Settlement describes the caregiver counter moves caused by one transition.
type Settlement struct {
	Delta       EarningsDelta
	OrgEarnings int64
}

// ApplyTransition mutates b into target and returns the caregiver settlement it
// implies. Pending earnings accrued earlier are moved to total on completion
// and released on cancellation; the accrued flag keeps both single-shot.
func (b *Booking) ApplyTransition(target BookingStatus, actorID string, at time.Time) Settlement {
	var s Settlement
	b.Status = target
	b.UpdatedAt = at

	switch target {
	case BookingStatusCompleted:
		b.CompletedAt = &at
		s.Delta.JobsCompleted = 1
		s.Delta.TotalEarnings = b.VendorEarnings
		if b.EarningsAccrued {
			s.Delta.PendingEarnings = -b.VendorEarnings
			b.EarningsAccrued = false
		}
		if b.PaymentMethod == PaymentMethodCash {
			b.PaymentStatus = PaymentStatusPaid
		}
		s.OrgEarnings = b.VendorEarnings
	case BookingStatusCancelled:
		b.CancelledAt = &at
		b.CancelledBy = actorID
		if b.EarningsAccrued {
			s.Delta.PendingEarnings = -b.VendorEarnings
			b.EarningsAccrued = false
		}
	}
	return s
}

// AccruePending marks the vendor earnings as pending on the caregiver. It is a
// no-op when already accrued or when the booking is terminal.
func (b *Booking) AccruePending() EarningsDelta {
	if b.EarningsAccrued || b.Status.Terminal() {
		return EarningsDelta{}
	}
	b.EarningsAccrued = true
	return EarningsDelta{PendingEarnings: b.VendorEarnings}
}

// IsZero reports whether the delta changes nothing.
func (d EarningsDelta) IsZero() bool {
	return d == EarningsDelta{}
}
