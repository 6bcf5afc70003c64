package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Approval is the review state shared by organizations and caregivers.
type Approval struct {
	IsApproved      bool       `json:"is_approved"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	ReviewedBy      string     `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
}

// Approve marks the entity approved and clears any earlier rejection.
// It returns false when the entity was already approved with nothing to clear.
func (a *Approval) Approve(actorID string, at time.Time) bool {
	if a.IsApproved && a.RejectionReason == "" {
		return false
	}
	a.IsApproved = true
	a.RejectionReason = ""
	a.ReviewedBy = actorID
	a.ReviewedAt = &at
	return true
}

// Reject records a non-empty reason with the reviewer and time.
func (a *Approval) Reject(actorID, reason string, at time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Errorf(ErrValidation, "rejection reason is required")
	}
	a.IsApproved = false
	a.RejectionReason = reason
	a.ReviewedBy = actorID
	a.ReviewedAt = &at
	return nil
}

type Organization struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	AdminName       string          `json:"admin_name"`
	AdminEmail      string          `json:"admin_email"`
	BusinessPhone   string          `json:"business_phone"`
	BusinessAddress string          `json:"business_address"`
	BusinessCity    string          `json:"business_city"`
	CommissionRate  decimal.Decimal `json:"commission_rate"`
	Approval
	IsBlacklisted   bool      `json:"is_blacklisted"`
	CascadePending  bool      `json:"-"`
	TotalCaregivers int       `json:"total_caregivers"` // counted from caregivers.organization_id
	TotalBookings   int       `json:"total_bookings"`
	TotalEarnings   int64     `json:"total_earnings"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (o *Organization) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return Errorf(ErrValidation, "organization name is required")
	}
	if strings.TrimSpace(o.AdminEmail) == "" {
		return Errorf(ErrValidation, "admin email is required")
	}
	return nil
}
