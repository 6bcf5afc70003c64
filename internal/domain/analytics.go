package domain

import "time"

// Analytics is the platform-wide projection over the registry and the booking
// ledger. Revenue figures come only from completed bookings.
type Analytics struct {
	TotalOrganizations    int       `json:"total_organizations"`
	ApprovedOrganizations int       `json:"approved_organizations"`
	TotalCaregivers       int       `json:"total_caregivers"`
	ApprovedCaregivers    int       `json:"approved_caregivers"`
	TotalBookings         int       `json:"total_bookings"`
	CompletedBookings     int       `json:"completed_bookings"`
	TotalRevenue          int64     `json:"total_revenue"`
	PlatformEarnings      int64     `json:"platform_earnings"`
	ComputedAt            time.Time `json:"computed_at"`
}

// AddBooking folds one booking into the projection.
func (a *Analytics) AddBooking(b *Booking) {
	a.TotalBookings++
	if b.Status != BookingStatusCompleted {
		return
	}
	a.CompletedBookings++
	a.TotalRevenue += b.TotalAmount
	a.PlatformEarnings += b.PlatformCommission
}

func (a *Analytics) AddOrganization(o *Organization) {
	a.TotalOrganizations++
	if o.IsApproved {
		a.ApprovedOrganizations++
	}
}

func (a *Analytics) AddCaregiver(c *Caregiver) {
	a.TotalCaregivers++
	if c.IsApproved {
		a.ApprovedCaregivers++
	}
}

// Balance holds a caregiver's earnings counters.
type Balance struct {
	JobsCompleted   int   `json:"jobs_completed"`
	TotalEarnings   int64 `json:"total_earnings"`
	PendingEarnings int64 `json:"pending_earnings"`
}

// AddBooking folds one of the caregiver's bookings into the balance using the
// same accrual rules the booking engine applies.
func (b *Balance) AddBooking(bk *Booking) {
	switch {
	case bk.Status == BookingStatusCompleted:
		b.JobsCompleted++
		b.TotalEarnings += bk.VendorEarnings
	case bk.EarningsAccrued && !bk.Status.Terminal():
		b.PendingEarnings += bk.VendorEarnings
	}
}

// CaregiverBalance compares the stored counters with the ones recomputed from
// the booking ledger.
type CaregiverBalance struct {
	CaregiverID string  `json:"caregiver_id"`
	Stored      Balance `json:"stored"`
	Ledger      Balance `json:"ledger"`
}

func (c CaregiverBalance) Drifted() bool {
	return c.Stored != c.Ledger
}

// StoredBalance reads the counters currently held on the caregiver.
func (c *Caregiver) StoredBalance() Balance {
	return Balance{
		JobsCompleted:   c.JobsCompleted,
		TotalEarnings:   c.TotalEarnings,
		PendingEarnings: c.PendingEarnings,
	}
}
