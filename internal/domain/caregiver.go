package domain

import (
	"strings"
	"time"
)

type Category string

const (
	CategoryCaregiver Category = "caregiver"
	CategoryHousehold Category = "household"
	CategoryBoth      Category = "both"
)

func (c Category) Valid() bool {
	return c == CategoryCaregiver || c == CategoryHousehold || c == CategoryBoth
}

// Covers reports whether a provider in category c can serve a request in want.
func (c Category) Covers(want Category) bool {
	return c == CategoryBoth || want == CategoryBoth || c == want
}

type WorkType string

const (
	WorkTypeFullTime WorkType = "full_time"
	WorkTypePartTime WorkType = "part_time"
)

type Caregiver struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Location        string   `json:"location"`
	Phone           string   `json:"phone"`
	Category        Category `json:"category"`
	WorkType        WorkType `json:"work_type"`
	Shifts          []string `json:"shifts"`
	ServicesOffered []string `json:"services_offered"`
	HourlyRate      int64    `json:"hourly_rate"`
	Experience      int      `json:"experience"`
	ProfileImageURL string   `json:"profile_image_url,omitempty"`
	IsAvailable     bool     `json:"is_available"`
	Approval
	IsSuspended     bool      `json:"is_suspended"`
	IsBlacklisted   bool      `json:"is_blacklisted"`
	OrganizationID  *string   `json:"organization_id"`
	Rating          float64   `json:"rating"`
	JobsCompleted   int       `json:"jobs_completed"`
	TotalEarnings   int64     `json:"total_earnings"`
	PendingEarnings int64     `json:"pending_earnings"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Independent caregivers have no organization.
func (c *Caregiver) Independent() bool {
	return c.OrganizationID == nil
}

// Listable is the public listing rule.
func (c *Caregiver) Listable() bool {
	return c.IsApproved && !c.IsSuspended && !c.IsBlacklisted && c.IsAvailable
}

// Bookable checks the booking-creation preconditions on the caregiver.
func (c *Caregiver) Bookable() error {
	switch {
	case !c.IsApproved:
		return Errorf(ErrValidation, "caregiver %s is not approved", c.ID)
	case c.IsSuspended:
		return Errorf(ErrValidation, "caregiver %s is suspended", c.ID)
	case c.IsBlacklisted:
		return Errorf(ErrValidation, "caregiver %s is blacklisted", c.ID)
	}
	return nil
}

// Validate checks profile fields and drops shifts for full-time caregivers.
func (c *Caregiver) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return Errorf(ErrValidation, "caregiver name is required")
	}
	if !c.Category.Valid() {
		return Errorf(ErrValidation, "invalid category %q", c.Category)
	}
	switch c.WorkType {
	case WorkTypeFullTime:
		c.Shifts = nil
	case WorkTypePartTime:
	default:
		return Errorf(ErrValidation, "invalid work type %q", c.WorkType)
	}
	if c.HourlyRate < 0 {
		return Errorf(ErrValidation, "hourly rate must not be negative")
	}
	if c.Experience < 0 {
		return Errorf(ErrValidation, "experience must not be negative")
	}
	return nil
}

// EarningsDelta is applied atomically to a caregiver's counters.
type EarningsDelta struct {
	JobsCompleted   int
	TotalEarnings   int64
	PendingEarnings int64
}

// Service is a bookable service type; a nil OrganizationID marks it global.
type Service struct {
	ID             string    `json:"id"`
	Label          string    `json:"label"`
	Category       Category  `json:"category"`
	OrganizationID *string   `json:"organization_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (s *Service) Validate() error {
	if strings.TrimSpace(s.Label) == "" {
		return Errorf(ErrValidation, "service label is required")
	}
	if !s.Category.Valid() {
		return Errorf(ErrValidation, "invalid category %q", s.Category)
	}
	return nil
}
