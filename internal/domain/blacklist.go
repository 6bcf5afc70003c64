package domain

import (
	"strings"
	"time"
)

type ReportStatus string

const (
	ReportStatusPending  ReportStatus = "pending"
	ReportStatusApproved ReportStatus = "approved"
	ReportStatusRejected ReportStatus = "rejected"
)

type SubjectType string

const (
	SubjectUser         SubjectType = "user"
	SubjectCaregiver    SubjectType = "caregiver"
	SubjectOrganization SubjectType = "organization"
)

func (t SubjectType) Valid() bool {
	return t == SubjectUser || t == SubjectCaregiver || t == SubjectOrganization
}

// Report is a complaint about one party of a booking, waiting for adjudication.
// UserID is the booking's customer; SubjectID is the party being reported.
type Report struct {
	ID             string       `json:"id"`
	BookingID      string       `json:"booking_id"`
	UserID         string       `json:"user_id"`
	SubjectID      string       `json:"subject_id"`
	SubjectType    SubjectType  `json:"subject_type"`
	OrganizationID *string      `json:"organization_id"`
	ReportedBy     string       `json:"reported_by"`
	Reason         string       `json:"reason"`
	Description    string       `json:"description"`
	Status         ReportStatus `json:"status"`
	ReviewedBy     string       `json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time   `json:"reviewed_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// CanAdjudicate reports whether actor may approve or reject the report.
func (r *Report) CanAdjudicate(actor Actor) bool {
	return actor.IsSuperAdmin() || actor.AdministersOrg(r.OrganizationID)
}

type EntrySource string

const (
	EntrySourceReport       EntrySource = "report"
	EntrySourceOrganization EntrySource = "organization"
	EntrySourcePlatform     EntrySource = "platform"
	EntrySourceCascade      EntrySource = "cascade"
)

// BlacklistEntry is a durable restriction. OrganizationID scopes entries
// created by an organization; CascadeOrgID marks entries produced by an
// organization-wide blacklist.
type BlacklistEntry struct {
	ID             string      `json:"id"`
	SubjectID      string      `json:"subject_id"`
	SubjectType    SubjectType `json:"subject_type"`
	OrganizationID *string     `json:"organization_id"`
	Reason         string      `json:"reason"`
	Description    string      `json:"description,omitempty"`
	Source         EntrySource `json:"source"`
	ReportID       *string     `json:"report_id,omitempty"`
	CascadeOrgID   *string     `json:"cascade_org_id,omitempty"`
	AddedAt        time.Time   `json:"added_at"`
	ApprovedBy     string      `json:"approved_by"`
}

// CanRemove reports whether actor may delete the entry.
func (e *BlacklistEntry) CanRemove(actor Actor) bool {
	if actor.IsSuperAdmin() {
		return true
	}
	return e.SubjectType != SubjectOrganization && e.CascadeOrgID == nil && actor.AdministersOrg(e.OrganizationID)
}

// RequireReason trims reason and rejects empty values.
func RequireReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", Errorf(ErrValidation, "reason is required")
	}
	return reason, nil
}
