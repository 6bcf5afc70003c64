package domain

import "time"

type Role string

const (
	RoleCustomer   Role = "customer"
	RoleCaregiver  Role = "caregiver"
	RoleOrgAdmin   Role = "org_admin"
	RoleSuperAdmin Role = "super_admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleCaregiver, RoleOrgAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// SelfAssignable reports whether a principal may pick this role at registration.
func (r Role) SelfAssignable() bool {
	return r == RoleCustomer || r == RoleCaregiver || r == RoleOrgAdmin
}

// Account is keyed by the identity provider's principal id.
type Account struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	Role            Role      `json:"role"`
	IsApproved      bool      `json:"is_approved"`
	IsSuspended     bool      `json:"is_suspended"`
	ProfileComplete bool      `json:"profile_complete"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Actor returns the authorization view of the account.
func (a *Account) Actor() Actor {
	return Actor{AccountID: a.ID, Role: a.Role}
}

// Actor is the verified caller of an operation.
type Actor struct {
	AccountID string
	Role      Role
}

func (a Actor) IsSuperAdmin() bool { return a.Role == RoleSuperAdmin }

// AdministersOrg reports whether the actor is the admin of orgID. An
// organization's id is its admin account's id.
func (a Actor) AdministersOrg(orgID *string) bool {
	return a.Role == RoleOrgAdmin && orgID != nil && *orgID == a.AccountID
}
