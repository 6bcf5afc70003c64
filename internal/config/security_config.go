package config

type SecurityLevel int

const (
	SecurityPublic    SecurityLevel = iota // No authentication
	SecurityPrincipal                      // Verified bearer token, account may not exist yet
	SecurityAccount                        // Verified bearer token with a registered account
)

// EndpointSecurityConfig maps route names to their required security level.
// Routes missing from the table require SecurityAccount.
var EndpointSecurityConfig = map[string]SecurityLevel{
	"Health":          SecurityPublic,
	"GatewayCallback": SecurityPublic,

	// Identity
	"GetMe":                SecurityPrincipal,
	"RegisterAccount":      SecurityPrincipal,
	"Bootstrap":            SecurityPrincipal,
	"CreateSuperAdmin":     SecurityAccount,
	"DeleteSuperAdmin":     SecurityAccount,
	"SetDefaultCommission": SecurityAccount,

	// Registry
	"RegisterOrganization":       SecurityAccount,
	"ListOrganizations":          SecurityPublic,
	"GetOrganization":            SecurityPublic,
	"UpdateOrganization":         SecurityAccount,
	"DeleteOrganization":         SecurityAccount,
	"ApproveOrganization":        SecurityAccount,
	"RejectOrganization":         SecurityAccount,
	"SetCommissionRate":          SecurityAccount,
	"ListOrganizationCaregivers": SecurityAccount,
	"CreateCaregiver":            SecurityAccount,
	"ListCaregivers":             SecurityPublic,
	"GetCaregiver":               SecurityPublic,
	"UpdateCaregiver":            SecurityAccount,
	"DeleteCaregiver":            SecurityAccount,
	"SetAvailability":            SecurityAccount,
	"ApproveCaregiver":           SecurityAccount,
	"RejectCaregiver":            SecurityAccount,
	"CaregiverBalance":           SecurityAccount,
	"ListServices":               SecurityPublic,
	"CreateService":              SecurityAccount,
	"UpdateService":              SecurityAccount,

	// Bookings and payments
	"CreateBooking":     SecurityAccount,
	"ListBookings":      SecurityAccount,
	"GetBooking":        SecurityAccount,
	"TransitionBooking": SecurityAccount,
	"InitiatePayment":   SecurityAccount,

	// Moderation
	"SubmitReport":          SecurityAccount,
	"ListReports":           SecurityAccount,
	"ApproveReport":         SecurityAccount,
	"RejectReport":          SecurityAccount,
	"BlacklistCaregiver":    SecurityAccount,
	"BlacklistOrganization": SecurityAccount,
	"ListBlacklist":         SecurityAccount,
	"Unblacklist":           SecurityAccount,

	"GetAnalytics": SecurityAccount,
}

// RouteSecurity returns the level for a route name.
func RouteSecurity(name string) SecurityLevel {
	if level, ok := EndpointSecurityConfig[name]; ok {
		return level
	}
	return SecurityAccount
}
