// Package http exposes the marketplace services over a JSON HTTP API.
package http

import (
	"net/http"

	"carehub-backend/internal/domain"
	"carehub-backend/internal/security"
	"carehub-backend/internal/service"

	"github.com/gorilla/mux"
)

// Services is everything the API dispatches to.
type Services struct {
	Identity      service.IdentityService
	Organizations service.OrganizationService
	Caregivers    service.CaregiverService
	Catalog       service.CatalogService
	Bookings      service.BookingService
	Payments      service.PaymentService
	Moderation    service.ModerationService
	Analytics     service.AnalyticsService
}

type handler struct {
	svc  Services
	auth *authMiddleware
}

// NewRouter builds the /api/v1 surface. Route names key the security table
// in config.EndpointSecurityConfig.
func NewRouter(svc Services, verifier security.Verifier) http.Handler {
	auth := &authMiddleware{verifier: verifier, identity: svc.Identity}
	h := &handler{svc: svc, auth: auth}

	root := mux.NewRouter()
	root.HandleFunc("/healthz", h.health).Methods(http.MethodGet).Name("Health")

	api := root.PathPrefix("/api/v1").Subrouter()
	api.Use(auth.handle)

	// identity
	api.HandleFunc("/me", h.getMe).Methods(http.MethodGet).Name("GetMe")
	api.HandleFunc("/accounts", h.registerAccount).Methods(http.MethodPost).Name("RegisterAccount")
	api.HandleFunc("/admin/bootstrap", h.bootstrap).Methods(http.MethodPost).Name("Bootstrap")
	api.HandleFunc("/admin/super-admins", h.createSuperAdmin).Methods(http.MethodPost).Name("CreateSuperAdmin")
	api.HandleFunc("/admin/super-admins/{id}", h.deleteSuperAdmin).Methods(http.MethodDelete).Name("DeleteSuperAdmin")
	api.HandleFunc("/admin/settings/commission", h.setDefaultCommission).Methods(http.MethodPut).Name("SetDefaultCommission")

	// organizations
	api.HandleFunc("/organizations", h.registerOrganization).Methods(http.MethodPost).Name("RegisterOrganization")
	api.HandleFunc("/organizations", h.listOrganizations).Methods(http.MethodGet).Name("ListOrganizations")
	api.HandleFunc("/organizations/{id}", h.getOrganization).Methods(http.MethodGet).Name("GetOrganization")
	api.HandleFunc("/organizations/{id}", h.updateOrganization).Methods(http.MethodPatch).Name("UpdateOrganization")
	api.HandleFunc("/organizations/{id}", h.deleteOrganization).Methods(http.MethodDelete).Name("DeleteOrganization")
	api.HandleFunc("/organizations/{id}/approve", h.approveOrganization).Methods(http.MethodPost).Name("ApproveOrganization")
	api.HandleFunc("/organizations/{id}/reject", h.rejectOrganization).Methods(http.MethodPost).Name("RejectOrganization")
	api.HandleFunc("/organizations/{id}/commission", h.setCommissionRate).Methods(http.MethodPut).Name("SetCommissionRate")
	api.HandleFunc("/organizations/{id}/blacklist", h.blacklistOrganization).Methods(http.MethodPost).Name("BlacklistOrganization")
	api.HandleFunc("/organizations/{id}/caregivers", h.listOrganizationCaregivers).Methods(http.MethodGet).Name("ListOrganizationCaregivers")

	// caregivers
	api.HandleFunc("/caregivers", h.createCaregiver).Methods(http.MethodPost).Name("CreateCaregiver")
	api.HandleFunc("/caregivers", h.listCaregivers).Methods(http.MethodGet).Name("ListCaregivers")
	api.HandleFunc("/caregivers/{id}", h.getCaregiver).Methods(http.MethodGet).Name("GetCaregiver")
	api.HandleFunc("/caregivers/{id}", h.updateCaregiver).Methods(http.MethodPatch).Name("UpdateCaregiver")
	api.HandleFunc("/caregivers/{id}", h.deleteCaregiver).Methods(http.MethodDelete).Name("DeleteCaregiver")
	api.HandleFunc("/caregivers/{id}/availability", h.setAvailability).Methods(http.MethodPut).Name("SetAvailability")
	api.HandleFunc("/caregivers/{id}/approve", h.approveCaregiver).Methods(http.MethodPost).Name("ApproveCaregiver")
	api.HandleFunc("/caregivers/{id}/reject", h.rejectCaregiver).Methods(http.MethodPost).Name("RejectCaregiver")
	api.HandleFunc("/caregivers/{id}/blacklist", h.blacklistCaregiver).Methods(http.MethodPost).Name("BlacklistCaregiver")
	api.HandleFunc("/caregivers/{id}/balance", h.caregiverBalance).Methods(http.MethodGet).Name("CaregiverBalance")

	// catalog
	api.HandleFunc("/services", h.listServices).Methods(http.MethodGet).Name("ListServices")
	api.HandleFunc("/services", h.createService).Methods(http.MethodPost).Name("CreateService")
	api.HandleFunc("/services/{id}", h.updateService).Methods(http.MethodPatch).Name("UpdateService")

	// bookings and payments
	api.HandleFunc("/bookings", h.createBooking).Methods(http.MethodPost).Name("CreateBooking")
	api.HandleFunc("/bookings", h.listBookings).Methods(http.MethodGet).Name("ListBookings")
	api.HandleFunc("/bookings/{id}", h.getBooking).Methods(http.MethodGet).Name("GetBooking")
	api.HandleFunc("/bookings/{id}/transition", h.transitionBooking).Methods(http.MethodPost).Name("TransitionBooking")
	api.HandleFunc("/bookings/{id}/payments", h.initiatePayment).Methods(http.MethodPost).Name("InitiatePayment")
	api.HandleFunc("/payments/callback", h.gatewayCallback).Methods(http.MethodPost).Name("GatewayCallback")

	// moderation
	api.HandleFunc("/reports", h.submitReport).Methods(http.MethodPost).Name("SubmitReport")
	api.HandleFunc("/reports", h.listReports).Methods(http.MethodGet).Name("ListReports")
	api.HandleFunc("/reports/{id}/approve", h.approveReport).Methods(http.MethodPost).Name("ApproveReport")
	api.HandleFunc("/reports/{id}/reject", h.rejectReport).Methods(http.MethodPost).Name("RejectReport")
	api.HandleFunc("/blacklist", h.listBlacklist).Methods(http.MethodGet).Name("ListBlacklist")
	api.HandleFunc("/blacklist/{id}", h.unblacklist).Methods(http.MethodDelete).Name("Unblacklist")

	api.HandleFunc("/analytics", h.getAnalytics).Methods(http.MethodGet).Name("GetAnalytics")

	root.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: domain.Error{Code: domain.ErrNotFound.Code, Message: "route not found"}})
	})

	return requestLogger(recoverer(root))
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func pathID(r *http.Request) string {
	return mux.Vars(r)["id"]
}
