package http

import (
	"net/http"
	"strconv"

	"carehub-backend/internal/domain"
)

type organizationRequest struct {
	Name            string `json:"name" validate:"required,max=200"`
	AdminName       string `json:"admin_name" validate:"max=200"`
	AdminEmail      string `json:"admin_email" validate:"required,email"`
	BusinessPhone   string `json:"business_phone" validate:"max=40"`
	BusinessAddress string `json:"business_address" validate:"max=500"`
	BusinessCity    string `json:"business_city" validate:"max=100"`
}

func (req organizationRequest) toDomain(id string) *domain.Organization {
	return &domain.Organization{
		ID:              id,
		Name:            req.Name,
		AdminName:       req.AdminName,
		AdminEmail:      req.AdminEmail,
		BusinessPhone:   req.BusinessPhone,
		BusinessAddress: req.BusinessAddress,
		BusinessCity:    req.BusinessCity,
	}
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

type blacklistRequest struct {
	Reason      string `json:"reason" validate:"required,max=1000"`
	Description string `json:"description" validate:"max=4000"`
}

type caregiverRequest struct {
	Name            string   `json:"name" validate:"required,max=200"`
	Location        string   `json:"location" validate:"max=200"`
	Phone           string   `json:"phone" validate:"max=40"`
	Category        string   `json:"category" validate:"required,oneof=caregiver household both"`
	WorkType        string   `json:"work_type" validate:"required,oneof=full_time part_time"`
	Shifts          []string `json:"shifts" validate:"dive,required"`
	ServicesOffered []string `json:"services_offered" validate:"dive,required"`
	HourlyRate      int64    `json:"hourly_rate" validate:"gte=0"`
	Experience      int      `json:"experience" validate:"gte=0"`
	ProfileImageURL string   `json:"profile_image_url" validate:"omitempty,url"`
	OrganizationID  *string  `json:"organization_id"`
	IsAvailable     *bool    `json:"is_available"`
	// AccountID names the caregiver's own account when an admin creates the
	// profile. Caregivers creating their own profile leave it empty.
	AccountID string `json:"account_id"`
}

// toDomain builds the profile; new profiles are available unless the caller
// says otherwise. Updates ignore availability, it has its own route.
func (req caregiverRequest) toDomain(id string) *domain.Caregiver {
	return &domain.Caregiver{
		ID:              id,
		Name:            req.Name,
		Location:        req.Location,
		Phone:           req.Phone,
		Category:        domain.Category(req.Category),
		WorkType:        domain.WorkType(req.WorkType),
		Shifts:          req.Shifts,
		ServicesOffered: req.ServicesOffered,
		HourlyRate:      req.HourlyRate,
		Experience:      req.Experience,
		ProfileImageURL: req.ProfileImageURL,
		OrganizationID:  req.OrganizationID,
		IsAvailable:     req.IsAvailable == nil || *req.IsAvailable,
	}
}

type availabilityRequest struct {
	Available *bool `json:"available" validate:"required"`
}

type serviceRequest struct {
	Label          string  `json:"label" validate:"required,max=200"`
	Category       string  `json:"category" validate:"required,oneof=caregiver household both"`
	OrganizationID *string `json:"organization_id"`
}

// organizations

func (h *handler) registerOrganization(w http.ResponseWriter, r *http.Request) {
	var req organizationRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Organizations.RegisterOrganization(r.Context(), actorFrom(r.Context()), req.toDomain(""))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusCreated, res.Value, res.Warnings)
}

// listOrganizations shows approved organizations; ?all=true includes the rest
// and only matters to super admins, so it is ignored for anonymous callers.
func (h *handler) listOrganizations(w http.ResponseWriter, r *http.Request) {
	approvedOnly := true
	if all, _ := strconv.ParseBool(r.URL.Query().Get("all")); all {
		approvedOnly = !h.callerIsSuperAdmin(r)
	}
	orgs, err := h.svc.Organizations.ListOrganizations(r.Context(), approvedOnly)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, orgs)
}

func (h *handler) callerIsSuperAdmin(r *http.Request) bool {
	actor, ok := h.auth.optionalActor(r)
	return ok && actor.IsSuperAdmin()
}

func (h *handler) getOrganization(w http.ResponseWriter, r *http.Request) {
	org, err := h.svc.Organizations.GetOrganization(r.Context(), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, org)
}

func (h *handler) updateOrganization(w http.ResponseWriter, r *http.Request) {
	var req organizationRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	org, err := h.svc.Organizations.UpdateOrganization(r.Context(), actorFrom(r.Context()), req.toDomain(pathID(r)))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, org)
}

func (h *handler) deleteOrganization(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Organizations.DeleteOrganization(r.Context(), actorFrom(r.Context()), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, nil, res.Warnings)
}

func (h *handler) approveOrganization(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Organizations.ApproveOrganization(r.Context(), actorFrom(r.Context()), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, res.Value, res.Warnings)
}

func (h *handler) rejectOrganization(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Organizations.RejectOrganization(r.Context(), actorFrom(r.Context()), pathID(r), req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, res.Value, res.Warnings)
}

func (h *handler) setCommissionRate(w http.ResponseWriter, r *http.Request) {
	var req commissionRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	org, err := h.svc.Organizations.SetCommissionRate(r.Context(), actorFrom(r.Context()), pathID(r), req.Rate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, org)
}

func (h *handler) blacklistOrganization(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Moderation.BlacklistOrganization(r.Context(), actorFrom(r.Context()), pathID(r), req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusCreated, res.Value, res.Warnings)
}

func (h *handler) listOrganizationCaregivers(w http.ResponseWriter, r *http.Request) {
	caregivers, err := h.svc.Caregivers.ListOrganizationCaregivers(r.Context(), actorFrom(r.Context()), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, caregivers)
}

// caregivers

func (h *handler) createCaregiver(w http.ResponseWriter, r *http.Request) {
	var req caregiverRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Caregivers.CreateCaregiver(r.Context(), actorFrom(r.Context()), req.toDomain(req.AccountID))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusCreated, res.Value, res.Warnings)
}

func (h *handler) listCaregivers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	caregivers, err := h.svc.Caregivers.ListPublicCaregivers(r.Context(), domain.Category(q.Get("category")), q.Get("service_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, caregivers)
}

func (h *handler) getCaregiver(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Caregivers.GetCaregiver(r.Context(), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, c)
}

func (h *handler) updateCaregiver(w http.ResponseWriter, r *http.Request) {
	var req caregiverRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.svc.Caregivers.UpdateCaregiver(r.Context(), actorFrom(r.Context()), req.toDomain(pathID(r)))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, c)
}

func (h *handler) deleteCaregiver(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Caregivers.DeleteCaregiver(r.Context(), actorFrom(r.Context()), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, nil, res.Warnings)
}

func (h *handler) setAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.svc.Caregivers.SetAvailability(r.Context(), actorFrom(r.Context()), pathID(r), *req.Available)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, c)
}

func (h *handler) approveCaregiver(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Caregivers.ApproveCaregiver(r.Context(), actorFrom(r.Context()), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, res.Value, res.Warnings)
}

func (h *handler) rejectCaregiver(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Caregivers.RejectCaregiver(r.Context(), actorFrom(r.Context()), pathID(r), req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, res.Value, res.Warnings)
}

func (h *handler) blacklistCaregiver(w http.ResponseWriter, r *http.Request) {
	var req blacklistRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := h.svc.Moderation.BlacklistCaregiver(r.Context(), actorFrom(r.Context()), pathID(r), req.Reason, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, entry)
}

func (h *handler) caregiverBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.svc.Analytics.CaregiverBalance(r.Context(), actorFrom(r.Context()), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, balance)
}

// catalog

func (h *handler) listServices(w http.ResponseWriter, r *http.Request) {
	var orgID *string
	if id := r.URL.Query().Get("organization_id"); id != "" {
		orgID = &id
	}
	services, err := h.svc.Catalog.ListServices(r.Context(), orgID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, services)
}

func (h *handler) createService(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	svc, err := h.svc.Catalog.CreateService(r.Context(), actorFrom(r.Context()), &domain.Service{
		Label:          req.Label,
		Category:       domain.Category(req.Category),
		OrganizationID: req.OrganizationID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, svc)
}

func (h *handler) updateService(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	svc, err := h.svc.Catalog.UpdateService(r.Context(), actorFrom(r.Context()), &domain.Service{
		ID:       pathID(r),
		Label:    req.Label,
		Category: domain.Category(req.Category),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, svc)
}
