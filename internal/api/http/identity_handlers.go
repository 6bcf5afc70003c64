package http

import (
	"net/http"

	"carehub-backend/internal/domain"

	"github.com/shopspring/decimal"
)

type registerAccountRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=customer caregiver org_admin"`
}

type superAdminRequest struct {
	PrincipalID string `json:"principal_id" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
}

type bootstrapRequest struct {
	Email string `json:"email" validate:"omitempty,email"`
}

type commissionRequest struct {
	Rate decimal.Decimal `json:"rate"`
}

type bootstrapResponse struct {
	Account *domain.Account `json:"account"`
	Created bool            `json:"created"`
}

func (h *handler) getMe(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	account, err := h.svc.Identity.ResolveAccount(r.Context(), p.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, account)
}

func (h *handler) registerAccount(w http.ResponseWriter, r *http.Request) {
	var req registerAccountRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p := principalFrom(r.Context())
	account, err := h.svc.Identity.RegisterAccount(r.Context(), p.ID, req.Email, domain.Role(req.Role))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, account)
}

// bootstrap promotes the caller when no super admin exists yet. The email
// defaults to the one carried by the token.
func (h *handler) bootstrap(w http.ResponseWriter, r *http.Request) {
	var req bootstrapRequest
	if r.ContentLength != 0 {
		if err := decode(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	p := principalFrom(r.Context())
	email := req.Email
	if email == "" {
		email = p.Email
	}
	account, created, err := h.svc.Identity.CreateFirstSuperAdminIfNeeded(r.Context(), p.ID, email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeData(w, status, bootstrapResponse{Account: account, Created: created})
}

func (h *handler) createSuperAdmin(w http.ResponseWriter, r *http.Request) {
	var req superAdminRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	account, err := h.svc.Identity.CreateSuperAdmin(r.Context(), actorFrom(r.Context()), req.PrincipalID, req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, account)
}

func (h *handler) deleteSuperAdmin(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Identity.DeleteSuperAdmin(r.Context(), actorFrom(r.Context()), pathID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) setDefaultCommission(w http.ResponseWriter, r *http.Request) {
	var req commissionRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Organizations.SetDefaultCommissionRate(r.Context(), actorFrom(r.Context()), req.Rate); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]decimal.Decimal{"rate": req.Rate})
}
