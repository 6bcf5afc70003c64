package http

import (
	"net/http"

	"carehub-backend/internal/domain"
)

type submitReportRequest struct {
	BookingID   string `json:"booking_id" validate:"required"`
	Reason      string `json:"reason" validate:"required,max=1000"`
	Description string `json:"description" validate:"max=4000"`
}

func (h *handler) submitReport(w http.ResponseWriter, r *http.Request) {
	var req submitReportRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	report, err := h.svc.Moderation.SubmitReport(r.Context(), actorFrom(r.Context()), req.BookingID, req.Reason, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, report)
}

func (h *handler) listReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.svc.Moderation.ListReports(r.Context(), actorFrom(r.Context()), domain.ReportStatus(r.URL.Query().Get("status")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, reports)
}

func (h *handler) approveReport(w http.ResponseWriter, r *http.Request) {
	entry, err := h.svc.Moderation.ApproveReport(r.Context(), actorFrom(r.Context()), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, entry)
}

func (h *handler) rejectReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Moderation.RejectReport(r.Context(), actorFrom(r.Context()), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, report)
}

func (h *handler) listBlacklist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.Moderation.ListBlacklist(r.Context(), actorFrom(r.Context()), domain.SubjectType(r.URL.Query().Get("subject_type")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, entries)
}

func (h *handler) unblacklist(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Moderation.Unblacklist(r.Context(), actorFrom(r.Context()), pathID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) getAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.Analytics.ComputeAnalytics(r.Context(), actorFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, a)
}
