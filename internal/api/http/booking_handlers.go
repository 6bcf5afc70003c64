package http

import (
	"net/http"
	"strconv"

	"carehub-backend/internal/domain"
	"carehub-backend/internal/service"
)

type createBookingRequest struct {
	CaregiverID   string `json:"caregiver_id" validate:"required"`
	ServiceID     string `json:"service_id"`
	Date          string `json:"date" validate:"required"`
	Time          string `json:"time" validate:"required"`
	DurationHours int    `json:"duration_hours" validate:"required,gt=0"`
	Address       string `json:"address" validate:"required,max=500"`
	Notes         string `json:"notes" validate:"max=2000"`
	PaymentMethod string `json:"payment_method" validate:"required,oneof=cash gateway"`
}

type transitionRequest struct {
	Status string `json:"status" validate:"required,oneof=accepted completed cancelled"`
}

type callbackRequest struct {
	ReferenceID   string `json:"reference_id" validate:"required"`
	Amount        int64  `json:"amount" validate:"gte=0"`
	Status        string `json:"status" validate:"required"`
	TransactionID string `json:"transaction_id"`
	Signature     string `json:"signature" validate:"required,hexadecimal"`
}

func (h *handler) createBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Bookings.CreateBooking(r.Context(), actorFrom(r.Context()), service.BookingRequest{
		CaregiverID:   req.CaregiverID,
		ServiceID:     req.ServiceID,
		Date:          req.Date,
		Time:          req.Time,
		DurationHours: req.DurationHours,
		Address:       req.Address,
		Notes:         req.Notes,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusCreated, res.Value, res.Warnings)
}

func (h *handler) listBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := queryInt(q.Get("page"), 1)
	if err != nil {
		writeError(w, r, err)
		return
	}
	pageSize, err := queryInt(q.Get("page_size"), 20)
	if err != nil {
		writeError(w, r, err)
		return
	}
	bookings, total, err := h.svc.Bookings.ListBookings(r.Context(), actorFrom(r.Context()), domain.BookingStatus(q.Get("status")), page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: bookings, Total: &total})
}

func queryInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, domain.Errorf(domain.ErrValidation, "invalid positive integer %q", raw)
	}
	return n, nil
}

func (h *handler) getBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Bookings.GetBooking(r.Context(), actorFrom(r.Context()), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, b)
}

func (h *handler) transitionBooking(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Bookings.Transition(r.Context(), actorFrom(r.Context()), pathID(r), domain.BookingStatus(req.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, res.Value, res.Warnings)
}

func (h *handler) initiatePayment(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.Payments.InitiatePayment(r.Context(), actorFrom(r.Context()), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, session)
}

// gatewayCallback is unauthenticated; the payment service checks the
// signature and asks the gateway before settling anything.
func (h *handler) gatewayCallback(w http.ResponseWriter, r *http.Request) {
	var req callbackRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Payments.HandleGatewayCallback(r.Context(), domain.GatewayCallback{
		ReferenceID:   req.ReferenceID,
		Amount:        req.Amount,
		Status:        domain.GatewayStatus(req.Status),
		TransactionID: req.TransactionID,
		Signature:     req.Signature,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, res.Value, res.Warnings)
}
