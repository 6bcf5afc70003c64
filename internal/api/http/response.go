package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"carehub-backend/internal/domain"
	"carehub-backend/internal/logger"
	"carehub-backend/internal/security"
)

type errorBody struct {
	Error domain.Error `json:"error"`
}

// envelope wraps every successful payload. Warnings carries best-effort steps
// that failed after the primary write committed.
type envelope struct {
	Data     any              `json:"data"`
	Warnings []domain.Warning `json:"warnings,omitempty"`
	Total    *int             `json:"total,omitempty"`
}

var statusByCode = map[string]int{
	domain.ErrNotFound.Code:            http.StatusNotFound,
	domain.ErrProfileMissing.Code:      http.StatusNotFound,
	domain.ErrForbidden.Code:           http.StatusForbidden,
	domain.ErrInvalidTransition.Code:   http.StatusConflict,
	domain.ErrConflict.Code:            http.StatusConflict,
	domain.ErrValidation.Code:          http.StatusBadRequest,
	domain.ErrPaymentMismatch.Code:     http.StatusUnprocessableEntity,
	domain.ErrGatewayTimeout.Code:      http.StatusGatewayTimeout,
	domain.ErrHasActiveBookings.Code:   http.StatusConflict,
	domain.ErrAlreadySettled.Code:      http.StatusConflict,
	domain.ErrCustomerBlacklisted.Code: http.StatusForbidden,
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Data: data})
}

func writeResult(w http.ResponseWriter, status int, data any, warnings []domain.Warning) {
	writeJSON(w, status, envelope{Data: data, Warnings: warnings})
}

// writeError maps err onto the error taxonomy. Foreign errors are logged and
// reported as INTERNAL without their message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, security.ErrExpiredToken), errors.Is(err, security.ErrInvalidToken):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: domain.Error{Code: "UNAUTHENTICATED", Message: err.Error()}})
		return
	}

	code := domain.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		logger.ErrorContext(r.Context(), "Unhandled error", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: domain.Error{Code: "INTERNAL", Message: "internal server error"}})
		return
	}
	writeJSON(w, status, errorBody{Error: domain.Error{Code: code, Message: err.Error()}})
}
