package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/apperr"
)

type errorResponse struct {
	Code    apperr.Kind `json:"code"`
	Message string      `json:"message"`
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindCustomerNotFound, apperr.KindHelperNotFound, apperr.KindAppointmentNotFound, apperr.KindChecklistNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidDate, apperr.KindInvalidInput:
		return http.StatusBadRequest
	case apperr.KindInvalidTransition, apperr.KindSlotTaken:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"code", "message"}. Unexpected errors were logged by the
// service and only a generic message leaves the process.
func writeError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	body := errorResponse{Code: kind, Message: "internal error"}
	if kind != apperr.KindUnexpected {
		var ae *apperr.Error
		if errors.As(err, &ae) && ae.Message != "" {
			body.Message = ae.Message
		} else {
			body.Message = string(kind)
		}
	}
	writeJSON(w, statusFor(kind), body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.InvalidInput("invalid json body")
	}
	return nil
}
