package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/Perlovich/phone-sharing-service/internal/phone"
)

const (
	CodeNotFound               = "NOT_FOUND"
	CodeAlreadyBooked          = "ALREADY_BOOKED"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeValidation             = "VALIDATION_ERROR"
	CodeBadRequest             = "BAD_REQUEST"
	CodeInternal               = "INTERNAL_ERROR"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps ledger errors to their HTTP status. Unknown errors are
// logged and hidden behind a generic 500.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, CodeInternal
	switch {
	case errors.Is(err, phone.ErrNotFound):
		status, code = http.StatusNotFound, CodeNotFound
	case errors.Is(err, phone.ErrAlreadyBooked):
		status, code = http.StatusConflict, CodeAlreadyBooked
	case errors.Is(err, phone.ErrConcurrentModification):
		status, code = http.StatusConflict, CodeConcurrentModification
	case errors.Is(err, phone.ErrInvalidBooker):
		status, code = http.StatusUnprocessableEntity, CodeValidation
	}

	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "request_id", middleware.GetReqID(r.Context()), "path", r.URL.Path, "error", err)
		writeProblem(w, status, code, "internal error")
		return
	}

	h.log.Warn("request rejected", "request_id", middleware.GetReqID(r.Context()), "status", status, "error", err)
	writeProblem(w, status, code, err.Error())
}

func writeProblem(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
