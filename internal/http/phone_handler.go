package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/Perlovich/phone-sharing-service/internal/logger"
	"github.com/Perlovich/phone-sharing-service/internal/sharing"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type PhoneSharing interface {
	ListPhones(ctx context.Context) ([]sharing.PhoneView, error)
	BookPhone(ctx context.Context, id uuid.UUID, bookerName string) error
	ReturnPhone(ctx context.Context, id uuid.UUID) error
}

type Handler struct {
	svc PhoneSharing
	log logger.Logger
}

func NewHandler(svc PhoneSharing, log logger.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) ListPhones(w http.ResponseWriter, r *http.Request) {
	phones, err := h.svc.ListPhones(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, phones)
}

type bookRequest struct {
	BookerName *string `json:"bookerName"`
}

// BookPhone books without any authentication: any name may be used.
func (h *Handler) BookPhone(w http.ResponseWriter, r *http.Request) {
	id, ok := h.phoneID(w, r)
	if !ok {
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, CodeBadRequest, "request body must be a JSON object")
		return
	}
	if req.BookerName == nil {
		writeProblem(w, http.StatusBadRequest, CodeBadRequest, "bookerName is required")
		return
	}

	if err := h.svc.BookPhone(r.Context(), id, *req.BookerName); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// ReturnPhone may be called by anyone, not only the current holder.
func (h *Handler) ReturnPhone(w http.ResponseWriter, r *http.Request) {
	id, ok := h.phoneID(w, r)
	if !ok {
		return
	}

	if err := h.svc.ReturnPhone(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) phoneID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "phoneId"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, CodeBadRequest, "phoneId must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
