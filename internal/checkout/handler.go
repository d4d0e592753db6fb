package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/sebuszqo/PaymentWidget/internal/auth"
	"net/http"
)

type ServiceInterface interface {
	Open(ctx context.Context, token string, serviceID int) (View, error)
	Get(ctx context.Context, id, owner string) (View, error)
	EditField(ctx context.Context, id, owner, name, value string) (View, error)
	CheckAccount(ctx context.Context, id, owner string) (View, error)
	Submit(ctx context.Context, id, owner string) (View, error)
	Close(ctx context.Context, id, owner string) error
}

type Handler struct {
	service      ServiceInterface
	respondJSON  func(w http.ResponseWriter, status int, payload interface{})
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string)
}

func NewHandler(
	service ServiceInterface,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string),
) *Handler {
	if service == nil || respondJSON == nil || respondError == nil {
		panic("Service and response functions must not be nil")
	}
	return &Handler{
		service:      service,
		respondJSON:  respondJSON,
		respondError: respondError,
	}
}

type openRequest struct {
	ServiceID int `json:"serviceId"`
}

type fieldRequest struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Token is required")
		return
	}

	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.ServiceID <= 0 {
		h.respondError(w, http.StatusBadRequest, "serviceId is required")
		return
	}

	view, err := h.service.Open(r.Context(), claims.Raw, req.ServiceID)
	if err != nil {
		h.respondError(w, http.StatusBadGateway, "Failed to load service")
		return
	}
	h.respondJSON(w, http.StatusCreated, view)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	view, err := h.service.Get(r.Context(), r.PathValue("checkoutID"), owner)
	h.respondView(w, view, err)
}

func (h *Handler) EditField(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req fieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	view, err := h.service.EditField(r.Context(), r.PathValue("checkoutID"), owner, req.Name, req.Value)
	h.respondView(w, view, err)
}

func (h *Handler) CheckAccount(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	view, err := h.service.CheckAccount(r.Context(), r.PathValue("checkoutID"), owner)
	h.respondView(w, view, err)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	view, err := h.service.Submit(r.Context(), r.PathValue("checkoutID"), owner)
	h.respondView(w, view, err)
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	if err := h.service.Close(r.Context(), r.PathValue("checkoutID"), owner); err != nil {
		h.respondFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Token is required")
		return "", false
	}
	return claims.Raw, true
}

func (h *Handler) respondView(w http.ResponseWriter, view View, err error) {
	if err != nil {
		h.respondFailure(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, view)
}

func (h *Handler) respondFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrCheckoutNotFound), errors.Is(err, ErrCheckoutClosed):
		h.respondError(w, http.StatusNotFound, "Checkout not found")
	case errors.Is(err, ErrCheckoutBusy):
		h.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrSubmitted):
		h.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrUnknownField), errors.Is(err, ErrFieldLocked):
		h.respondError(w, http.StatusBadRequest, err.Error())
	default:
		h.respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
