package handler

import (
	"encoding/json"
	"net/http"

	"shopfront/internal/auth"
	"shopfront/internal/model"
	"shopfront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	checkout service.CheckoutService
	orders   service.OrderService
	logger   zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(checkout service.CheckoutService, orders service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		checkout: checkout,
		orders:   orders,
		logger:   logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "authentication required", h.logger)
		return
	}

	var req model.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	resp, err := h.checkout.CreateOrder(r.Context(), identity, &req)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Get handles GET /api/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, id, ok := h.identityAndID(w, r)
	if !ok {
		return
	}

	order, err := h.orders.Get(r.Context(), identity, id)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// List handles GET /api/orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "authentication required", h.logger)
		return
	}

	orders, err := h.orders.ListMine(r.Context(), identity)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}

	writeJSON(w, http.StatusOK, orders)
}

// Cancel handles POST /api/orders/{id}/cancel.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	identity, id, ok := h.identityAndID(w, r)
	if !ok {
		return
	}

	order, err := h.orders.Cancel(r.Context(), identity, id)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// RetryPayment handles POST /api/orders/{id}/pay.
func (h *OrderHandler) RetryPayment(w http.ResponseWriter, r *http.Request) {
	identity, id, ok := h.identityAndID(w, r)
	if !ok {
		return
	}

	var req model.CreateOrderRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
			return
		}
	}

	resp, err := h.checkout.RetryPayment(r.Context(), identity, id, &req)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Invoice handles GET /api/orders/{id}/invoice.
func (h *OrderHandler) Invoice(w http.ResponseWriter, r *http.Request) {
	identity, id, ok := h.identityAndID(w, r)
	if !ok {
		return
	}

	doc, err := h.orders.Invoice(r.Context(), identity, id)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

// UpdateStatus handles PUT /api/admin/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	var req model.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), id, &req)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Delete handles DELETE /api/admin/orders/{id}.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	if err := h.orders.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandler) orderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid order ID format", h.logger)
		return uuid.Nil, false
	}
	return id, true
}

func (h *OrderHandler) identityAndID(w http.ResponseWriter, r *http.Request) (*auth.Identity, uuid.UUID, bool) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "authentication required", h.logger)
		return nil, uuid.Nil, false
	}
	id, ok := h.orderID(w, r)
	if !ok {
		return nil, uuid.Nil, false
	}
	return identity, id, true
}
