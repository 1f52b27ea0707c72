package handler

import (
	"encoding/json"
	"net/http"

	"shopfront/internal/inventory"
	"shopfront/internal/model"
	"shopfront/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// InventoryHandler exposes availability checks and direct
// administrative stock edits, the only stock path besides the
// ledger's reserve/release.
type InventoryHandler struct {
	ledger   inventory.Ledger
	products repository.ProductRepository
	logger   zerolog.Logger
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(ledger inventory.Ledger, products repository.ProductRepository, logger zerolog.Logger) *InventoryHandler {
	return &InventoryHandler{
		ledger:   ledger,
		products: products,
		logger:   logger.With().Str("handler", "inventory").Logger(),
	}
}

// availabilityRequest is the check-availability payload.
type availabilityRequest struct {
	Items []model.OrderItemRequest `json:"items"`
}

// CheckAvailability handles POST /api/inventory/availability. It is
// read-only and reserves nothing.
func (h *InventoryHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "items are required", h.logger)
		return
	}

	items := make([]model.ReservationItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = model.ReservationItem{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	availability, err := h.ledger.CheckAvailability(r.Context(), items)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, availability)
}

// GetStock handles GET /api/admin/inventory/{productId}.
func (h *InventoryHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	product, err := h.products.GetByID(r.Context(), productID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	if product == nil {
		writeError(w, http.StatusNotFound, model.ErrCodeNotFound, "product not found", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// adjustStockRequest is the administrative stock edit payload.
type adjustStockRequest struct {
	Delta int `json:"delta"`
}

// AdjustStock handles POST /api/admin/inventory/{productId}/adjust.
func (h *InventoryHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	var req adjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}
	if req.Delta == 0 {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "delta must be non-zero", h.logger)
		return
	}

	if err := h.products.AdjustStock(r.Context(), productID, req.Delta); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	product, err := h.products.GetByID(r.Context(), productID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}
