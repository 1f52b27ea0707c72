package handler

import (
	"encoding/json"
	"net/http"

	"shopfront/internal/payment"
	"shopfront/internal/service"

	"github.com/rs/zerolog"
)

// CallbackHandler receives asynchronous provider callbacks. The
// endpoint is unauthenticated by necessity and always acknowledges
// with a 200: a non-2xx only makes the provider retry a callback we
// already decided about. Internal outcomes are logged, never
// surfaced.
type CallbackHandler struct {
	reconcile service.ReconcileService
	logger    zerolog.Logger
}

// NewCallbackHandler creates a new payment callback handler.
func NewCallbackHandler(reconcile service.ReconcileService, logger zerolog.Logger) *CallbackHandler {
	return &CallbackHandler{
		reconcile: reconcile,
		logger:    logger.With().Str("handler", "callback").Logger(),
	}
}

// callbackAck is the acknowledgement body the provider expects.
type callbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

// Mpesa handles POST /api/payments/callbacks/mpesa.
func (h *CallbackHandler) Mpesa(w http.ResponseWriter, r *http.Request) {
	var callback payment.Callback
	if err := json.NewDecoder(r.Body).Decode(&callback); err != nil {
		h.logger.Warn().Err(err).Msg("undecodable callback payload")
		writeJSON(w, http.StatusOK, callbackAck{ResultCode: 0, ResultDesc: "Accepted"})
		return
	}

	if err := h.reconcile.HandleMpesaCallback(r.Context(), &callback); err != nil {
		h.logger.Error().Err(err).Msg("callback reconciliation failed")
	}

	writeJSON(w, http.StatusOK, callbackAck{ResultCode: 0, ResultDesc: "Accepted"})
}
