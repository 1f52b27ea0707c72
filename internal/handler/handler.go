package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"shopfront/internal/model"

	"github.com/rs/zerolog"
)

// writeJSON writes a JSON response with the given status code. The
// status line is already on the wire when encoding starts, so an
// encoding failure cannot be reported to the client; it surfaces as a
// truncated body.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, code, message string, logger zerolog.Logger) {
	logger.Error().Str("error", message).Int("status", status).Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{Error: code, Message: message})
}

// writeDomainError maps the error taxonomy onto HTTP statuses with
// enough structure for the caller to act.
func writeDomainError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var short *model.InsufficientStockError
	if errors.As(err, &short) {
		logger.Info().Int("short_items", len(short.Shortages)).Msg("insufficient stock")
		writeJSON(w, http.StatusConflict, model.ErrorResponse{
			Error:     model.ErrCodeInsufficientStock,
			Message:   short.Error(),
			Shortages: short.Shortages,
		})
		return
	}

	var invalidState *model.InvalidStateError
	if errors.As(err, &invalidState) {
		writeError(w, http.StatusConflict, model.ErrCodeInvalidState, invalidState.Error(), logger)
		return
	}

	var payErr *model.PaymentError
	if errors.As(err, &payErr) {
		status := http.StatusBadRequest
		switch payErr.Code {
		case model.ErrCodeProviderUnavailable:
			status = http.StatusBadGateway
		case model.ErrCodeProviderRejected:
			status = http.StatusPaymentRequired
		}
		writeError(w, status, payErr.Code, payErr.Error(), logger)
		return
	}

	var domainErr *model.DomainError
	if errors.As(err, &domainErr) {
		status := http.StatusInternalServerError
		switch domainErr.Code {
		case model.ErrCodeValidation, model.ErrCodeProductNotFound, model.ErrCodeInvalidJSON:
			status = http.StatusBadRequest
		case model.ErrCodeNotFound:
			status = http.StatusNotFound
		case model.ErrCodeUnauthorised:
			status = http.StatusUnauthorized
		case model.ErrCodeForbidden:
			status = http.StatusForbidden
		}
		writeError(w, status, domainErr.Code, domainErr.Message, logger)
		return
	}

	writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error", logger)
}
