package payment

import (
	"context"

	"shopfront/internal/model"

	"github.com/rs/zerolog"
)

// bankTransferGateway records an intent to pay by bank transfer. The
// payment stays pending until an administrator confirms receipt
// through a status update; no provider callback ever arrives.
type bankTransferGateway struct {
	logger zerolog.Logger
}

// NewBankTransferGateway creates the manual bank transfer adapter.
func NewBankTransferGateway(logger zerolog.Logger) Gateway {
	return &bankTransferGateway{
		logger: logger.With().Str("gateway", "bank_transfer").Logger(),
	}
}

// Initiate always returns ResultPending without a correlation key.
func (g *bankTransferGateway) Initiate(_ context.Context, req InitiateRequest) (Result, error) {
	if req.Amount <= 0 {
		return Result{}, model.NewInvalidPaymentInputError("invalid amount")
	}

	g.logger.Info().Str("reference", req.Reference).Msg("awaiting manual bank transfer")

	return Result{Status: ResultPending}, nil
}
