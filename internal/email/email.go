// Package email is the seam to the outbound email collaborator.
// Sends are fire-and-forget: failures are logged, never propagated
// into order processing.
package email

import (
	"context"

	"github.com/rs/zerolog"
)

// Sender sends a templated email.
type Sender interface {
	Send(ctx context.Context, to, template string, data map[string]any)
}

// Email templates used by the order lifecycle.
const (
	TemplateOrderConfirmation = "order_confirmation"
	TemplatePaymentReceipt    = "payment_receipt"
	TemplatePaymentFailed     = "payment_failed"
	TemplateOrderCancelled    = "order_cancelled"
)

// logSender is the default sender: it records the intent and lets the
// external mail pipeline pick it up.
type logSender struct {
	logger zerolog.Logger
}

// NewLogSender creates the default sender.
func NewLogSender(logger zerolog.Logger) Sender {
	return &logSender{
		logger: logger.With().Str("component", "email").Logger(),
	}
}

// Send records the send request.
func (s *logSender) Send(_ context.Context, to, template string, data map[string]any) {
	s.logger.Info().
		Str("to", to).
		Str("template", template).
		Interface("data", data).
		Msg("email queued")
}
