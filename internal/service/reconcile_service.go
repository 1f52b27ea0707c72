package service

import (
	"context"
	"fmt"
	"time"

	"shopfront/internal/email"
	"shopfront/internal/model"
	"shopfront/internal/notify"
	"shopfront/internal/payment"
	"shopfront/internal/repository"

	"github.com/rs/zerolog"
)

// reconcileService implements ReconcileService. It is the only writer
// of asynchronous payment outcomes, and the terminal-state check in
// HandleMpesaCallback is the ordering safeguard against duplicate and
// out-of-order callback delivery: the first terminal state wins.
type reconcileService struct {
	orders      repository.OrderRepository
	callbackLog payment.CallbackLog
	publisher   notify.Publisher
	emailer     email.Sender
	logger      zerolog.Logger
	now         func() time.Time
}

// NewReconcileService creates a new reconciliation handler.
func NewReconcileService(
	orders repository.OrderRepository,
	callbackLog payment.CallbackLog,
	publisher notify.Publisher,
	emailer email.Sender,
	logger zerolog.Logger,
) ReconcileService {
	return &reconcileService{
		orders:      orders,
		callbackLog: callbackLog,
		publisher:   publisher,
		emailer:     emailer,
		logger:      logger.With().Str("service", "reconcile").Logger(),
		now:         time.Now,
	}
}

// HandleMpesaCallback correlates one provider callback with the order
// that triggered it and applies the outcome exactly once. The caller
// acknowledges the provider no matter what this returns.
func (s *reconcileService) HandleMpesaCallback(ctx context.Context, callback *payment.Callback) error {
	if callback == nil {
		return fmt.Errorf("nil callback")
	}
	if err := callback.Validate(); err != nil {
		s.logger.Warn().Err(err).Msg("malformed callback rejected")
		return fmt.Errorf("malformed callback: %w", err)
	}

	key := callback.CorrelationKey()
	logger := s.logger.With().Str("correlation_key", key).Logger()

	if s.callbackLog.Seen(ctx, key) {
		// Audit signal only; the order-state check below still
		// decides whether anything is applied.
		logger.Info().Msg("callback correlation key seen before")
	}

	order, err := s.orders.GetByCorrelationKey(ctx, key)
	if err != nil {
		logger.Error().Err(err).Msg("failed to look up order for callback")
		return fmt.Errorf("failed to look up order: %w", err)
	}
	if order == nil {
		// Unmatched callbacks are acknowledged, not retried: a non-2xx
		// here would only trigger a provider retry storm for a
		// callback we will never match.
		logger.Warn().Msg("no order matches callback, acknowledging")
		return nil
	}

	logger = logger.With().Str("order_id", order.ID.String()).Logger()

	if order.Payment.Status.Terminal() {
		logger.Info().
			Str("payment_status", string(order.Payment.Status)).
			Msg("duplicate callback for settled payment, no-op")
		return nil
	}

	if callback.Success() {
		return s.applySuccess(ctx, order, callback, logger)
	}
	return s.applyFailure(ctx, order, callback, logger)
}

func (s *reconcileService) applySuccess(ctx context.Context, order *model.Order, callback *payment.Callback, logger zerolog.Logger) error {
	if err := order.MarkPaid(callback.ReceiptNumber(), s.now()); err != nil {
		// The order moved outside the payable states while the
		// callback was in flight (e.g. cancelled concurrently). The
		// payment record still captures the settlement for follow-up.
		logger.Warn().Err(err).
			Str("status", string(order.Status)).
			Msg("payment settled for order outside payable state")
		order.Payment.Status = model.PaymentCompleted
		order.Payment.ProviderTxnID = callback.ReceiptNumber()
		completedAt := s.now()
		order.Payment.CompletedAt = &completedAt
	}

	if err := s.orders.Update(ctx, order); err != nil {
		logger.Error().Err(err).Msg("failed to persist payment completion")
		return fmt.Errorf("failed to persist payment completion: %w", err)
	}

	s.callbackLog.Record(ctx, callback.CorrelationKey())

	s.publisher.Publish(model.NewNotification(order.UserID, model.NotifyPaymentCompleted, map[string]any{
		"orderId":     order.ID.String(),
		"orderNumber": order.OrderNumber,
		"amount":      callback.Amount(),
		"receipt":     callback.ReceiptNumber(),
	}))
	s.publisher.Publish(model.NewNotification(model.AudienceAdmin, model.NotifyPaymentCompleted, map[string]any{
		"orderId":     order.ID.String(),
		"orderNumber": order.OrderNumber,
		"amount":      callback.Amount(),
	}))
	s.emailer.Send(ctx, order.UserID, email.TemplatePaymentReceipt, map[string]any{
		"orderNumber": order.OrderNumber,
		"receipt":     callback.ReceiptNumber(),
	})

	logger.Info().
		Str("receipt", callback.ReceiptNumber()).
		Msg("payment reconciled")

	return nil
}

func (s *reconcileService) applyFailure(ctx context.Context, order *model.Order, callback *payment.Callback, logger zerolog.Logger) error {
	// A failed payment is not a cancellation: the order keeps its
	// pre-payment status and its stock reservation so the customer
	// can retry or explicitly cancel.
	order.MarkPaymentFailed(callback.FailureReason(), s.now())

	if err := s.orders.Update(ctx, order); err != nil {
		logger.Error().Err(err).Msg("failed to persist payment failure")
		return fmt.Errorf("failed to persist payment failure: %w", err)
	}

	s.callbackLog.Record(ctx, callback.CorrelationKey())

	s.publisher.Publish(model.NewNotification(order.UserID, model.NotifyPaymentFailed, map[string]any{
		"orderId":     order.ID.String(),
		"orderNumber": order.OrderNumber,
		"reason":      callback.FailureReason(),
	}))
	s.emailer.Send(ctx, order.UserID, email.TemplatePaymentFailed, map[string]any{
		"orderNumber": order.OrderNumber,
		"reason":      callback.FailureReason(),
	})

	logger.Info().
		Str("reason", callback.FailureReason()).
		Msg("payment failure reconciled")

	return nil
}
