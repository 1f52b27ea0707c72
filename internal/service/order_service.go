package service

import (
	"context"
	"fmt"
	"time"

	"shopfront/internal/auth"
	"shopfront/internal/email"
	"shopfront/internal/inventory"
	"shopfront/internal/invoice"
	"shopfront/internal/model"
	"shopfront/internal/notify"
	"shopfront/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// orderService implements OrderService.
type orderService struct {
	orders    repository.OrderRepository
	ledger    inventory.Ledger
	publisher notify.Publisher
	emailer   email.Sender
	renderer  invoice.Renderer
	logger    zerolog.Logger
	now       func() time.Time
}

// NewOrderService creates a new order lifecycle service.
func NewOrderService(
	orders repository.OrderRepository,
	ledger inventory.Ledger,
	publisher notify.Publisher,
	emailer email.Sender,
	renderer invoice.Renderer,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orders:    orders,
		ledger:    ledger,
		publisher: publisher,
		emailer:   emailer,
		renderer:  renderer,
		logger:    logger.With().Str("service", "order").Logger(),
		now:       time.Now,
	}
}

// Get retrieves an order visible to the caller.
func (s *orderService) Get(ctx context.Context, identity *auth.Identity, id uuid.UUID) (*model.Order, error) {
	order, err := s.visibleOrder(ctx, identity, id)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ListMine retrieves the caller's orders.
func (s *orderService) ListMine(ctx context.Context, identity *auth.Identity) ([]model.Order, error) {
	orders, err := s.orders.ListByUser(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// Cancel cancels a pending or processing order and releases its
// stock. This is the only customer-facing path that returns reserved
// units to inventory.
func (s *orderService) Cancel(ctx context.Context, identity *auth.Identity, id uuid.UUID) (*model.Order, error) {
	order, err := s.visibleOrder(ctx, identity, id)
	if err != nil {
		return nil, err
	}

	if !order.Status.CanCancel() {
		s.logger.Info().
			Str("order_id", id.String()).
			Str("status", string(order.Status)).
			Msg("cancel rejected")
		return nil, model.NewInvalidStateError(order.Status, model.EventCancel)
	}

	// Claim the transition before touching stock. The conditional
	// write is the real guard: the snapshot check above can race a
	// concurrent cancel or a sweeper tick, and only the caller whose
	// UPDATE transitions the row may release the reservation.
	now := s.now()
	cancelled, err := s.orders.CancelIfActive(ctx, id, now)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}
	if !cancelled {
		status := order.Status
		if current, err := s.orders.GetByID(ctx, id); err == nil && current != nil {
			status = current.Status
		}
		return nil, model.NewInvalidStateError(status, model.EventCancel)
	}

	if err := order.Apply(model.EventCancel, now); err != nil {
		return nil, err
	}

	if err := s.ledger.Release(ctx, order.ReservationItems()); err != nil {
		// The cancellation already won; a failed release is an
		// inventory correction to chase, not a reason to resurrect
		// the order.
		s.logger.Error().Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to release stock for cancelled order")
	}

	s.publisher.Publish(model.NewNotification(order.UserID, model.NotifyOrderCancelled, map[string]any{
		"orderId":     order.ID.String(),
		"orderNumber": order.OrderNumber,
	}))
	s.emailer.Send(ctx, order.UserID, email.TemplateOrderCancelled, map[string]any{
		"orderNumber": order.OrderNumber,
	})

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("cancelled_by", identity.UserID).
		Msg("order cancelled")

	return order, nil
}

// UpdateStatus applies an admin status change.
func (s *orderService) UpdateStatus(ctx context.Context, id uuid.UUID, req *model.UpdateStatusRequest) (*model.Order, error) {
	if req == nil || (req.Event == "" && req.Status == "") {
		return nil, model.NewDomainError(model.ErrCodeValidation, "event or status is required")
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	now := s.now()
	previous := order.Status

	switch {
	case req.Force:
		if req.Status == "" {
			return nil, model.NewDomainError(model.ErrCodeValidation, "status is required when forcing")
		}
		if err := order.Override(model.Status(req.Status), now); err != nil {
			return nil, err
		}

	case req.Event != "":
		event := model.StatusEvent(req.Event)
		if event == model.EventCancel {
			// Cancellation must go through Cancel so stock is
			// released alongside.
			return nil, model.NewDomainError(model.ErrCodeValidation, "use the cancel endpoint to cancel an order")
		}
		if event == model.EventPaymentConfirmed {
			// Manual settlement path for bank transfers.
			if err := order.MarkPaid("", now); err != nil {
				return nil, err
			}
		} else if err := order.Apply(event, now); err != nil {
			return nil, err
		}

	default:
		return nil, model.NewDomainError(model.ErrCodeValidation, "status updates require an event or force")
	}

	if req.TrackingNumber != nil {
		order.TrackingNumber = req.TrackingNumber
	}

	if err := s.orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to persist status update: %w", err)
	}

	s.publisher.Publish(model.NewNotification(order.UserID, model.NotifyStatusChanged, map[string]any{
		"orderId":     order.ID.String(),
		"orderNumber": order.OrderNumber,
		"from":        string(previous),
		"to":          string(order.Status),
	}))

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("from", string(previous)).
		Str("to", string(order.Status)).
		Bool("forced", req.Force).
		Msg("order status updated")

	return order, nil
}

// Delete removes a terminal order.
func (s *orderService) Delete(ctx context.Context, id uuid.UUID) error {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return model.ErrOrderNotFound
	}
	if !order.Status.Terminal() {
		return model.NewInvalidStateError(order.Status, "delete")
	}

	if err := s.orders.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Str("order_id", id.String()).Msg("order deleted")
	return nil
}

// Invoice renders an invoice snapshot.
func (s *orderService) Invoice(ctx context.Context, identity *auth.Identity, id uuid.UUID) ([]byte, error) {
	order, err := s.visibleOrder(ctx, identity, id)
	if err != nil {
		return nil, err
	}
	return s.renderer.Render(order)
}

// SweepStaleReservations cancels stale pending orders, releasing
// their stock. Orders abandoned mid-payment should not hold inventory
// forever.
func (s *orderService) SweepStaleReservations(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := s.orders.ListStalePending(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale orders: %w", err)
	}

	swept := 0
	for i := range stale {
		order := &stale[i]

		// Same conditional transition as customer cancellation: a
		// sweep racing a concurrent cancel must not release the same
		// reservation twice.
		now := s.now()
		cancelled, err := s.orders.CancelIfActive(ctx, order.ID, now)
		if err != nil {
			s.logger.Error().Err(err).
				Str("order_id", order.ID.String()).
				Msg("failed to cancel stale order")
			continue
		}
		if !cancelled {
			continue
		}
		if err := order.Apply(model.EventCancel, now); err != nil {
			s.logger.Error().Err(err).
				Str("order_id", order.ID.String()).
				Msg("failed to cancel stale order")
			continue
		}

		if err := s.ledger.Release(ctx, order.ReservationItems()); err != nil {
			s.logger.Error().Err(err).
				Str("order_id", order.ID.String()).
				Msg("failed to release stale reservation")
		}

		s.publisher.Publish(model.NewNotification(order.UserID, model.NotifyOrderCancelled, map[string]any{
			"orderId":     order.ID.String(),
			"orderNumber": order.OrderNumber,
			"reason":      "reservation expired",
		}))
		swept++
	}

	if swept > 0 {
		s.logger.Info().Int("swept", swept).Msg("stale reservations released")
	}

	return swept, nil
}

// visibleOrder loads an order and enforces owner-or-admin access.
func (s *orderService) visibleOrder(ctx context.Context, identity *auth.Identity, id uuid.UUID) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	if order.UserID != identity.UserID && !identity.Admin() {
		return nil, model.ErrForbidden
	}
	return order, nil
}
