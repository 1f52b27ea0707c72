// Package inventory owns per-product stock during order processing.
// Reservation and release are the only paths that move stock apart
// from direct administrative edits.
package inventory

import (
	"context"
	"fmt"

	"shopfront/internal/model"
	"shopfront/internal/repository"

	"github.com/rs/zerolog"
)

// Publisher pushes notification events. Satisfied by the notify hub.
type Publisher interface {
	Publish(event model.NotificationEvent)
}

// Ledger reserves and releases stock with all-or-nothing semantics.
type Ledger interface {
	// CheckAvailability reports stock positions without reserving.
	CheckAvailability(ctx context.Context, items []model.ReservationItem) ([]model.Availability, error)

	// Reserve decrements stock for every item, or fails as a whole
	// with *model.InsufficientStockError naming each short item.
	Reserve(ctx context.Context, items []model.ReservationItem) error

	// Release increments stock for every item.
	Release(ctx context.Context, items []model.ReservationItem) error
}

type ledger struct {
	products  repository.ProductRepository
	publisher Publisher
	threshold int
	logger    zerolog.Logger
}

// NewLedger creates an inventory ledger. Reservations that leave a
// product at or below threshold trigger a low-stock admin alert.
func NewLedger(products repository.ProductRepository, publisher Publisher, threshold int, logger zerolog.Logger) Ledger {
	return &ledger{
		products:  products,
		publisher: publisher,
		threshold: threshold,
		logger:    logger.With().Str("component", "inventory-ledger").Logger(),
	}
}

// CheckAvailability reports stock positions without reserving.
func (l *ledger) CheckAvailability(ctx context.Context, items []model.ReservationItem) ([]model.Availability, error) {
	return l.products.CheckAvailability(ctx, items)
}

// Reserve decrements stock for every item atomically.
func (l *ledger) Reserve(ctx context.Context, items []model.ReservationItem) error {
	if err := validateItems(items); err != nil {
		return err
	}

	levels, err := l.products.ReserveStock(ctx, items)
	if err != nil {
		return err
	}

	for productID, remaining := range levels {
		l.logger.Debug().
			Str("product_id", productID).
			Int("remaining", remaining).
			Msg("stock reserved")

		if remaining <= l.threshold {
			l.publisher.Publish(model.NewNotification(model.AudienceAdmin, model.NotifyLowStock, map[string]any{
				"productId": productID,
				"stock":     remaining,
			}))
		}
	}

	return nil
}

// Release increments stock for every item.
func (l *ledger) Release(ctx context.Context, items []model.ReservationItem) error {
	if err := validateItems(items); err != nil {
		return err
	}

	if err := l.products.ReleaseStock(ctx, items); err != nil {
		return err
	}

	l.logger.Debug().Int("item_count", len(items)).Msg("stock released")
	return nil
}

func validateItems(items []model.ReservationItem) error {
	if len(items) == 0 {
		return model.NewDomainError(model.ErrCodeValidation, "no items to reserve")
	}
	for _, item := range items {
		if item.ProductID == "" {
			return model.NewDomainError(model.ErrCodeValidation, "product ID is required")
		}
		if item.Quantity < 1 {
			return model.NewDomainError(model.ErrCodeValidation,
				fmt.Sprintf("invalid quantity %d for product %s", item.Quantity, item.ProductID))
		}
	}
	return nil
}
