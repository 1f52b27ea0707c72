package repository

import (
	"context"
	"time"

	"shopfront/internal/model"

	"github.com/google/uuid"
)

// ProductRepository defines product data access. It doubles as the
// catalog collaborator (snapshot reads) and the storage backend of
// the inventory ledger (conditional stock writes).
type ProductRepository interface {
	// GetByID retrieves a single product by its ID.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// GetByIDs retrieves multiple products by their IDs.
	GetByIDs(ctx context.Context, ids []string) ([]model.Product, error)

	// CheckAvailability reports the stock position for each requested
	// item without reserving anything.
	CheckAvailability(ctx context.Context, items []model.ReservationItem) ([]model.Availability, error)

	// ReserveStock atomically decrements stock for every item, all or
	// nothing. On success it returns the post-decrement stock level
	// per product. If any item is short the whole reservation is
	// rolled back and an *model.InsufficientStockError lists every
	// short item.
	ReserveStock(ctx context.Context, items []model.ReservationItem) (map[string]int, error)

	// ReleaseStock increments stock for every item. Unconditional:
	// released stock restores units previously taken.
	ReleaseStock(ctx context.Context, items []model.ReservationItem) error

	// AdjustStock applies an administrative stock edit.
	AdjustStock(ctx context.Context, id string, delta int) error
}

// OrderRepository defines order data access.
type OrderRepository interface {
	// Create inserts the order and its items in one transaction.
	Create(ctx context.Context, order *model.Order) error

	// GetByID retrieves an order with its items.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetByCorrelationKey retrieves the order whose payment record
	// carries the given provider correlation key. Returns nil when no
	// order matches.
	GetByCorrelationKey(ctx context.Context, key string) (*model.Order, error)

	// ListByUser retrieves a user's orders, newest first.
	ListByUser(ctx context.Context, userID string) ([]model.Order, error)

	// Update persists the order's mutable fields (status, flags,
	// payment record, tracking number, timestamps). Items are
	// immutable after creation and are not written.
	Update(ctx context.Context, order *model.Order) error

	// CancelIfActive atomically moves the order to cancelled if it is
	// still in a cancellable status, reporting whether this call won
	// the transition. The status guard runs inside the UPDATE so
	// concurrent cancels (customer, admin, sweeper) cannot both pass
	// a stale in-memory check; only the winner may release the
	// reservation.
	CancelIfActive(ctx context.Context, id uuid.UUID, cancelledAt time.Time) (bool, error)

	// ListStalePending retrieves pending orders created before the
	// cutoff whose payment never reached a completed state.
	ListStalePending(ctx context.Context, cutoff time.Time) ([]model.Order, error)

	// Delete removes an order and its items.
	Delete(ctx context.Context, id uuid.UUID) error
}
