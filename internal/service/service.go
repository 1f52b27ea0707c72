package service

import (
	"context"
	"time"

	"shopfront/internal/auth"
	"shopfront/internal/model"
	"shopfront/internal/payment"

	"github.com/google/uuid"
)

// PaymentInitiator dispatches a payment initiation to the provider
// adapter for the request's method. *payment.Registry satisfies it.
type PaymentInitiator interface {
	Initiate(ctx context.Context, req payment.InitiateRequest) (payment.Result, error)
}

// CheckoutService turns a cart into a persisted order with reserved
// inventory and an initiated payment.
type CheckoutService interface {
	// CreateOrder validates the cart, reserves stock, persists the
	// order and initiates payment. Totals are recomputed server-side.
	CreateOrder(ctx context.Context, identity *auth.Identity, req *model.CreateOrderRequest) (*model.CheckoutResponse, error)

	// RetryPayment re-initiates payment on an order whose previous
	// attempt failed or was never completed. The reservation made at
	// creation time is reused; availability is not re-checked.
	RetryPayment(ctx context.Context, identity *auth.Identity, orderID uuid.UUID, req *model.CreateOrderRequest) (*model.CheckoutResponse, error)
}

// ReconcileService applies asynchronous provider callbacks to the
// orders that triggered them, exactly once.
type ReconcileService interface {
	// HandleMpesaCallback correlates and applies one callback. The
	// returned error exists for logging only; the HTTP layer
	// acknowledges the provider regardless of the outcome.
	HandleMpesaCallback(ctx context.Context, callback *payment.Callback) error
}

// OrderService covers the post-checkout order lifecycle.
type OrderService interface {
	// Get retrieves an order visible to the caller (owner or admin).
	Get(ctx context.Context, identity *auth.Identity, id uuid.UUID) (*model.Order, error)

	// ListMine retrieves the caller's orders, newest first.
	ListMine(ctx context.Context, identity *auth.Identity) ([]model.Order, error)

	// Cancel cancels a pending or processing order, releasing its
	// reserved stock. Owners may cancel their own orders; admins any.
	Cancel(ctx context.Context, identity *auth.Identity, id uuid.UUID) (*model.Order, error)

	// UpdateStatus applies an admin status change, either through a
	// state machine event or, with Force, the override path.
	UpdateStatus(ctx context.Context, id uuid.UUID, req *model.UpdateStatusRequest) (*model.Order, error)

	// Delete removes a terminal order. Orders with a pending payment
	// are never deleted.
	Delete(ctx context.Context, id uuid.UUID) error

	// Invoice renders an invoice snapshot of an order visible to the
	// caller.
	Invoice(ctx context.Context, identity *auth.Identity, id uuid.UUID) ([]byte, error)

	// SweepStaleReservations cancels pending orders created before
	// the cutoff whose payment never resolved, releasing their stock.
	// Returns the number of orders swept.
	SweepStaleReservations(ctx context.Context, cutoff time.Time) (int, error)
}
