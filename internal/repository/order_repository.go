package repository

import (
	"context"
	"fmt"
	"time"

	"shopfront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// orderRepository implements OrderRepository using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

const orderColumns = `
	id, order_number, user_id,
	street, city, postal_code, country,
	payment_method, payment_status, payment_txn_id,
	COALESCE(payment_correlation_key, ''), payment_failure_reason, payment_completed_at,
	items_price, shipping_price, tax_price, total_price,
	status, is_paid, paid_at, is_delivered, delivered_at, cancelled_at,
	tracking_number, created_at, updated_at
`

// Create inserts the order and its items in one transaction.
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO orders (
			id, order_number, user_id,
			street, city, postal_code, country,
			payment_method, payment_status, payment_txn_id,
			payment_correlation_key, payment_failure_reason, payment_completed_at,
			items_price, shipping_price, tax_price, total_price,
			status, is_paid, paid_at, is_delivered, delivered_at, cancelled_at,
			tracking_number, created_at, updated_at
		)
		VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26
		)
	`

	_, err = tx.Exec(ctx, query,
		order.ID, order.OrderNumber, order.UserID,
		order.ShippingAddress.Street, order.ShippingAddress.City,
		order.ShippingAddress.PostalCode, order.ShippingAddress.Country,
		order.PaymentMethod, order.Payment.Status, order.Payment.ProviderTxnID,
		order.Payment.CorrelationKey, order.Payment.FailureReason, order.Payment.CompletedAt,
		order.ItemsPrice, order.ShippingPrice, order.TaxPrice, order.TotalPrice,
		order.Status, order.IsPaid, order.PaidAt, order.IsDelivered, order.DeliveredAt,
		order.CancelledAt, order.TrackingNumber, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	if len(order.Items) > 0 {
		itemQuery := `
			INSERT INTO order_items (id, order_id, product_id, name, unit_price, quantity, image)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`

		batch := &pgx.Batch{}
		for _, item := range order.Items {
			batch.Queue(itemQuery, item.ID, item.OrderID, item.ProductID,
				item.Name, item.UnitPrice, item.Quantity, item.Image)
		}

		results := tx.SendBatch(ctx, batch)
		for i := 0; i < len(order.Items); i++ {
			if _, err := results.Exec(); err != nil {
				results.Close()
				r.logger.Error().
					Err(err).
					Str("order_id", order.ID.String()).
					Str("product_id", order.Items[i].ProductID).
					Msg("failed to create order item")
				return fmt.Errorf("failed to create order item: %w", err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("failed to close batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit order")
		return fmt.Errorf("failed to commit order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Msg("order created")

	return nil
}

// GetByID retrieves an order with its items.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := r.scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

// GetByCorrelationKey retrieves the order a provider callback belongs to.
func (r *orderRepository) GetByCorrelationKey(ctx context.Context, key string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE payment_correlation_key = $1`

	order, err := r.scanOrder(r.pool.QueryRow(ctx, query, key))
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("correlation_key", key).Msg("no order for correlation key")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("correlation_key", key).Msg("failed to query order by correlation key")
		return nil, fmt.Errorf("failed to query order by correlation key: %w", err)
	}

	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

// ListByUser retrieves a user's orders, newest first.
func (r *orderRepository) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	return r.queryOrders(ctx, query, userID)
}

// Update persists the order's mutable fields.
func (r *orderRepository) Update(ctx context.Context, order *model.Order) error {
	query := `
		UPDATE orders SET
			payment_status = $2,
			payment_txn_id = $3,
			payment_correlation_key = NULLIF($4, ''),
			payment_failure_reason = $5,
			payment_completed_at = $6,
			status = $7,
			is_paid = $8,
			paid_at = $9,
			is_delivered = $10,
			delivered_at = $11,
			cancelled_at = $12,
			tracking_number = $13,
			updated_at = $14
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		order.ID,
		order.Payment.Status, order.Payment.ProviderTxnID, order.Payment.CorrelationKey,
		order.Payment.FailureReason, order.Payment.CompletedAt,
		order.Status, order.IsPaid, order.PaidAt,
		order.IsDelivered, order.DeliveredAt, order.CancelledAt,
		order.TrackingNumber, order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to update order")
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}

	return nil
}

// CancelIfActive conditionally cancels the order. The status guard is
// part of the UPDATE itself, so two racing cancels see exactly one
// row transition.
func (r *orderRepository) CancelIfActive(ctx context.Context, id uuid.UUID, cancelledAt time.Time) (bool, error) {
	query := `
		UPDATE orders SET
			status = $2,
			cancelled_at = $3,
			updated_at = $3
		WHERE id = $1 AND status IN ($4, $5)
	`

	tag, err := r.pool.Exec(ctx, query,
		id, model.StatusCancelled, cancelledAt,
		model.StatusPending, model.StatusProcessing,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to cancel order")
		return false, fmt.Errorf("failed to cancel order: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// ListStalePending retrieves pending orders created before the cutoff
// whose payment never completed.
func (r *orderRepository) ListStalePending(ctx context.Context, cutoff time.Time) ([]model.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status = $1 AND payment_status <> $2 AND created_at < $3
		ORDER BY created_at
	`

	return r.queryOrders(ctx, query, model.StatusPending, model.PaymentCompleted, cutoff)
}

// Delete removes an order and its items.
func (r *orderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to delete order")
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}

	return nil
}

// scanOrder scans one order row.
func (r *orderRepository) scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID,
		&o.ShippingAddress.Street, &o.ShippingAddress.City,
		&o.ShippingAddress.PostalCode, &o.ShippingAddress.Country,
		&o.PaymentMethod, &o.Payment.Status, &o.Payment.ProviderTxnID,
		&o.Payment.CorrelationKey, &o.Payment.FailureReason, &o.Payment.CompletedAt,
		&o.ItemsPrice, &o.ShippingPrice, &o.TaxPrice, &o.TotalPrice,
		&o.Status, &o.IsPaid, &o.PaidAt, &o.IsDelivered, &o.DeliveredAt, &o.CancelledAt,
		&o.TrackingNumber, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// loadItems loads an order's line items.
func (r *orderRepository) loadItems(ctx context.Context, order *model.Order) error {
	query := `
		SELECT id, order_id, product_id, name, unit_price, quantity, image
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, order.ID)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to query order items")
		return fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID,
			&item.Name, &item.UnitPrice, &item.Quantity, &item.Image)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return fmt.Errorf("error iterating order items: %w", err)
	}

	return nil
}

// queryOrders runs a multi-row order query and loads items for each
// result.
func (r *orderRepository) queryOrders(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	for i := range orders {
		if err := r.loadItems(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}

	return orders, nil
}
