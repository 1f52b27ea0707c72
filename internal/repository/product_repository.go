package repository

import (
	"context"
	"fmt"

	"shopfront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// productRepository implements ProductRepository using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

// GetByID retrieves a single product by its ID.
func (r *productRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	query := `
		SELECT id, name, price, image, category, stock, created_at
		FROM products
		WHERE id = $1
	`

	var p model.Product
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Price, &p.Image, &p.Category, &p.Stock, &p.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("product_id", id).Msg("product not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("product_id", id).Msg("failed to query product")
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return &p, nil
}

// GetByIDs retrieves multiple products by their IDs.
func (r *productRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	query := `
		SELECT id, name, price, image, category, stock, created_at
		FROM products
		WHERE id = ANY($1)
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("id_count", len(ids)).Msg("failed to query products")
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Image, &p.Category, &p.Stock, &p.CreatedAt)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// CheckAvailability reports the stock position for each requested item.
func (r *productRepository) CheckAvailability(ctx context.Context, items []model.ReservationItem) ([]model.Availability, error) {
	availability := make([]model.Availability, 0, len(items))

	for _, item := range items {
		var stock int
		err := r.pool.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, item.ProductID).Scan(&stock)
		if err != nil {
			if err == pgx.ErrNoRows {
				availability = append(availability, model.Availability{
					ProductID: item.ProductID,
					Available: false,
					Requested: item.Quantity,
				})
				continue
			}
			r.logger.Error().Err(err).Str("product_id", item.ProductID).Msg("failed to query stock")
			return nil, fmt.Errorf("failed to query stock: %w", err)
		}

		availability = append(availability, model.Availability{
			ProductID:    item.ProductID,
			Available:    stock >= item.Quantity,
			CurrentStock: stock,
			Requested:    item.Quantity,
		})
	}

	return availability, nil
}

// ReserveStock atomically decrements stock for every item inside one
// transaction. The conditional UPDATE only matches rows with enough
// stock, so concurrent reservations can never drive stock negative.
func (r *productRepository) ReserveStock(ctx context.Context, items []model.ReservationItem) (map[string]int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin reservation transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	levels := make(map[string]int, len(items))
	var shortages []model.StockShortage

	for _, item := range items {
		var remaining int
		err := tx.QueryRow(ctx, `
			UPDATE products
			SET stock = stock - $2
			WHERE id = $1 AND stock >= $2
			RETURNING stock
		`, item.ProductID, item.Quantity).Scan(&remaining)

		if err == pgx.ErrNoRows {
			// Short or unknown product; record the current level so
			// the caller can report how far off the request was.
			var current int
			selErr := tx.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, item.ProductID).Scan(&current)
			if selErr != nil && selErr != pgx.ErrNoRows {
				r.logger.Error().Err(selErr).Str("product_id", item.ProductID).Msg("failed to query stock level")
				return nil, fmt.Errorf("failed to query stock level: %w", selErr)
			}
			shortages = append(shortages, model.StockShortage{
				ProductID:    item.ProductID,
				Requested:    item.Quantity,
				CurrentStock: current,
			})
			continue
		}
		if err != nil {
			r.logger.Error().Err(err).Str("product_id", item.ProductID).Msg("failed to reserve stock")
			return nil, fmt.Errorf("failed to reserve stock: %w", err)
		}

		levels[item.ProductID] = remaining
	}

	if len(shortages) > 0 {
		// Roll back the whole reservation: no partial holds.
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			r.logger.Error().Err(rbErr).Msg("failed to rollback reservation")
		}
		r.logger.Debug().Int("short_items", len(shortages)).Msg("reservation rejected")
		return nil, &model.InsufficientStockError{Shortages: shortages}
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error().Err(err).Msg("failed to commit reservation")
		return nil, fmt.Errorf("failed to commit reservation: %w", err)
	}

	return levels, nil
}

// ReleaseStock increments stock for every item.
func (r *productRepository) ReleaseStock(ctx context.Context, items []model.ReservationItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin release transaction")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, item := range items {
		tag, err := tx.Exec(ctx, `
			UPDATE products
			SET stock = stock + $2
			WHERE id = $1
		`, item.ProductID, item.Quantity)
		if err != nil {
			r.logger.Error().Err(err).Str("product_id", item.ProductID).Msg("failed to release stock")
			return fmt.Errorf("failed to release stock: %w", err)
		}
		if tag.RowsAffected() == 0 {
			r.logger.Warn().Str("product_id", item.ProductID).Msg("released stock for unknown product")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error().Err(err).Msg("failed to commit release")
		return fmt.Errorf("failed to commit release: %w", err)
	}

	return nil
}

// AdjustStock applies an administrative stock edit.
func (r *productRepository) AdjustStock(ctx context.Context, id string, delta int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products
		SET stock = stock + $2
		WHERE id = $1 AND stock + $2 >= 0
	`, id, delta)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", id).Msg("failed to adjust stock")
		return fmt.Errorf("failed to adjust stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrProductNotFound
	}

	return nil
}
