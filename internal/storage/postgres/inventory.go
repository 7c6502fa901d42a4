package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/juice-checkout/internal/domain/inventory"
)

const (
	decrementQuantitySQL = `UPDATE quantities SET quantity = quantity - $2
		WHERE product_id = $1 RETURNING quantity`

	setQuantitySQL = `INSERT INTO quantities (product_id, quantity) VALUES ($1, $2)
		ON CONFLICT (product_id) DO UPDATE SET quantity = EXCLUDED.quantity`

	getQuantitySQL = `SELECT quantity FROM quantities WHERE product_id = $1`
)

var _ inventory.Store = (*InventoryRepository)(nil)

// InventoryRepository implements inventory.Store backed by PostgreSQL.
type InventoryRepository struct {
	pool *pgxpool.Pool
}

// NewInventoryRepository returns an InventoryRepository that uses the given pool.
func NewInventoryRepository(pool *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{pool: pool}
}

// Decrement subtracts quantity in a single UPDATE, so concurrent decrements
// of the same product serialize on its row lock.
func (r *InventoryRepository) Decrement(ctx context.Context, productID string, quantity int) (int, error) {
	var left int32
	if err := r.pool.QueryRow(ctx, decrementQuantitySQL, productID, quantity).Scan(&left); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, inventory.ErrUntracked
		}
		return 0, fmt.Errorf("decrementing quantity of %q: %w", productID, err)
	}
	return int(left), nil
}

// Set overwrites the stock level of a product.
func (r *InventoryRepository) Set(ctx context.Context, productID string, quantity int) error {
	if _, err := r.pool.Exec(ctx, setQuantitySQL, productID, quantity); err != nil {
		return fmt.Errorf("setting quantity of %q: %w", productID, err)
	}
	return nil
}

// Get returns the stock level of a product.
func (r *InventoryRepository) Get(ctx context.Context, productID string) (int, error) {
	var qty int32
	if err := r.pool.QueryRow(ctx, getQuantitySQL, productID).Scan(&qty); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, inventory.ErrUntracked
		}
		return 0, fmt.Errorf("getting quantity of %q: %w", productID, err)
	}
	return int(qty), nil
}
