package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/juice-checkout/internal/domain/delivery"
)

const getDeliveryMethodSQL = `SELECT id, name, price, deluxe_price, eta
	FROM delivery_methods WHERE id = $1`

var _ delivery.Repository = (*DeliveryRepository)(nil)

// DeliveryRepository implements delivery.Repository backed by PostgreSQL.
type DeliveryRepository struct {
	pool *pgxpool.Pool
}

// NewDeliveryRepository returns a DeliveryRepository that uses the given pool.
func NewDeliveryRepository(pool *pgxpool.Pool) *DeliveryRepository {
	return &DeliveryRepository{pool: pool}
}

// FindByID returns delivery.ErrNotFound when no method has the given id.
func (r *DeliveryRepository) FindByID(ctx context.Context, id string) (*delivery.Option, error) {
	rows, err := r.pool.Query(ctx, getDeliveryMethodSQL, id)
	if err != nil {
		return nil, fmt.Errorf("finding delivery method %q: %w", id, err)
	}

	opt, err := pgx.CollectExactlyOneRow(rows, scanDeliveryOption)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, delivery.ErrNotFound
		}
		return nil, fmt.Errorf("finding delivery method %q: %w", id, err)
	}
	return &opt, nil
}

func scanDeliveryOption(row pgx.CollectableRow) (delivery.Option, error) {
	var (
		opt delivery.Option
		eta int32
	)
	err := row.Scan(&opt.ID, &opt.Name, &opt.Price, &opt.DeluxePrice, &eta)
	opt.ETA = int(eta)
	return opt, err
}
