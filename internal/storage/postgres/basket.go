package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/juice-checkout/internal/domain/basket"
)

const (
	getBasketSQL = `SELECT id, COALESCE(customer_id, ''), COALESCE(coupon, '')
		FROM baskets WHERE id = $1`

	listBasketLinesSQL = `SELECT bi.id, p.id, p.name, p.price, p.deluxe_price, bi.quantity
		FROM basket_items bi
		JOIN products p ON p.id = bi.product_id
		WHERE bi.basket_id = $1
		ORDER BY bi.id`
)

var _ basket.Repository = (*BasketRepository)(nil)

// BasketRepository implements basket.Repository backed by PostgreSQL.
type BasketRepository struct {
	pool *pgxpool.Pool
}

// NewBasketRepository returns a BasketRepository that uses the given pool.
func NewBasketRepository(pool *pgxpool.Pool) *BasketRepository {
	return &BasketRepository{pool: pool}
}

// Load reads the basket and its lines from one snapshot. Lines are returned
// in insertion order.
func (r *BasketRepository) Load(ctx context.Context, id string) (*basket.Basket, error) {
	var b basket.Basket
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	}, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, getBasketSQL, id).Scan(&b.ID, &b.CustomerID, &b.Coupon); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return basket.ErrNotFound
			}
			return err
		}

		rows, err := tx.Query(ctx, listBasketLinesSQL, id)
		if err != nil {
			return err
		}
		b.Lines, err = pgx.CollectRows(rows, scanBasketLine)
		return err
	})
	if err != nil {
		if errors.Is(err, basket.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("loading basket %q: %w", id, err)
	}
	return &b, nil
}

func scanBasketLine(row pgx.CollectableRow) (basket.Line, error) {
	var (
		l   basket.Line
		qty int32
	)
	err := row.Scan(&l.ItemID, &l.Product.ID, &l.Product.Name, &l.Product.Price, &l.Product.DeluxePrice, &qty)
	l.Quantity = int(qty)
	return l, err
}
