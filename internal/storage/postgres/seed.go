package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/juice-checkout/internal/domain/basket"
	"github.com/xenking/juice-checkout/internal/domain/delivery"
	"github.com/xenking/juice-checkout/internal/domain/product"
)

const (
	upsertProductSQL = `INSERT INTO products (id, name, price, deluxe_price) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			deluxe_price = EXCLUDED.deluxe_price`

	upsertDeliverySQL = `INSERT INTO delivery_methods (id, name, price, deluxe_price, eta) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			deluxe_price = EXCLUDED.deluxe_price,
			eta = EXCLUDED.eta`

	setWalletSQL = `INSERT INTO wallets (customer_id, balance) VALUES ($1, $2)
		ON CONFLICT (customer_id) DO UPDATE SET balance = EXCLUDED.balance`

	upsertBasketSQL = `INSERT INTO baskets (id, customer_id, coupon) VALUES ($1, NULLIF($2, ''), NULLIF($3, ''))
		ON CONFLICT (id) DO UPDATE SET customer_id = EXCLUDED.customer_id, coupon = EXCLUDED.coupon`

	deleteBasketItemsSQL = `DELETE FROM basket_items WHERE basket_id = $1`

	insertBasketItemSQL = `INSERT INTO basket_items (basket_id, product_id, quantity) VALUES ($1, $2, $3)`
)

// Seeder writes reference data. Every write is an upsert so seeding can be
// repeated.
type Seeder struct {
	pool *pgxpool.Pool
}

// NewSeeder returns a Seeder that uses the given pool.
func NewSeeder(pool *pgxpool.Pool) *Seeder {
	return &Seeder{pool: pool}
}

// UpsertProduct stores a catalogue product.
func (s *Seeder) UpsertProduct(ctx context.Context, p product.Product) error {
	if _, err := s.pool.Exec(ctx, upsertProductSQL, p.ID, p.Name, p.Price, p.DeluxePrice); err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

// UpsertDelivery stores a delivery method.
func (s *Seeder) UpsertDelivery(ctx context.Context, o delivery.Option) error {
	if _, err := s.pool.Exec(ctx, upsertDeliverySQL, o.ID, o.Name, o.Price, o.DeluxePrice, o.ETA); err != nil {
		return fmt.Errorf("upserting delivery method %q: %w", o.ID, err)
	}
	return nil
}

// SetWallet overwrites a customer's balance.
func (s *Seeder) SetWallet(ctx context.Context, customerID string, balance decimal.Decimal) error {
	if _, err := s.pool.Exec(ctx, setWalletSQL, customerID, balance); err != nil {
		return fmt.Errorf("setting wallet of %q: %w", customerID, err)
	}
	return nil
}

// PutBasket replaces a basket and its items in one transaction.
func (s *Seeder) PutBasket(ctx context.Context, b basket.Basket) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsertBasketSQL, b.ID, b.CustomerID, b.Coupon); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, deleteBasketItemsSQL, b.ID); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for _, l := range b.Lines {
			batch.Queue(insertBasketItemSQL, b.ID, l.Product.ID, l.Quantity)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("putting basket %q: %w", b.ID, err)
	}
	return nil
}
