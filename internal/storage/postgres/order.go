package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/juice-checkout/internal/domain/order"
	"github.com/xenking/juice-checkout/internal/domain/pricing"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, customer_id, email, payment_id, address_id,
		promotional_amount, delivery_price, eta, total_price, bonus, delivered, products, created_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	getOrderSQL = `SELECT id, COALESCE(customer_id, ''), email, payment_id, address_id,
		promotional_amount, delivery_price, eta, total_price, bonus, delivered, products, created_at
		FROM orders WHERE id = $1`
)

// ErrOrderNotFound is returned by OrderRepository.Get for unknown ids.
var ErrOrderNotFound = errors.New("order not found")

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Priced
// lines are stored as a JSONB array.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Insert persists a new order.
func (r *OrderRepository) Insert(ctx context.Context, o *order.Order) error {
	_, err := r.pool.Exec(ctx, insertOrderSQL,
		o.ID, o.CustomerID, o.Email, o.PaymentID, o.AddressID,
		o.PromotionalAmount, o.DeliveryPrice, o.ETA, o.TotalPrice, o.Bonus, o.Delivered,
		string(encodeLines(o.Products)), o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// Get returns the order with the given id.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o        order.Order
		eta      int32
		products []byte
	)
	if err := row.Scan(
		&o.ID, &o.CustomerID, &o.Email, &o.PaymentID, &o.AddressID,
		&o.PromotionalAmount, &o.DeliveryPrice, &eta, &o.TotalPrice, &o.Bonus, &o.Delivered,
		&products, &o.CreatedAt,
	); err != nil {
		return o, err
	}
	o.ETA = int(eta)

	lines, err := decodeLines(products)
	if err != nil {
		return o, errors.Wrap(err, "decode products")
	}
	o.Products = lines
	return o, nil
}

func encodeLines(lines []pricing.Line) []byte {
	var e jx.Encoder
	e.ArrStart()
	for _, l := range lines {
		e.Obj(func(e *jx.Encoder) {
			e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
			e.Field("id", func(e *jx.Encoder) { e.Str(l.ProductID) })
			e.Field("name", func(e *jx.Encoder) { e.Str(l.Name) })
			e.Field("price", func(e *jx.Encoder) { e.Str(l.UnitPrice.String()) })
			e.Field("total", func(e *jx.Encoder) { e.Str(l.Total.String()) })
			e.Field("bonus", func(e *jx.Encoder) { e.Int64(l.Bonus) })
		})
	}
	e.ArrEnd()
	return e.Bytes()
}

func decodeLines(data []byte) ([]pricing.Line, error) {
	var lines []pricing.Line
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		var l pricing.Line
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "quantity":
				l.Quantity, err = d.Int()
			case "id":
				l.ProductID, err = d.Str()
			case "name":
				l.Name, err = d.Str()
			case "price":
				l.UnitPrice, err = decodeDecimal(d)
			case "total":
				l.Total, err = decodeDecimal(d)
			case "bonus":
				l.Bonus, err = d.Int64()
			default:
				err = d.Skip()
			}
			if err != nil {
				return errors.Wrap(err, key)
			}
			return nil
		}); err != nil {
			return err
		}
		lines = append(lines, l)
		return nil
	})
	return lines, err
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	s, err := d.Str()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(s)
}
