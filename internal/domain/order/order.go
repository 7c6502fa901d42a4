package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/juice-checkout/internal/domain/pricing"
)

// Order is a finalized, persisted order. It is created exactly once per
// successful placement.
type Order struct {
	ID         string
	CustomerID string
	// Email is the customer's email with vowels masked.
	Email             string
	PaymentID         string
	AddressID         string
	PromotionalAmount decimal.Decimal
	DeliveryPrice     decimal.Decimal
	// ETA is the estimated delivery time in days.
	ETA        int
	TotalPrice decimal.Decimal
	Bonus      int64
	Delivered  bool
	Products   []pricing.Line
	CreatedAt  time.Time
}

// Repository persists orders.
type Repository interface {
	Insert(ctx context.Context, o *Order) error
}

// Renderer produces the receipt artifact of a placed order.
type Renderer interface {
	Render(ctx context.Context, o *Order, q pricing.Quote) error
}

// Publisher announces placed orders.
type Publisher interface {
	Publish(ctx context.Context, o *Order) error
}
