package basket

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/juice-checkout/internal/domain/product"
)

// ErrNotFound is returned when a basket identifier does not resolve to an
// existing basket.
var ErrNotFound = errors.New("basket not found")

// Basket is a customer's selection of products prior to checkout. It is a
// read-only input to order placement.
type Basket struct {
	ID string
	// CustomerID is empty for anonymous baskets.
	CustomerID string
	// Coupon is the stored coupon code, empty when none was redeemed.
	Coupon string
	Lines  []Line
}

// Line is a single product entry of a basket.
type Line struct {
	// ItemID identifies the basket item record backing this line. Zero means
	// the line has no item record and does not touch inventory.
	ItemID   int64
	Product  product.Product
	Quantity int
}

// HasItem reports whether the line is backed by a basket item record.
func (l Line) HasItem() bool {
	return l.ItemID != 0
}

// Repository loads baskets together with their line items and products.
type Repository interface {
	// Load returns ErrNotFound when no basket with the given id exists.
	Load(ctx context.Context, id string) (*Basket, error)
}
