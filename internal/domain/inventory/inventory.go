// Package inventory decrements available stock for purchased basket lines.
//
// The ledger is a pass-through: it never rejects overselling and quantities
// may become negative. Each decrement is delegated to the store as a single
// atomic adjustment, so concurrent placements touching the same product do
// not lose updates.
package inventory

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/juice-checkout/internal/domain/basket"
)

// ErrUntracked is returned by a Store for products without a stock record.
var ErrUntracked = errors.New("product stock is not tracked")

// Store adjusts stock levels.
type Store interface {
	// Decrement subtracts quantity from the stock of productID in one atomic
	// operation and returns the resulting quantity.
	Decrement(ctx context.Context, productID string, quantity int) (int, error)
}

// Level is the stock left for a product after a decrement.
type Level struct {
	ProductID string
	Quantity  int
}

// Ledger applies basket lines to inventory.
type Ledger struct {
	store Store
}

// NewLedger creates a Ledger backed by the given Store.
func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Apply decrements stock once per line in basket order. Lines without a
// basket item record are skipped. The first store error aborts the loop;
// decrements already applied are not reverted.
func (l *Ledger) Apply(ctx context.Context, lines []basket.Line) ([]Level, error) {
	levels := make([]Level, 0, len(lines))
	for _, line := range lines {
		if !line.HasItem() {
			continue
		}

		left, err := l.store.Decrement(ctx, line.Product.ID, line.Quantity)
		if err != nil {
			return levels, errors.Wrapf(err, "decrement product %s", line.Product.ID)
		}
		if left < 0 {
			zctx.From(ctx).Warn("Product oversold",
				zap.String("product_id", line.Product.ID),
				zap.Int("quantity", left),
			)
		}
		levels = append(levels, Level{ProductID: line.Product.ID, Quantity: left})
	}
	return levels, nil
}
