package delivery

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned by a Repository when no delivery method has
	// the requested id.
	ErrNotFound = errors.New("delivery method not found")
	// ErrLookupFailed is returned by Resolver in strict mode when the
	// delivery store could not be queried.
	ErrLookupFailed = errors.New("delivery lookup failed")
)

// DefaultETA is the estimated arrival in days of the fallback option.
const DefaultETA = 5

// Option is a delivery tier.
type Option struct {
	ID          string
	Name        string
	Price       decimal.Decimal
	DeluxePrice decimal.Decimal
	// ETA is the estimated time to arrival in days.
	ETA int
}

// Default returns the zero-cost fallback option.
func Default() Option {
	return Option{Price: decimal.Zero, DeluxePrice: decimal.Zero, ETA: DefaultETA}
}

// PriceFor returns the delivery price for the given customer tier.
func (o Option) PriceFor(premium bool) decimal.Decimal {
	if premium {
		return o.DeluxePrice
	}
	return o.Price
}

// Repository provides point lookups of delivery methods.
type Repository interface {
	FindByID(ctx context.Context, id string) (*Option, error)
}

// Resolver picks the delivery option for an order.
type Resolver struct {
	repo   Repository
	strict bool
}

// NewResolver creates a Resolver. In strict mode store failures abort with
// ErrLookupFailed instead of falling back to the default option.
func NewResolver(repo Repository, strict bool) *Resolver {
	return &Resolver{repo: repo, strict: strict}
}

// Resolve returns the option with the given id. An empty or unknown id
// yields Default.
func (r *Resolver) Resolve(ctx context.Context, id string) (Option, error) {
	if id == "" {
		return Default(), nil
	}

	opt, err := r.repo.FindByID(ctx, id)
	switch {
	case err == nil:
		return *opt, nil
	case errors.Is(err, ErrNotFound):
		return Default(), nil
	case r.strict:
		return Option{}, fmt.Errorf("delivery method %s: %w: %w", id, ErrLookupFailed, err)
	default:
		zctx.From(ctx).Warn("Delivery lookup failed, using default option",
			zap.String("delivery_method_id", id),
			zap.Error(err),
		)
		return Default(), nil
	}
}
