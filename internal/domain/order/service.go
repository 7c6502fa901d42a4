package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/juice-checkout/internal/domain/basket"
	"github.com/xenking/juice-checkout/internal/domain/delivery"
	"github.com/xenking/juice-checkout/internal/domain/discount"
	"github.com/xenking/juice-checkout/internal/domain/inventory"
	"github.com/xenking/juice-checkout/internal/domain/pricing"
	"github.com/xenking/juice-checkout/internal/domain/wallet"
)

// Customer is the authenticated user placing an order.
type Customer struct {
	ID    string
	Email string
	// Premium customers pay deluxe prices.
	Premium bool
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	BasketID string
	// Customer is nil for anonymous checkouts.
	Customer         *Customer
	PaymentID        string
	DeliveryMethodID string
	AddressID        string
	// CouponToken is the client supplied encoded campaign token.
	CouponToken string
}

// PlaceOrderResult holds the output of a successfully placed order.
type PlaceOrderResult struct {
	Order    *Order
	Quote    pricing.Quote
	Discount discount.Resolution
}

// Inventory applies basket lines to stock.
type Inventory interface {
	Apply(ctx context.Context, lines []basket.Line) ([]inventory.Level, error)
}

// Discounts resolves the discount of a basket.
type Discounts interface {
	Resolve(ctx context.Context, b *basket.Basket, token string) (discount.Resolution, error)
}

// Deliveries resolves delivery options.
type Deliveries interface {
	Resolve(ctx context.Context, id string) (delivery.Option, error)
}

// Wallets charges order totals and credits reward points.
type Wallets interface {
	Charge(ctx context.Context, customerID string, amount decimal.Decimal) error
	Reward(ctx context.Context, customerID string, points int64) error
}

// Localizer translates product names.
type Localizer interface {
	Localize(ctx context.Context, text string) string
}

// Deps are the collaborators of Service. Renderer, Publisher and Localizer
// are optional.
type Deps struct {
	Baskets    basket.Repository
	Inventory  Inventory
	Discounts  Discounts
	Deliveries Deliveries
	Wallets    Wallets
	Orders     Repository
	Renderer   Renderer
	Publisher  Publisher
	Localizer  Localizer
}

// Option configures Service.
type Option func(*Service)

// WithTracerProvider sets the tracer provider used for placement spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer("checkout/order") }
}

// WithMeterProvider sets the meter provider used for placement counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meter = mp.Meter("checkout/order") }
}

// WithClock overrides the clock stamping CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service sequences order placement: load basket, apply inventory, resolve
// discount and delivery, price, charge wallet, credit points, persist.
type Service struct {
	deps  Deps
	now   func() time.Time
	newID func(email string) (string, error)

	tracer trace.Tracer
	meter  metric.Meter
	placed metric.Int64Counter
	failed metric.Int64Counter
}

// NewService creates an order Service.
func NewService(deps Deps, opts ...Option) (*Service, error) {
	s := &Service{
		deps:   deps,
		now:    time.Now,
		newID:  NewID,
		tracer: tracenoop.NewTracerProvider().Tracer("checkout/order"),
		meter:  metricnoop.NewMeterProvider().Meter("checkout/order"),
	}
	for _, o := range opts {
		o(s)
	}

	var err error
	if s.placed, err = s.meter.Int64Counter("checkout.orders.placed",
		metric.WithDescription("Orders placed successfully"),
	); err != nil {
		return nil, errors.Wrap(err, "placed counter")
	}
	if s.failed, err = s.meter.Int64Counter("checkout.orders.failed",
		metric.WithDescription("Order placements that failed, by step"),
	); err != nil {
		return nil, errors.Wrap(err, "failed counter")
	}
	return s, nil
}

// PlaceOrder converts a basket into a persisted order.
//
// A failure returns a *StepError naming the first failing step. Mutations
// committed by earlier steps are not reverted: in particular inventory stays
// decremented when the wallet charge fails. No order is persisted and no
// points are credited unless the charge succeeded or was skipped.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder",
		trace.WithAttributes(attribute.String("basket.id", req.BasketID)),
	)
	defer span.End()
	ctx = zctx.With(ctx, zap.String("basket_id", req.BasketID))

	res, err := s.placeOrder(ctx, req)
	if err != nil {
		var stepErr *StepError
		step := "unknown"
		if errors.As(err, &stepErr) {
			step = string(stepErr.Step)
		}
		s.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("step", step)))
		span.RecordError(err)
		span.SetStatus(codes.Error, step)
		return nil, err
	}

	s.placed.Add(ctx, 1)
	span.SetAttributes(attribute.String("order.id", res.Order.ID))
	return res, nil
}

func (s *Service) placeOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	customer := req.Customer

	var b *basket.Basket
	if err := s.step(ctx, StepLoadBasket, func(ctx context.Context) (err error) {
		b, err = s.deps.Baskets.Load(ctx, req.BasketID)
		return err
	}); err != nil {
		return nil, err
	}
	if customer != nil && b.CustomerID != "" && b.CustomerID != customer.ID {
		zctx.From(ctx).Warn("Basket owned by another customer",
			zap.String("basket_customer_id", b.CustomerID),
			zap.String("customer_id", customer.ID),
		)
	}

	if err := s.step(ctx, StepApplyInventory, func(ctx context.Context) error {
		_, err := s.deps.Inventory.Apply(ctx, b.Lines)
		return err
	}); err != nil {
		return nil, err
	}

	var disc discount.Resolution
	if err := s.step(ctx, StepApplyDiscount, func(ctx context.Context) (err error) {
		disc, err = s.deps.Discounts.Resolve(ctx, b, req.CouponToken)
		return err
	}); err != nil {
		return nil, err
	}

	// Pricing consumes the delivery option, so it is resolved first.
	var opt delivery.Option
	if err := s.step(ctx, StepResolveDelivery, func(ctx context.Context) (err error) {
		opt, err = s.deps.Deliveries.Resolve(ctx, req.DeliveryMethodID)
		return err
	}); err != nil {
		return nil, err
	}

	premium := customer != nil && customer.Premium
	quote := pricing.Price(s.items(ctx, b.Lines), disc.Percent, opt, premium)

	if customer != nil && req.PaymentID == wallet.PaymentID {
		if err := s.step(ctx, StepChargeWallet, func(ctx context.Context) error {
			return s.deps.Wallets.Charge(ctx, customer.ID, quote.Total)
		}); err != nil {
			return nil, err
		}
	}

	if customer != nil {
		if err := s.step(ctx, StepCreditPoints, func(ctx context.Context) error {
			return s.deps.Wallets.Reward(ctx, customer.ID, quote.Points)
		}); err != nil {
			return nil, err
		}
	}

	o := &Order{
		PaymentID:         req.PaymentID,
		AddressID:         req.AddressID,
		PromotionalAmount: quote.DiscountAmount,
		DeliveryPrice:     quote.DeliveryAmount,
		ETA:               opt.ETA,
		TotalPrice:        quote.Total,
		Bonus:             quote.Points,
		Products:          quote.Lines,
		CreatedAt:         s.now(),
	}
	var email string
	if customer != nil {
		email = customer.Email
		o.CustomerID = customer.ID
		o.Email = RedactEmail(customer.Email)
	}
	if err := s.step(ctx, StepPersist, func(ctx context.Context) (err error) {
		if o.ID, err = s.newID(email); err != nil {
			return err
		}
		if err := s.deps.Orders.Insert(ctx, o); err != nil {
			return errors.Wrap(err, "insert order")
		}
		return nil
	}); err != nil {
		return nil, err
	}

	lg := zctx.From(ctx).With(zap.String("order_id", o.ID))
	lg.Info("Order placed",
		zap.String("total", o.TotalPrice.StringFixed(2)),
		zap.Int64("bonus", o.Bonus),
		zap.String("discount_source", string(disc.Source)),
	)

	if s.deps.Renderer != nil {
		if err := s.deps.Renderer.Render(ctx, o, quote); err != nil {
			lg.Error("Render receipt", zap.Error(err))
		}
	}
	if s.deps.Publisher != nil {
		if err := s.deps.Publisher.Publish(ctx, o); err != nil {
			lg.Error("Publish order event", zap.Error(err))
		}
	}

	return &PlaceOrderResult{Order: o, Quote: quote, Discount: disc}, nil
}

// step runs fn in its own span and tags its error with the step.
func (s *Service) step(ctx context.Context, step Step, fn func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "order."+string(step))
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &StepError{Step: step, Err: err}
	}
	return nil
}

func (s *Service) items(ctx context.Context, lines []basket.Line) []pricing.Item {
	items := make([]pricing.Item, 0, len(lines))
	for _, l := range lines {
		name := l.Product.Name
		if s.deps.Localizer != nil {
			name = s.deps.Localizer.Localize(ctx, name)
		}
		items = append(items, pricing.Item{
			ProductID:   l.Product.ID,
			Name:        name,
			Quantity:    l.Quantity,
			Price:       l.Product.Price,
			DeluxePrice: l.Product.DeluxePrice,
		})
	}
	return items
}
