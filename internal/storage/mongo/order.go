// Package mongo stores placed orders as documents.
package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xenking/juice-checkout/internal/domain/order"
	"github.com/xenking/juice-checkout/internal/domain/pricing"
)

// OrdersCollection is the collection holding order documents.
const OrdersCollection = "orders"

// ErrOrderNotFound is returned by OrderRepository.Get for unknown ids.
var ErrOrderNotFound = errors.New("order not found")

// Connect opens a client and verifies the connection.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}
	return client, nil
}

type lineDoc struct {
	Quantity  int                  `bson:"quantity"`
	ProductID string               `bson:"id"`
	Name      string               `bson:"name"`
	Price     primitive.Decimal128 `bson:"price"`
	Total     primitive.Decimal128 `bson:"total"`
	Bonus     int64                `bson:"bonus"`
}

type orderDoc struct {
	ID                string               `bson:"orderId"`
	CustomerID        string               `bson:"customerId,omitempty"`
	Email             string               `bson:"email"`
	PaymentID         string               `bson:"paymentId"`
	AddressID         string               `bson:"addressId"`
	PromotionalAmount primitive.Decimal128 `bson:"promotionalAmount"`
	DeliveryPrice     primitive.Decimal128 `bson:"deliveryPrice"`
	ETA               int                  `bson:"eta"`
	TotalPrice        primitive.Decimal128 `bson:"totalPrice"`
	Bonus             int64                `bson:"bonus"`
	Delivered         bool                 `bson:"delivered"`
	Products          []lineDoc            `bson:"products"`
	CreatedAt         time.Time            `bson:"createdAt"`
}

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository on a MongoDB collection.
type OrderRepository struct {
	coll *mongo.Collection
}

// NewOrderRepository returns an OrderRepository writing to the orders
// collection of db.
func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{coll: db.Collection(OrdersCollection)}
}

// EnsureIndexes creates the unique order id index.
func (r *OrderRepository) EnsureIndexes(ctx context.Context) error {
	if _, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "orderId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("creating order index: %w", err)
	}
	return nil
}

// Insert persists a new order.
func (r *OrderRepository) Insert(ctx context.Context, o *order.Order) error {
	doc, err := toDoc(o)
	if err != nil {
		return err
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("inserting order %q: %w", o.ID, err)
	}
	return nil
}

// Get returns the order with the given id.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	var doc orderDoc
	if err := r.coll.FindOne(ctx, bson.D{{Key: "orderId", Value: id}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return fromDoc(doc)
}

func toDoc(o *order.Order) (orderDoc, error) {
	doc := orderDoc{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		Email:      o.Email,
		PaymentID:  o.PaymentID,
		AddressID:  o.AddressID,
		ETA:        o.ETA,
		Bonus:      o.Bonus,
		Delivered:  o.Delivered,
		Products:   make([]lineDoc, 0, len(o.Products)),
		CreatedAt:  o.CreatedAt.UTC(),
	}

	var err error
	if doc.PromotionalAmount, err = toDecimal128(o.PromotionalAmount); err != nil {
		return doc, err
	}
	if doc.DeliveryPrice, err = toDecimal128(o.DeliveryPrice); err != nil {
		return doc, err
	}
	if doc.TotalPrice, err = toDecimal128(o.TotalPrice); err != nil {
		return doc, err
	}

	for _, l := range o.Products {
		ld := lineDoc{Quantity: l.Quantity, ProductID: l.ProductID, Name: l.Name, Bonus: l.Bonus}
		if ld.Price, err = toDecimal128(l.UnitPrice); err != nil {
			return doc, err
		}
		if ld.Total, err = toDecimal128(l.Total); err != nil {
			return doc, err
		}
		doc.Products = append(doc.Products, ld)
	}
	return doc, nil
}

func fromDoc(doc orderDoc) (*order.Order, error) {
	o := &order.Order{
		ID:         doc.ID,
		CustomerID: doc.CustomerID,
		Email:      doc.Email,
		PaymentID:  doc.PaymentID,
		AddressID:  doc.AddressID,
		ETA:        doc.ETA,
		Bonus:      doc.Bonus,
		Delivered:  doc.Delivered,
		Products:   make([]pricing.Line, 0, len(doc.Products)),
		CreatedAt:  doc.CreatedAt,
	}

	var err error
	if o.PromotionalAmount, err = fromDecimal128(doc.PromotionalAmount); err != nil {
		return nil, err
	}
	if o.DeliveryPrice, err = fromDecimal128(doc.DeliveryPrice); err != nil {
		return nil, err
	}
	if o.TotalPrice, err = fromDecimal128(doc.TotalPrice); err != nil {
		return nil, err
	}

	for _, ld := range doc.Products {
		l := pricing.Line{Quantity: ld.Quantity, ProductID: ld.ProductID, Name: ld.Name, Bonus: ld.Bonus}
		if l.UnitPrice, err = fromDecimal128(ld.Price); err != nil {
			return nil, err
		}
		if l.Total, err = fromDecimal128(ld.Total); err != nil {
			return nil, err
		}
		o.Products = append(o.Products, l)
	}
	return o, nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, errors.Wrapf(err, "convert %s", d)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "convert %s", v)
	}
	return d, nil
}
