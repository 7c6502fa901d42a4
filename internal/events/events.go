// Package events publishes order placement events to Kafka.
package events

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/segmentio/kafka-go"

	"github.com/xenking/juice-checkout/internal/domain/order"
)

// OrderPlaced is the payload published after an order is persisted.
type OrderPlaced struct {
	OrderID    string
	CustomerID string
	TotalPrice string
	Bonus      int64
	PlacedAt   time.Time
}

// NewOrderPlaced builds the event of o.
func NewOrderPlaced(o *order.Order) OrderPlaced {
	return OrderPlaced{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		TotalPrice: o.TotalPrice.StringFixed(2),
		Bonus:      o.Bonus,
		PlacedAt:   o.CreatedAt.UTC(),
	}
}

// Encode writes the event as JSON.
func (e OrderPlaced) Encode(enc *jx.Encoder) {
	enc.Obj(func(enc *jx.Encoder) {
		enc.Field("orderId", func(enc *jx.Encoder) { enc.Str(e.OrderID) })
		if e.CustomerID != "" {
			enc.Field("customerId", func(enc *jx.Encoder) { enc.Str(e.CustomerID) })
		}
		enc.Field("totalPrice", func(enc *jx.Encoder) { enc.Str(e.TotalPrice) })
		enc.Field("bonus", func(enc *jx.Encoder) { enc.Int64(e.Bonus) })
		enc.Field("placedAt", func(enc *jx.Encoder) { enc.Str(e.PlacedAt.Format(time.RFC3339Nano)) })
	})
}

// Decode reads an event encoded by Encode.
func (e *OrderPlaced) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "orderId":
			e.OrderID, err = d.Str()
		case "customerId":
			e.CustomerID, err = d.Str()
		case "totalPrice":
			e.TotalPrice, err = d.Str()
		case "bonus":
			e.Bonus, err = d.Int64()
		case "placedAt":
			var s string
			if s, err = d.Str(); err == nil {
				e.PlacedAt, err = time.Parse(time.RFC3339Nano, s)
			}
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
}

// Writer is the subset of *kafka.Writer used by KafkaPublisher.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes OrderPlaced events keyed by order id.
type KafkaPublisher struct {
	w Writer
}

var _ order.Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return NewPublisher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	})
}

// NewPublisher creates a publisher on top of w.
func NewPublisher(w Writer) *KafkaPublisher {
	return &KafkaPublisher{w: w}
}

// Publish implements order.Publisher.
func (p *KafkaPublisher) Publish(ctx context.Context, o *order.Order) error {
	e := NewOrderPlaced(o)
	enc := jx.GetEncoder()
	defer jx.PutEncoder(enc)
	e.Encode(enc)

	// The encoder buffer is reused, the message needs its own copy.
	value := append([]byte(nil), enc.Bytes()...)
	if err := p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(o.ID),
		Value: value,
		Time:  e.PlacedAt,
	}); err != nil {
		return errors.Wrap(err, "write message")
	}
	return nil
}

// Close flushes pending messages.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// Nop discards events.
type Nop struct{}

var _ order.Publisher = Nop{}

// Publish implements order.Publisher.
func (Nop) Publish(context.Context, *order.Order) error { return nil }

// ParseBrokers splits a comma separated broker list.
func ParseBrokers(csv string) []string {
	var brokers []string
	for _, b := range strings.Split(csv, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
