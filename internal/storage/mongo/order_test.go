package mongo

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/xenking/juice-checkout/internal/domain/order"
	"github.com/xenking/juice-checkout/internal/domain/pricing"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func testOrder() *order.Order {
	return &order.Order{
		ID:                "5267-f9cd5882f54c75a3",
		CustomerID:        "c1",
		Email:             "j*m@j**c*-sh.*p",
		PaymentID:         "wallet",
		AddressID:         "a1",
		PromotionalAmount: d("2.40"),
		DeliveryPrice:     d("0.99"),
		ETA:               2,
		TotalPrice:        d("22.56"),
		Bonus:             2,
		Products: []pricing.Line{
			{ProductID: "1", Name: "Apple Juice", Quantity: 2, UnitPrice: d("1.99"), Total: d("3.98")},
		},
		CreatedAt: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
	}
}

func TestDocRoundTrip(t *testing.T) {
	o := testOrder()

	doc, err := toDoc(o)
	require.NoError(t, err)

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	var decoded orderDoc
	require.NoError(t, bson.Unmarshal(raw, &decoded))

	got, err := fromDoc(decoded)
	require.NoError(t, err)

	assert.Equal(t, o.ID, got.ID)
	assert.Equal(t, o.Email, got.Email)
	assert.True(t, o.TotalPrice.Equal(got.TotalPrice))
	assert.True(t, o.PromotionalAmount.Equal(got.PromotionalAmount))
	assert.True(t, o.DeliveryPrice.Equal(got.DeliveryPrice))
	assert.Equal(t, o.ETA, got.ETA)
	assert.False(t, got.Delivered)
	require.Len(t, got.Products, 1)
	assert.True(t, d("3.98").Equal(got.Products[0].Total))
	assert.True(t, o.CreatedAt.Equal(got.CreatedAt))
}

func TestDoc_FieldNames(t *testing.T) {
	doc, err := toDoc(testOrder())
	require.NoError(t, err)

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)

	var m bson.M
	require.NoError(t, bson.Unmarshal(raw, &m))
	for _, key := range []string{"orderId", "email", "paymentId", "addressId", "promotionalAmount",
		"deliveryPrice", "eta", "totalPrice", "bonus", "delivered", "products"} {
		assert.Contains(t, m, key)
	}
}

func TestDoc_AnonymousOmitsCustomer(t *testing.T) {
	o := testOrder()
	o.CustomerID = ""

	doc, err := toDoc(o)
	require.NoError(t, err)
	raw, err := bson.Marshal(doc)
	require.NoError(t, err)

	var m bson.M
	require.NoError(t, bson.Unmarshal(raw, &m))
	assert.NotContains(t, m, "customerId")
}
