// Package pricing turns basket lines, a discount percentage and a delivery
// tier into a priced order. It performs no I/O.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/juice-checkout/internal/domain/delivery"
)

var (
	hundred = decimal.NewFromInt(100)
	ten     = decimal.NewFromInt(10)
)

// Item is a basket line prepared for pricing. Name is already localized.
type Item struct {
	ProductID   string
	Name        string
	Quantity    int
	Price       decimal.Decimal
	DeluxePrice decimal.Decimal
}

// Line is a priced basket line.
type Line struct {
	ProductID string
	Name      string
	Quantity  int
	// UnitPrice is the price actually charged per unit.
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
	// Bonus is the reward points earned by the line.
	Bonus int64
}

// Quote is the priced order.
type Quote struct {
	Lines           []Line
	Subtotal        decimal.Decimal
	DiscountPercent int
	DiscountAmount  decimal.Decimal
	DeliveryAmount  decimal.Decimal
	Total           decimal.Decimal
	Points          int64
}

// Price computes the quote.
//
// Per line the unit price is the deluxe price for premium customers and the
// standard price otherwise; the bonus is round(unitPrice/10) * quantity.
// The discount is round2(subtotal * pct / 100) and is subtracted in its
// rounded form before the delivery price is added. Rounding is half away
// from zero in both places.
func Price(items []Item, discountPct int, opt delivery.Option, premium bool) Quote {
	q := Quote{
		Lines:           make([]Line, 0, len(items)),
		Subtotal:        decimal.Zero,
		DiscountPercent: discountPct,
		DiscountAmount:  decimal.Zero,
	}

	for _, it := range items {
		unit := it.Price
		if premium {
			unit = it.DeluxePrice
		}
		qty := decimal.NewFromInt(int64(it.Quantity))
		total := unit.Mul(qty)
		bonus := BonusPerUnit(unit) * int64(it.Quantity)

		q.Lines = append(q.Lines, Line{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: unit,
			Total:     total,
			Bonus:     bonus,
		})
		q.Subtotal = q.Subtotal.Add(total)
		q.Points += bonus
	}

	if discountPct > 0 {
		q.DiscountAmount = q.Subtotal.Mul(decimal.NewFromInt(int64(discountPct))).Div(hundred).Round(2)
	}

	q.DeliveryAmount = opt.PriceFor(premium)
	q.Total = q.Subtotal.Sub(q.DiscountAmount).Add(q.DeliveryAmount)
	return q
}

// BonusPerUnit returns the reward points earned per unit at the given price.
func BonusPerUnit(unitPrice decimal.Decimal) int64 {
	return unitPrice.Div(ten).Round(0).IntPart()
}
