package product

import (
	"github.com/shopspring/decimal"
)

// Product represents a catalogue item. Stock is tracked separately by the
// inventory ledger and is not part of the product record.
type Product struct {
	ID   string
	Name string
	// Price is the standard unit price.
	Price decimal.Decimal
	// DeluxePrice is the unit price charged to premium customers.
	DeluxePrice decimal.Decimal
}
