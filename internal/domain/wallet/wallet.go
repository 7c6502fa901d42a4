// Package wallet debits order totals from and credits reward points to a
// customer's stored-value balance.
package wallet

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// PaymentID is the payment method identifier selecting the wallet.
const PaymentID = "wallet"

// ErrInsufficientFunds is returned when the balance does not cover a charge.
var ErrInsufficientFunds = errors.New("insufficient wallet funds")

// Store keeps wallet balances. Debit and Credit must each be a single atomic
// adjustment of the stored balance.
type Store interface {
	// Balance returns the current balance. A customer without a wallet has a
	// zero balance.
	Balance(ctx context.Context, customerID string) (decimal.Decimal, error)
	// Debit subtracts amount only if the balance covers it, returning
	// ErrInsufficientFunds otherwise without touching the balance.
	Debit(ctx context.Context, customerID string, amount decimal.Decimal) (decimal.Decimal, error)
	// Credit adds amount, creating the wallet when it does not exist.
	Credit(ctx context.Context, customerID string, amount decimal.Decimal) (decimal.Decimal, error)
}

// Ledger applies order payments and rewards to wallets.
type Ledger struct {
	store Store
}

// NewLedger creates a Ledger backed by store.
func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Charge debits amount from the customer's wallet. The balance is checked
// before any mutation; when it is short ErrInsufficientFunds is returned and
// the wallet is left as is.
func (l *Ledger) Charge(ctx context.Context, customerID string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errors.Errorf("negative charge %s", amount)
	}
	// A customer without a wallet row can still pay a free order.
	if amount.IsZero() {
		return nil
	}

	balance, err := l.store.Balance(ctx, customerID)
	if err != nil {
		return errors.Wrap(err, "read balance")
	}
	if balance.LessThan(amount) {
		return ErrInsufficientFunds
	}

	if _, err := l.store.Debit(ctx, customerID, amount); err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			return ErrInsufficientFunds
		}
		return errors.Wrap(err, "debit")
	}
	return nil
}

// Reward credits earned points to the customer's wallet.
func (l *Ledger) Reward(ctx context.Context, customerID string, points int64) error {
	if points <= 0 {
		return nil
	}
	if _, err := l.store.Credit(ctx, customerID, decimal.NewFromInt(points)); err != nil {
		return errors.Wrap(err, "credit")
	}
	return nil
}
