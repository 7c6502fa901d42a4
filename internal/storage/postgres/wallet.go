package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/juice-checkout/internal/domain/wallet"
)

const (
	getBalanceSQL = `SELECT balance FROM wallets WHERE customer_id = $1`

	debitWalletSQL = `UPDATE wallets SET balance = balance - $2
		WHERE customer_id = $1 AND balance >= $2
		RETURNING balance`

	creditWalletSQL = `INSERT INTO wallets (customer_id, balance) VALUES ($1, $2)
		ON CONFLICT (customer_id) DO UPDATE SET balance = wallets.balance + EXCLUDED.balance
		RETURNING balance`
)

var _ wallet.Store = (*WalletRepository)(nil)

// WalletRepository implements wallet.Store backed by PostgreSQL. Debit and
// Credit are single statements adjusting the stored balance in place.
type WalletRepository struct {
	pool *pgxpool.Pool
}

// NewWalletRepository returns a WalletRepository that uses the given pool.
func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

// Balance returns zero for customers without a wallet.
func (r *WalletRepository) Balance(ctx context.Context, customerID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	if err := r.pool.QueryRow(ctx, getBalanceSQL, customerID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("reading balance of %q: %w", customerID, err)
	}
	return balance, nil
}

// Debit subtracts amount only when the balance covers it.
func (r *WalletRepository) Debit(ctx context.Context, customerID string, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	if err := r.pool.QueryRow(ctx, debitWalletSQL, customerID, amount).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, wallet.ErrInsufficientFunds
		}
		return decimal.Zero, fmt.Errorf("debiting wallet of %q: %w", customerID, err)
	}
	return balance, nil
}

// Credit adds amount, creating the wallet on first credit.
func (r *WalletRepository) Credit(ctx context.Context, customerID string, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	if err := r.pool.QueryRow(ctx, creditWalletSQL, customerID, amount).Scan(&balance); err != nil {
		return decimal.Zero, fmt.Errorf("crediting wallet of %q: %w", customerID, err)
	}
	return balance, nil
}
