package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/juice-checkout/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT code, percent, valid_from, valid_until
		FROM coupons WHERE UPPER(code) = UPPER($1) AND active = TRUE`

	listCouponCodesSQL = `SELECT code FROM coupons WHERE active = TRUE`

	upsertCouponSQL = `INSERT INTO coupons (code, percent, valid_from, valid_until, active)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (code) DO UPDATE SET
			percent = EXCLUDED.percent,
			valid_from = EXCLUDED.valid_from,
			valid_until = EXCLUDED.valid_until,
			active = TRUE`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up an active coupon by its code (case-insensitive).
// Returns coupon.ErrUnknownCoupon when no matching active coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Rule, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	rule, err := pgx.CollectExactlyOneRow(rows, scanCouponRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrUnknownCoupon
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &rule, nil
}

// ListCodes returns the codes of all active coupons.
func (r *CouponRepository) ListCodes(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listCouponCodesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupon codes: %w", err)
	}
	codes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("listing coupon codes: %w", err)
	}
	return codes, nil
}

// Upsert stores rule as an active coupon.
func (r *CouponRepository) Upsert(ctx context.Context, rule coupon.Rule) error {
	if _, err := r.pool.Exec(ctx, upsertCouponSQL,
		coupon.Normalize(rule.Code), rule.Percent, rule.ValidFrom, rule.ValidUntil,
	); err != nil {
		return fmt.Errorf("upserting coupon %q: %w", rule.Code, err)
	}
	return nil
}

func scanCouponRule(row pgx.CollectableRow) (coupon.Rule, error) {
	var (
		rule       coupon.Rule
		percent    int32
		validFrom  *time.Time
		validUntil *time.Time
	)
	err := row.Scan(&rule.Code, &percent, &validFrom, &validUntil)
	rule.Percent = int(percent)
	rule.ValidFrom = validFrom
	rule.ValidUntil = validUntil
	return rule, err
}
