package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// ErrUnknownCoupon is returned by a Repository when no active coupon with
// the requested code exists.
var ErrUnknownCoupon = errors.New("unknown coupon code")

// Rule is a stored coupon granting a percentage discount within an optional
// validity window.
type Rule struct {
	Code       string
	Percent    int
	ValidFrom  *time.Time
	ValidUntil *time.Time
}

// ActiveAt reports whether the rule's validity window contains t.
func (r Rule) ActiveAt(t time.Time) bool {
	if r.ValidFrom != nil && t.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidUntil != nil && t.After(*r.ValidUntil) {
		return false
	}
	return true
}

// Repository provides lookup of stored coupon rules.
type Repository interface {
	// FindByCode returns ErrUnknownCoupon when the code is not registered.
	FindByCode(ctx context.Context, code string) (*Rule, error)
}

// Decoder maps a coupon code to the percentage discount it grants.
type Decoder interface {
	// Decode returns ok=false when the code grants no discount. Errors are
	// reserved for infrastructure failures.
	Decode(ctx context.Context, code string) (percent int, ok bool, err error)
}

// Normalize returns the canonical form of a coupon code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
