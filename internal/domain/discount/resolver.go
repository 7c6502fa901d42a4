// Package discount resolves the percentage discount applicable to a basket,
// either from its stored coupon or from a client supplied campaign token.
package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/juice-checkout/internal/domain/basket"
	"github.com/xenking/juice-checkout/internal/domain/coupon"
)

// Source identifies where a resolved discount came from.
type Source string

const (
	SourceNone     Source = "none"
	SourceCoupon   Source = "coupon"
	SourceCampaign Source = "campaign"
)

// forgedCouponThreshold is the stored coupon percentage from which a grant
// is flagged for audit.
const forgedCouponThreshold = 80

// Signal is a diagnostic audit event raised during resolution. Signals never
// change the resolved percentage.
type Signal string

const (
	// SignalHighCouponDiscount flags a stored coupon granting 80% or more.
	SignalHighCouponDiscount Signal = "high_coupon_discount"
	// SignalExpiredCampaign flags an accepted campaign whose validity
	// timestamp lies in the past.
	SignalExpiredCampaign Signal = "expired_campaign"
)

// Auditor receives audit signals.
type Auditor interface {
	Signal(ctx context.Context, s Signal, code string)
}

// LogAuditor writes signals to the context logger.
type LogAuditor struct{}

// Signal implements Auditor.
func (LogAuditor) Signal(ctx context.Context, s Signal, code string) {
	zctx.From(ctx).Info("Discount audit signal",
		zap.String("signal", string(s)),
		zap.String("code", code),
	)
}

// Resolution is the outcome of discount resolution.
type Resolution struct {
	Percent int
	Source  Source
	Code    string
}

// Resolver computes the applicable discount for a basket.
type Resolver struct {
	coupons   coupon.Decoder
	campaigns Campaigns
	audit     Auditor
	now       func() time.Time
}

// NewResolver creates a Resolver. A nil auditor defaults to LogAuditor.
func NewResolver(coupons coupon.Decoder, campaigns Campaigns, audit Auditor) *Resolver {
	if audit == nil {
		audit = LogAuditor{}
	}
	return &Resolver{
		coupons:   coupons,
		campaigns: campaigns,
		audit:     audit,
		now:       time.Now,
	}
}

// Resolve returns the discount for the basket. A stored coupon that decodes
// to a percentage wins outright and the token is then ignored. Otherwise the
// token is accepted only when its timestamp equals the campaign's validity
// timestamp exactly. Errors come from the coupon decoder's backing store.
func (r *Resolver) Resolve(ctx context.Context, b *basket.Basket, token string) (Resolution, error) {
	if b.Coupon != "" {
		pct, ok, err := r.coupons.Decode(ctx, b.Coupon)
		if err != nil {
			return Resolution{}, errors.Wrap(err, "decode coupon")
		}
		if ok {
			pct = clamp(pct)
			if pct >= forgedCouponThreshold {
				r.audit.Signal(ctx, SignalHighCouponDiscount, b.Coupon)
			}
			return Resolution{Percent: pct, Source: SourceCoupon, Code: b.Coupon}, nil
		}
	}

	if token != "" {
		if res, ok := r.resolveCampaign(ctx, token); ok {
			return res, nil
		}
	}

	return Resolution{Source: SourceNone}, nil
}

func (r *Resolver) resolveCampaign(ctx context.Context, token string) (Resolution, bool) {
	lg := zctx.From(ctx)

	code, ts, err := DecodeCampaignToken(token)
	if err != nil {
		lg.Warn("Campaign token rejected", zap.Error(err))
		return Resolution{}, false
	}

	campaign, ok := r.campaigns.Lookup(code)
	if !ok || campaign.ValidOn != ts {
		lg.Warn("Campaign token rejected",
			zap.Error(ErrInvalidCampaignToken),
			zap.String("code", code),
			zap.Int64("timestamp", ts),
		)
		return Resolution{}, false
	}

	if campaign.ValidOn < r.now().UnixMilli() {
		r.audit.Signal(ctx, SignalExpiredCampaign, code)
	}
	return Resolution{Percent: clamp(campaign.Percent), Source: SourceCampaign, Code: code}, true
}

func clamp(pct int) int {
	return min(max(pct, 0), 100)
}
