package coupon

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
)

// RepoDecoder implements Decoder by looking up coupon rules from a
// Repository and checking their validity window against the current time.
type RepoDecoder struct {
	repo Repository
	now  func() time.Time
}

// NewRepoDecoder creates a RepoDecoder backed by the given Repository.
func NewRepoDecoder(repo Repository) *RepoDecoder {
	return &RepoDecoder{repo: repo, now: time.Now}
}

// Decode looks up the coupon rule for the given code. Unknown, expired and
// not yet valid codes grant no discount.
func (d *RepoDecoder) Decode(ctx context.Context, code string) (int, bool, error) {
	code = Normalize(code)
	if code == "" {
		return 0, false, nil
	}

	rule, err := d.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrUnknownCoupon) {
			return 0, false, nil
		}
		return 0, false, errors.Wrap(err, "lookup coupon")
	}

	if !rule.ActiveAt(d.now()) {
		return 0, false, nil
	}
	return rule.Percent, true, nil
}

// BloomGuard wraps a Decoder with a bloom filter of known coupon codes.
// Codes the filter rejects are definitely not registered and resolve to no
// discount without consulting the wrapped Decoder.
type BloomGuard struct {
	next   Decoder
	fpRate float64
	filter atomic.Pointer[bloom.BloomFilter]
}

// NewBloomGuard builds a filter sized for the given codes at the given false
// positive rate.
func NewBloomGuard(next Decoder, codes []string, fpRate float64) *BloomGuard {
	g := &BloomGuard{next: next, fpRate: fpRate}
	g.Refresh(codes)
	return g
}

// Refresh replaces the filter with one built from codes. Concurrent Decode
// calls see either the old or the new filter.
func (g *BloomGuard) Refresh(codes []string) {
	filter := bloom.NewWithEstimates(uint(max(len(codes), 1)), g.fpRate)
	for _, c := range codes {
		filter.AddString(Normalize(c))
	}
	g.filter.Store(filter)
}

// Decode implements Decoder.
func (g *BloomGuard) Decode(ctx context.Context, code string) (int, bool, error) {
	if !g.filter.Load().TestString(Normalize(code)) {
		return 0, false, nil
	}
	return g.next.Decode(ctx, code)
}
