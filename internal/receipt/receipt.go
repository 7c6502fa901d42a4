// Package receipt renders order confirmations as gzip compressed text
// documents.
package receipt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/klauspost/pgzip"
	"go.uber.org/zap"

	"github.com/xenking/juice-checkout/internal/domain/order"
	"github.com/xenking/juice-checkout/internal/domain/pricing"
)

// Lines returns the receipt body: one line per priced line in basket order,
// the discount line when a discount applied, then delivery, total and bonus.
func Lines(o *order.Order, q pricing.Quote) []string {
	lines := make([]string, 0, len(q.Lines)+4)
	for _, l := range q.Lines {
		lines = append(lines, fmt.Sprintf("%dx %s ea. %s = %s¤",
			l.Quantity, l.Name, l.UnitPrice.StringFixed(2), l.Total.StringFixed(2),
		))
	}
	if q.DiscountPercent > 0 {
		lines = append(lines, DiscountLine(q))
	}
	lines = append(lines,
		fmt.Sprintf("Delivery Price: %s¤", o.DeliveryPrice.StringFixed(2)),
		fmt.Sprintf("Total Price: %s¤", o.TotalPrice.StringFixed(2)),
		fmt.Sprintf("Bonus Points Earned: %d", o.Bonus),
	)
	return lines
}

// DiscountLine formats the applied discount.
func DiscountLine(q pricing.Quote) string {
	return fmt.Sprintf("%d%% discount from coupon: -%s¤", q.DiscountPercent, q.DiscountAmount.StringFixed(2))
}

// FileName returns the archive name of the receipt of order id.
func FileName(id string) string {
	return "order_" + id + ".txt.gz"
}

// ArchiveRenderer writes receipts into a directory.
type ArchiveRenderer struct {
	dir string
}

var _ order.Renderer = (*ArchiveRenderer)(nil)

// NewArchiveRenderer creates the directory when missing.
func NewArchiveRenderer(dir string) (*ArchiveRenderer, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrap(err, "create receipt dir")
	}
	return &ArchiveRenderer{dir: dir}, nil
}

// Render implements order.Renderer.
func (r *ArchiveRenderer) Render(ctx context.Context, o *order.Order, q pricing.Quote) (rerr error) {
	name := filepath.Join(r.dir, FileName(o.ID))
	f, err := os.Create(filepath.Clean(name))
	if err != nil {
		return errors.Wrap(err, "create receipt")
	}
	defer func() {
		if err := f.Close(); err != nil && rerr == nil {
			rerr = errors.Wrap(err, "close receipt")
		}
	}()

	zw := pgzip.NewWriter(f)
	zw.Name = strings.TrimSuffix(FileName(o.ID), ".gz")
	zw.ModTime = o.CreatedAt

	var b strings.Builder
	fmt.Fprintf(&b, "Order Confirmation %s\n\n", o.ID)
	if o.Email != "" {
		fmt.Fprintf(&b, "Customer: %s\n", o.Email)
	}
	fmt.Fprintf(&b, "Order Date: %s\n\n", o.CreatedAt.Format("2006-01-02"))
	for _, l := range Lines(o, q) {
		b.WriteString(l)
		b.WriteByte('\n')
	}

	if _, err := zw.Write([]byte(b.String())); err != nil {
		return errors.Wrap(err, "write receipt")
	}
	if err := zw.Close(); err != nil {
		return errors.Wrap(err, "flush receipt")
	}

	zctx.From(ctx).Debug("Receipt written", zap.String("path", name))
	return nil
}
