package discount

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterAuditor counts signals and forwards them to next.
type MeterAuditor struct {
	next    Auditor
	signals metric.Int64Counter
}

var _ Auditor = (*MeterAuditor)(nil)

// NewMeterAuditor registers the checkout.audit.signals counter on meter.
func NewMeterAuditor(meter metric.Meter, next Auditor) (*MeterAuditor, error) {
	if next == nil {
		next = LogAuditor{}
	}
	c, err := meter.Int64Counter("checkout.audit.signals",
		metric.WithDescription("Discount audit signals raised during checkout"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "signals counter")
	}
	return &MeterAuditor{next: next, signals: c}, nil
}

// Signal implements Auditor.
func (a *MeterAuditor) Signal(ctx context.Context, s Signal, code string) {
	a.signals.Add(ctx, 1, metric.WithAttributes(attribute.String("signal", string(s))))
	a.next.Signal(ctx, s, code)
}
