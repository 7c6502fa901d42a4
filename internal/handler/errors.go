package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/juice-checkout/internal/domain/basket"
	"github.com/xenking/juice-checkout/internal/domain/delivery"
	"github.com/xenking/juice-checkout/internal/domain/order"
	"github.com/xenking/juice-checkout/internal/domain/wallet"
)

var errGeneric = errors.New("order placement failed")

// StatusFor maps a placement error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, basket.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, delivery.ErrLookupFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeOrderError exposes the taxonomy sentinel message for known failures
// and a generic message otherwise.
func (h *Handler) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)

	var step order.Step
	var stepErr *order.StepError
	if errors.As(err, &stepErr) {
		step = stepErr.Step
	}

	lg := zctx.From(r.Context())
	msg := errGeneric.Error()
	switch status {
	case http.StatusNotFound:
		msg = basket.ErrNotFound.Error()
	case http.StatusPaymentRequired:
		msg = wallet.ErrInsufficientFunds.Error()
	case http.StatusBadGateway:
		msg = delivery.ErrLookupFailed.Error()
	default:
		lg.Error("Place order", zap.String("step", string(step)), zap.Error(err))
	}
	if status != http.StatusInternalServerError {
		lg.Info("Order rejected", zap.String("step", string(step)), zap.Error(err))
	}
	writeError(w, status, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(status) })
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
	})
	writeJSON(w, status, e.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
