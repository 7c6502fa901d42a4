package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/juice-checkout/internal/domain/order"
)

const maxBodyBytes = 64 << 10

// CheckoutRequest is the optional body of a checkout call.
type CheckoutRequest struct {
	PaymentID        string
	DeliveryMethodID string
	AddressID        string
	CouponData       string
}

// Decode reads the request from JSON. Unknown fields are ignored and every
// field may be absent or null.
func (c *CheckoutRequest) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var dst *string
		switch string(key) {
		case "paymentId":
			dst = &c.PaymentID
		case "deliveryMethodId":
			dst = &c.DeliveryMethodID
		case "addressId":
			dst = &c.AddressID
		case "couponData":
			dst = &c.CouponData
		default:
			return d.Skip()
		}
		return decodeOptString(d, dst)
	})
}

// decodeOptString accepts a string, a number (ids are numeric in some
// clients) or null.
func decodeOptString(d *jx.Decoder, dst *string) error {
	switch d.Next() {
	case jx.Null:
		return d.Null()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return err
		}
		*dst = n.String()
		return nil
	default:
		v, err := d.Str()
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
}

// Checkout handles POST /api/baskets/{id}/checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var body CheckoutRequest
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	if len(raw) > 0 {
		if err := body.Decode(jx.DecodeBytes(raw)); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	req := order.PlaceOrderRequest{
		BasketID:         chi.URLParam(r, "id"),
		PaymentID:        body.PaymentID,
		DeliveryMethodID: body.DeliveryMethodID,
		AddressID:        body.AddressID,
		CouponToken:      body.CouponData,
	}
	if h.identity != nil {
		if u, ok := h.identity.CurrentUser(r); ok {
			req.Customer = &order.Customer{ID: u.ID, Email: u.Email, Premium: u.Premium}
		}
	}

	res, err := h.orders.PlaceOrder(r.Context(), req)
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("orderConfirmation", func(e *jx.Encoder) { e.Str(res.Order.ID) })
		e.Field("order", func(e *jx.Encoder) { encodeOrder(e, res.Order) })
	})
	writeJSON(w, http.StatusOK, e.Bytes())
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("orderId", func(e *jx.Encoder) { e.Str(o.ID) })
		if o.Email != "" {
			e.Field("email", func(e *jx.Encoder) { e.Str(o.Email) })
		}
		e.Field("totalPrice", func(e *jx.Encoder) { e.Num(jx.Num(o.TotalPrice.StringFixed(2))) })
		e.Field("promotionalAmount", func(e *jx.Encoder) { e.Num(jx.Num(o.PromotionalAmount.StringFixed(2))) })
		e.Field("deliveryPrice", func(e *jx.Encoder) { e.Num(jx.Num(o.DeliveryPrice.StringFixed(2))) })
		e.Field("eta", func(e *jx.Encoder) { e.Int(o.ETA) })
		e.Field("bonus", func(e *jx.Encoder) { e.Int64(o.Bonus) })
		e.Field("paymentId", func(e *jx.Encoder) { e.Str(o.PaymentID) })
		e.Field("addressId", func(e *jx.Encoder) { e.Str(o.AddressID) })
		e.Field("delivered", func(e *jx.Encoder) { e.Bool(o.Delivered) })
		e.Field("createdAt", func(e *jx.Encoder) { e.Str(o.CreatedAt.UTC().Format(time.RFC3339)) })
		e.Field("products", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, l := range o.Products {
					e.Obj(func(e *jx.Encoder) {
						e.Field("id", func(e *jx.Encoder) { e.Str(l.ProductID) })
						e.Field("name", func(e *jx.Encoder) { e.Str(l.Name) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
						e.Field("price", func(e *jx.Encoder) { e.Num(jx.Num(l.UnitPrice.StringFixed(2))) })
						e.Field("total", func(e *jx.Encoder) { e.Num(jx.Num(l.Total.StringFixed(2))) })
						e.Field("bonus", func(e *jx.Encoder) { e.Int64(l.Bonus) })
					})
				}
			})
		})
	})
}
