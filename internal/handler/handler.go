// Package handler implements the checkout HTTP API on chi with jx encoding.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"

	"github.com/xenking/juice-checkout/internal/domain/order"
	"github.com/xenking/juice-checkout/internal/i18n"
	"github.com/xenking/juice-checkout/internal/identity"
)

// OrderPlacer places orders.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req order.PlaceOrderRequest) (*order.PlaceOrderResult, error)
}

// LanguageMatcher picks the supported language for an Accept-Language header.
type LanguageMatcher interface {
	Match(acceptLanguage string) language.Tag
}

var _ OrderPlacer = (*order.Service)(nil)

// Handler serves the checkout API.
type Handler struct {
	orders    OrderPlacer
	identity  identity.Provider
	languages LanguageMatcher
}

// New creates a Handler. A nil languages matcher leaves the request language
// at the default.
func New(orders OrderPlacer, id identity.Provider, languages LanguageMatcher) *Handler {
	return &Handler{orders: orders, identity: id, languages: languages}
}

// Register mounts the API routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(h.language)
		r.Post("/baskets/{id}/checkout", h.Checkout)
	})
}

// language stores the negotiated language in the request context.
func (h *Handler) language(next http.Handler) http.Handler {
	if h.languages == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tag := h.languages.Match(r.Header.Get("Accept-Language"))
		next.ServeHTTP(w, r.WithContext(i18n.WithTag(r.Context(), tag)))
	})
}
