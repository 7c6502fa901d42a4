// Package httpmiddleware contains the HTTP middlewares of the checkout API.
package httpmiddleware

import "net/http"

// Middleware wraps an http.Handler. It has the shape chi's Router.Use expects.
type Middleware = func(http.Handler) http.Handler

// Wrap applies middlewares so that the first one is the outermost.
func Wrap(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
