package middleware

import "net/http"

// Middleware wraps an http.Handler with additional functionality.
// Middlewares can be composed using Chain.
type Middleware func(http.Handler) http.Handler

// Chain composes multiple middlewares into a single middleware. The first
// middleware given is the outermost wrapper, executed first on request.
func Chain(middlewares ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}
