package middleware

import "net/http"

// Instrument invokes observe with the request path and final status of
// every served request. observe must be safe for concurrent use.
func Instrument(observe func(route string, status int)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			observe(r.URL.Path, rw.statusCode)
		})
	}
}
