// Package middleware provides the HTTP middleware chain for the
// gateway's inbound listener.
//
// The chain, outermost first: Recovery, Logging, RequestID, CORS,
// Timeout. Each middleware is a standard func(http.Handler) http.Handler
// so it composes with any mux.
package middleware
