// Package httpmw provides the HTTP middleware wrapped around health
// endpoints and the ops listener.
//
// health.NewHandler composes them outermost first: panic recovery, request
// ID, body limit, trace response headers, request-scoped logging, metrics.
// Each middleware is a plain func(http.Handler) http.Handler so it can be
// tested and reordered on its own.
package httpmw
