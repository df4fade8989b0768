// Package testutil provides request helpers shared across handler tests.
package testutil

import (
	"net/http"
	"time"

	"tokengate/pkg/domain"
	"tokengate/pkg/requestcontext"
)

// WithCaller attaches a caller address to the request context, simulating
// what the auth middleware does for authenticated requests. Invalid addresses
// are silently ignored.
func WithCaller(req *http.Request, caller string) *http.Request {
	address, err := domain.ParseAddress(caller)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithCaller(req.Context(), address))
}

// WithTime pins the request clock, keeping expiry checks deterministic.
func WithTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
