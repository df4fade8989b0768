// Package requestid assigns each HTTP request a correlation id, honoring an
// inbound X-Request-ID header when present.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"tokengate/pkg/requestcontext"
)

const Header = "X-Request-ID"

// Middleware stores the request id in the context and echoes it in the
// response header.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(Header)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set(Header, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
