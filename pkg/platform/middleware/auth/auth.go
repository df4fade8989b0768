// Package auth resolves bearer tokens to caller addresses. The middleware
// only establishes identity; per-operation authorization against the agent
// registry happens in the services.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"tokengate/pkg/domain"
	dErrors "tokengate/pkg/domain-errors"
	"tokengate/pkg/platform/httputil"
	"tokengate/pkg/requestcontext"
)

// TokenValidator maps a bearer token to the address it was issued to.
type TokenValidator interface {
	CallerAddress(tokenString string) (domain.Address, error)
}

// Middleware attaches the caller address to the context when a valid bearer
// token is present. Requests without a token proceed anonymously; operations
// that need authorization reject them downstream.
func Middleware(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			caller, err := validator.CallerAddress(token)
			if err != nil {
				ctx := r.Context()
				if logger != nil {
					logger.WarnContext(ctx, "rejected bearer token",
						"request_id", requestcontext.RequestID(ctx), "error", err)
				}
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			ctx := requestcontext.WithCaller(r.Context(), caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
