package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/tacedge/gateway/internal/apperr"
	"github.com/tacedge/gateway/internal/httpserver"
)

// Authenticate returns middleware that extracts and validates the bearer
// token and stores the resulting Claims in the request context. It does not
// itself enforce that a token was present — pair with RequireAuth or
// RequirePermission for that.
func Authenticate(v *Validator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			const prefix = "Bearer "
			if !strings.HasPrefix(authHeader, prefix) {
				httpserver.RespondError(w, http.StatusUnauthorized, apperr.Unauthorized, "authorization header must use the Bearer scheme")
				return
			}

			raw := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
			claims, err := v.ValidateToken(raw)
			if err != nil {
				logger.Warn("bearer token validation failed", "error", err)
				httpserver.RespondAppErr(w, logger, err)
				return
			}

			ctx := NewContext(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
