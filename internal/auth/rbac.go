package auth

import (
	"net/http"

	"github.com/tacedge/gateway/internal/apperr"
	"github.com/tacedge/gateway/internal/httpserver"
)

// RequireAuth rejects requests that have no validated claims.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()) == nil {
			httpserver.RespondError(w, http.StatusUnauthorized, apperr.Unauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePermission returns middleware that rejects requests whose claims do
// not carry perm in their effective permission set (spec P9: RBAC minimality).
func RequirePermission(perm Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := FromContext(r.Context())
			if c == nil {
				httpserver.RespondError(w, http.StatusUnauthorized, apperr.Unauthorized, "authentication required")
				return
			}
			if !c.Has(perm) {
				httpserver.RespondError(w, http.StatusForbidden, apperr.Forbidden, "missing required permission: "+string(perm))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
