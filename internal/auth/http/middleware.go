package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sysdesk/sysdesk/internal/auth/domain"
	"github.com/sysdesk/sysdesk/internal/auth/service"
	"github.com/sysdesk/sysdesk/pkg/httpx"
)

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}
	return ""
}

// requireAuth validates the access token and its backing session, then
// attaches the caller's identity to the request context. Every failure mode
// collapses onto a generic 401; specifics live in the logs.
func (rt *Router) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}

		id, err := rt.SessionService.Authenticate(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrInvalidAccess),
				errors.Is(err, service.ErrSessionRevoked),
				errors.Is(err, service.ErrAccountInactive),
				errors.Is(err, service.ErrTenantInactive):
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
			default:
				httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Authentication failed")
			}
			return
		}

		ctx := context.WithValue(r.Context(), httpx.CtxKeyUserID, id.UserID)
		ctx = context.WithValue(ctx, httpx.CtxKeyTenantID, id.TenantID)
		ctx = context.WithValue(ctx, httpx.CtxKeyRole, string(id.Role))
		ctx = context.WithValue(ctx, httpx.CtxKeySessionID, id.SessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole gates a route on the caller's role, evaluated by the explicit
// authorize function rather than any handler metadata. Must sit inside
// requireAuth in the chain.
func (rt *Router) requireRole(required ...domain.Role) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := domain.ParseRole(httpx.RoleFromCtx(r.Context()))
			if !ok || !domain.Authorize(role, required, rt.authzMode) {
				httpx.WriteError(w, http.StatusForbidden, "forbidden", "Insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
