package httpx

import "context"

type ctxKey string

// Context keys populated by the authentication middleware.
const (
	CtxKeyUserID    ctxKey = "user_id"
	CtxKeyTenantID  ctxKey = "tenant_id"
	CtxKeyRole      ctxKey = "role"
	CtxKeySessionID ctxKey = "session_id"
)

// UserIDFromCtx returns the authenticated user id, or "" when anonymous.
func UserIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}

// TenantIDFromCtx returns the authenticated tenant id, or "".
func TenantIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyTenantID).(string); ok {
		return v
	}
	return ""
}

// RoleFromCtx returns the authenticated role name, or "".
func RoleFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyRole).(string); ok {
		return v
	}
	return ""
}

// SessionIDFromCtx returns the authenticated session id, or "".
func SessionIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeySessionID).(string); ok {
		return v
	}
	return ""
}
