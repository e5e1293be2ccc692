package http

import (
	"encoding/json"
	"net/http"

	"github.com/sysdesk/sysdesk/internal/auth/service"
	"github.com/sysdesk/sysdesk/pkg/httpx"
	"github.com/sysdesk/sysdesk/pkg/slogx"
)

type LogoutHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Logout Endpoint
//	@Description	Revoke the session behind the presented access token, or the caller's session holding the
//	@Description	optionally supplied refresh token. Takes effect immediately; the access token dies with its
//	@Description	session long before its cryptographic expiry. Idempotent.
//	@Tags			Auth
//	@Param			request	body	LogoutRequest	false	"optional refresh token selecting the session"
//	@Success		204	"session revoked"
//	@Failure		401	{object}	httpx.ErrorResponse	"error, error_description"
//	@Failure		500	{object}	httpx.ErrorResponse	"error, error_description"
//	@Security		BearerAuth
//	@Router			/auth/logout [post].
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	sessionID := httpx.SessionIDFromCtx(ctx)
	if sessionID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	// The body is optional; a missing or malformed one means the caller's
	// own session.
	var req LogoutRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if err := h.TokenService.Logout(ctx, httpx.UserIDFromCtx(ctx), sessionID, req.RefreshToken); err != nil {
		log.Error("logout failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Logout failed")
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

type LogoutAllHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Logout All Endpoint
//	@Description	Revoke every active session the caller owns and report how many were revoked.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	LogoutAllResponse	"sessions_revoked"
//	@Failure		401	{object}	httpx.ErrorResponse	"error, error_description"
//	@Failure		500	{object}	httpx.ErrorResponse	"error, error_description"
//	@Security		BearerAuth
//	@Router			/auth/logout-all [post].
func (h *LogoutAllHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	count, err := h.TokenService.LogoutAll(ctx, userID)
	if err != nil {
		log.Error("logout-all failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Logout failed")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, LogoutAllResponse{SessionsRevoked: count})
}
