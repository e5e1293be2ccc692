package http

import (
	"errors"
	"net/http"

	"github.com/sysdesk/sysdesk/internal/auth/service"
	"github.com/sysdesk/sysdesk/pkg/httpx"
	"github.com/sysdesk/sysdesk/pkg/slogx"
)

type RefreshHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Token Refresh Endpoint
//	@Description	Exchange a valid refresh token for a brand-new token pair. The presented refresh token is single-use:
//	@Description	it is invalidated by the exchange, and replaying it (or losing a concurrent refresh race) yields 401.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	TokenResponse		"access_token, refresh_token, token_type, expires_in"
//	@Failure		401	{object}	httpx.ErrorResponse	"error, error_description"
//	@Failure		500	{object}	httpx.ErrorResponse	"error, error_description"
//	@Security		BearerAuth
//	@Router			/auth/refresh [post].
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	token := bearerToken(r)
	if token == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Refresh token required")
		return
	}

	pair, err := h.TokenService.Refresh(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRefresh),
			errors.Is(err, service.ErrAccountInactive),
			errors.Is(err, service.ErrTenantInactive):
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Invalid or expired refresh token")
		default:
			log.Error("refresh failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Refresh failed")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newTokenResponse(pair, nil))
}
