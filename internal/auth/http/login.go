package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sysdesk/sysdesk/internal/auth/service"
	"github.com/sysdesk/sysdesk/pkg/httpx"
	"github.com/sysdesk/sysdesk/pkg/slogx"
)

type LoginHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Login Endpoint
//	@Description	Verify a tenant-scoped email and password, create a session, and return an access/refresh token pair.
//	@Description	Invalid credentials, locked and deactivated accounts all return the same generic 401 body; a lockout additionally carries retry_after_seconds.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string					true	"Tenant id the credentials belong to"
//	@Param			request		body		LoginRequest			true	"Credentials"
//	@Success		200			{object}	TokenResponse			"access_token, refresh_token, token_type, expires_in, user"
//	@Failure		400			{object}	httpx.ErrorResponse		"error, error_description"
//	@Failure		401			{object}	httpx.ErrorResponse		"error, error_description"
//	@Failure		500			{object}	httpx.ErrorResponse		"error, error_description"
//	@Router			/auth/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	tenantID := r.Header.Get("X-Tenant-ID")
	if tenantID == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "X-Tenant-ID header is required",
		})
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Email == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
			Error: "invalid_request", ErrorDescription: "email is required", Field: "email",
		})
		return
	}
	if req.Password == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
			Error: "invalid_request", ErrorDescription: "password is required", Field: "password",
		})
		return
	}

	meta := service.LoginMeta{
		IP:        httpx.IPKeyExtractor(r),
		UserAgent: r.UserAgent(),
	}

	user, pair, err := h.TokenService.Login(ctx, tenantID, req.Email, req.Password, meta)
	if err != nil {
		var locked *service.LockedError
		switch {
		case errors.As(err, &locked):
			// Same generic error code; the retry hint is a deliberate
			// policy choice and does not reveal which credential failed.
			httpx.WriteJSON(w, http.StatusUnauthorized, httpx.ErrorResponse{
				Error:            "invalid_credentials",
				ErrorDescription: "Invalid email or password",
				RetryAfterSec:    int(locked.RetryAfter(time.Now()).Seconds()),
			})
		case errors.Is(err, service.ErrInvalidCredentials),
			errors.Is(err, service.ErrAccountInactive),
			errors.Is(err, service.ErrTenantInactive):
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
		default:
			log.Error("login failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Login failed")
		}
		return
	}

	userResp := newUserResponse(user)
	httpx.WriteJSON(w, http.StatusOK, newTokenResponse(pair, &userResp))
}
