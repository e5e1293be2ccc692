package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sysdesk/sysdesk/internal/auth/service"
	"github.com/sysdesk/sysdesk/pkg/httpx"
	"github.com/sysdesk/sysdesk/pkg/slogx"
)

type BootstrapHandler struct {
	BootstrapService *service.BootstrapService
}

// ServeHTTP godoc
//
//	@Summary		Bootstrap Endpoint
//	@Description	Create the first tenant and its master admin. Only works against an empty system; any later call
//	@Description	returns 409. All subsequent accounts enter through invites.
//	@Tags			System
//	@Accept			json
//	@Produce		json
//	@Param			request	body		BootstrapRequest	true	"First tenant and admin credentials"
//	@Success		201		{object}	BootstrapResponse	"tenant_id, user"
//	@Failure		400		{object}	httpx.ErrorResponse	"error, error_description"
//	@Failure		409		{object}	httpx.ErrorResponse	"error, error_description"
//	@Failure		500		{object}	httpx.ErrorResponse	"error, error_description"
//	@Router			/bootstrap [post].
func (h *BootstrapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req BootstrapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	tenant, user, err := h.BootstrapService.Seed(ctx, req.TenantName, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyBootstrapped):
			httpx.WriteError(w, http.StatusConflict, "already_bootstrapped", "System already has users")
		case errors.Is(err, service.ErrInvalidSeedRequest):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "tenant_name, email and password are required")
		default:
			log.Error("bootstrap failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Bootstrap failed")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, BootstrapResponse{
		TenantID: tenant.ID,
		User:     newUserResponse(user),
	})
}
