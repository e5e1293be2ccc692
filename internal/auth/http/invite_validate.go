package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/sysdesk/sysdesk/internal/auth/domain"
	"github.com/sysdesk/sysdesk/internal/auth/service"
	"github.com/sysdesk/sysdesk/pkg/httpx"
	"github.com/sysdesk/sysdesk/pkg/slogx"
)

type InviteValidateHandler struct {
	InviteService *service.InviteService
}

// ServeHTTP godoc
//
//	@Summary		Invite Validation Endpoint
//	@Description	Classify an invite token without consuming it. Unknown and cancelled tokens read identically.
//	@Tags			Invitations
//	@Produce		json
//	@Param			token	query		string					true	"Raw invite token"
//	@Success		200		{object}	InviteValidateResponse	"valid, status, invite or error"
//	@Failure		400		{object}	httpx.ErrorResponse		"error, error_description"
//	@Failure		500		{object}	httpx.ErrorResponse		"error, error_description"
//	@Router			/invites/validate [get].
func (h *InviteValidateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	token := r.URL.Query().Get("token")
	if token == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
			Error: "invalid_request", ErrorDescription: "token is required", Field: "token",
		})
		return
	}

	invite, status, err := h.InviteService.Validate(ctx, token)
	if err != nil {
		if errors.Is(err, service.ErrInviteNotFound) {
			httpx.WriteJSON(w, http.StatusOK, InviteValidateResponse{
				Valid: false,
				Error: "invite_not_found",
			})
			return
		}
		log.Error("failed to validate invite", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to validate invite")
		return
	}

	resp := newInviteResponse(invite, time.Now())
	httpx.WriteJSON(w, http.StatusOK, InviteValidateResponse{
		Valid:  status == domain.InviteStatusPending,
		Status: string(status),
		Invite: &resp,
	})
}
