package http

import (
	"errors"
	"net/http"

	"github.com/sysdesk/sysdesk/internal/auth/service"
	"github.com/sysdesk/sysdesk/pkg/httpx"
	"github.com/sysdesk/sysdesk/pkg/slogx"
)

type InviteDeleteHandler struct {
	InviteService *service.InviteService
}

// ServeHTTP godoc
//
//	@Summary		Invite Cancellation Endpoint
//	@Description	Cancel an untouched invite. Invites that have recorded any use are audit history and cannot be deleted.
//	@Tags			Invitations
//	@Produce		json
//	@Param			id	path	string	true	"Invite id"
//	@Success		204	"invite cancelled"
//	@Failure		401	{object}	httpx.ErrorResponse	"error, error_description"
//	@Failure		404	{object}	httpx.ErrorResponse	"error, error_description"
//	@Failure		409	{object}	httpx.ErrorResponse	"error, error_description"
//	@Failure		500	{object}	httpx.ErrorResponse	"error, error_description"
//	@Security		BearerAuth
//	@Router			/invites/{id} [delete].
func (h *InviteDeleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := h.InviteService.Delete(ctx, httpx.TenantIDFromCtx(ctx), r.PathValue("id")); err != nil {
		switch {
		case errors.Is(err, service.ErrInviteNotFound):
			httpx.WriteError(w, http.StatusNotFound, "not_found", "Invite not found")
		case errors.Is(err, service.ErrInviteInUse):
			httpx.WriteError(w, http.StatusConflict, "invalid_state", "Invite has already been used")
		default:
			log.Error("failed to delete invite", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to delete invite")
		}
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}
