package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sysdesk/sysdesk/internal/auth/domain"
	"github.com/sysdesk/sysdesk/internal/auth/service"
	"github.com/sysdesk/sysdesk/internal/auth/store"
	"github.com/sysdesk/sysdesk/pkg/httpx"
	"github.com/sysdesk/sysdesk/pkg/slogx"
)

type InviteCreateHandler struct {
	InviteService *service.InviteService
	Store         store.Store
}

// ServeHTTP godoc
//
//	@Summary		Invite Creation Endpoint
//	@Description	Mint an invite for a new account in the caller's tenant. The granted role is capped at the caller's
//	@Description	own rank. The raw invite token appears once, in this response, and only its fingerprint is stored.
//	@Tags			Invitations
//	@Accept			json
//	@Produce		json
//	@Param			request	body		InviteCreateRequest	true	"Invite request"
//	@Success		201		{object}	InviteResponse		"invite with one-time invite_token"
//	@Failure		400		{object}	httpx.ErrorResponse	"error, error_description"
//	@Failure		401		{object}	httpx.ErrorResponse	"error, error_description"
//	@Failure		403		{object}	httpx.ErrorResponse	"error, error_description"
//	@Failure		409		{object}	httpx.ErrorResponse	"error, error_description"
//	@Failure		500		{object}	httpx.ErrorResponse	"error, error_description"
//	@Security		BearerAuth
//	@Router			/invites [post].
func (h *InviteCreateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req InviteCreateRequest
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
	role, ok := domain.ParseRole(req.Role)
	if !ok {
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
			Error: "invalid_request", ErrorDescription: "unknown role", Field: "role",
		})
		return
	}

	inviter, err := h.Store.Users().GetUserByID(ctx, httpx.UserIDFromCtx(ctx))
	if err != nil {
		log.Error("failed to load inviter", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to create invite")
		return
	}

	invite, token, err := h.InviteService.Create(ctx, inviter, req.Email, role, req.MaxUses, req.ExpiresAt)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRoleEscalation):
			httpx.WriteError(w, http.StatusForbidden, "forbidden_role_escalation",
				"Cannot grant a role above your own")
		case errors.Is(err, service.ErrEmailTaken):
			httpx.WriteJSON(w, http.StatusConflict, httpx.ErrorResponse{
				Error: "conflict", ErrorDescription: "An active user with this email already exists", Field: "email",
			})
		case errors.Is(err, service.ErrActiveInviteExists):
			httpx.WriteJSON(w, http.StatusConflict, httpx.ErrorResponse{
				Error: "conflict", ErrorDescription: "An active invite for this email already exists", Field: "email",
			})
		case errors.Is(err, service.ErrInvalidInviteRequest):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid invite parameters")
		default:
			log.Error("failed to create invite", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to create invite")
		}
		return
	}

	resp := newInviteResponse(invite, time.Now())
	resp.InviteToken = token
	httpx.WriteJSON(w, http.StatusCreated, resp)
}
