package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sysdesk/sysdesk/internal/auth/service"
	"github.com/sysdesk/sysdesk/pkg/httpx"
	"github.com/sysdesk/sysdesk/pkg/slogx"
)

type RegisterHandler struct {
	InviteService *service.InviteService
}

// ServeHTTP godoc
//
//	@Summary		Invite Registration Endpoint
//	@Description	Redeem a pending invite and create the account it describes. User creation and invite consumption
//	@Description	happen in one transaction; a raced or exhausted invite leaves no partial state behind.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RegisterRequest		true	"Invite token plus the new account's name and password"
//	@Success		201		{object}	UserResponse		"created user"
//	@Failure		400		{object}	httpx.ErrorResponse	"error, error_description"
//	@Failure		409		{object}	httpx.ErrorResponse	"error, error_description"
//	@Failure		500		{object}	httpx.ErrorResponse	"error, error_description"
//	@Router			/auth/register-by-invite [post].
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Token == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
			Error: "invalid_request", ErrorDescription: "token is required", Field: "token",
		})
		return
	}
	if req.Password == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
			Error: "invalid_request", ErrorDescription: "password is required", Field: "password",
		})
		return
	}

	user, err := h.InviteService.Consume(ctx, req.Token, req.Name, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInviteNotFound):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_invite", "Invite not found")
		case errors.Is(err, service.ErrInviteExpired):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_invite", "Invite has expired")
		case errors.Is(err, service.ErrInviteUsed):
			httpx.WriteError(w, http.StatusConflict, "invalid_state", "Invite has already been used")
		case errors.Is(err, service.ErrEmailTaken):
			httpx.WriteJSON(w, http.StatusConflict, httpx.ErrorResponse{
				Error: "conflict", ErrorDescription: "Email already registered", Field: "email",
			})
		case errors.Is(err, service.ErrInvalidInviteRequest):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid registration parameters")
		default:
			log.Error("registration failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Registration failed")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, newUserResponse(user))
}
