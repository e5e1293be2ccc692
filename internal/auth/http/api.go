package http

import (
	"time"

	"github.com/sysdesk/sysdesk/internal/auth/domain"
)

// Request and response bodies for the auth endpoints. Field names follow the
// snake_case wire convention used everywhere else in the service.

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

func newUserResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:       u.ID,
		TenantID: u.TenantID,
		Email:    u.Email,
		Name:     u.Name,
		Role:     string(u.Role),
		IsActive: u.IsActive,
	}
}

type TokenResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int64         `json:"expires_in"` // seconds
	User         *UserResponse `json:"user,omitempty"`
}

func newTokenResponse(pair *domain.TokenPair, user *UserResponse) TokenResponse {
	return TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int64(pair.ExpiresIn.Seconds()),
		User:         user,
	}
}

// LogoutRequest optionally names the session to revoke by its refresh
// token. Absent, the session behind the access token is revoked.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

type LogoutAllResponse struct {
	SessionsRevoked int64 `json:"sessions_revoked"`
}

type InviteCreateRequest struct {
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	MaxUses   int       `json:"max_uses,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

type InviteResponse struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	MaxUses   int       `json:"max_uses"`
	Uses      int       `json:"uses"`
	ExpiresAt time.Time `json:"expires_at"`
	Status    string    `json:"status"`

	// InviteToken is only present in the creation response; it is never
	// stored or shown again.
	InviteToken string `json:"invite_token,omitempty"`
}

func newInviteResponse(inv domain.Invite, now time.Time) InviteResponse {
	return InviteResponse{
		ID:        inv.ID,
		TenantID:  inv.TenantID,
		Email:     inv.Email,
		Role:      string(inv.Role),
		MaxUses:   inv.MaxUses,
		Uses:      inv.Uses,
		ExpiresAt: inv.ExpiresAt,
		Status:    string(inv.Status(now)),
	}
}

type InviteValidateResponse struct {
	Valid  bool            `json:"valid"`
	Status string          `json:"status,omitempty"`
	Invite *InviteResponse `json:"invite,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type RegisterRequest struct {
	Token    string `json:"token"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type BootstrapRequest struct {
	TenantName string `json:"tenant_name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

type BootstrapResponse struct {
	TenantID string       `json:"tenant_id"`
	User     UserResponse `json:"user"`
}

type HealthChecks struct {
	Database string `json:"database"`
}

type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}
