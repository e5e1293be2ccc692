package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sysdesk/sysdesk/internal/auth/domain"
	"github.com/sysdesk/sysdesk/internal/auth/store"
	"github.com/sysdesk/sysdesk/pkg/jwtx"
	"github.com/sysdesk/sysdesk/pkg/slogx"
)

var (
	ErrInvalidAccess  = errors.New("invalid_access_token")
	ErrSessionRevoked = errors.New("session_revoked")
)

// Identity is the authenticated caller attached to a request after the
// access token and its backing session both check out.
type Identity struct {
	UserID    string
	TenantID  string
	Role      domain.Role
	SessionID string
}

// SessionService is the request-time authority. A cryptographically valid,
// unexpired access token is not enough on its own; the backing session row
// must still be active, as must the user and the tenant. This is what makes
// logout and deactivation take effect before the token's natural expiry.
type SessionService struct {
	Store        store.Store
	AccessSigner *jwtx.Signer
}

// Authenticate validates an access token end to end and bumps the user's
// last_activity_at. Token failures and dead sessions both map onto generic
// sentinel errors; the distinction is logged, not leaked.
func (s *SessionService) Authenticate(ctx context.Context, accessToken string) (Identity, error) {
	log := slogx.FromContext(ctx)
	now := time.Now()

	claims, err := s.AccessSigner.Verify(accessToken)
	if err != nil {
		log.Info("access token failed verification", slog.Any("error", err))
		return Identity{}, ErrInvalidAccess
	}

	session, err := s.Store.Sessions().GetSessionByID(ctx, claims.SID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Identity{}, ErrSessionRevoked
		}
		log.Error("failed to fetch session", slog.Any("error", err))
		return Identity{}, err
	}
	if !session.IsActive || session.Expired(now) {
		log.Info("access token presented for dead session",
			slog.String("session_id", session.ID),
			slog.String("revoked_reason", session.RevokedReason),
		)
		return Identity{}, ErrSessionRevoked
	}
	if session.UserID != claims.Subject {
		log.Warn("access token subject does not match session owner",
			slog.String("session_id", session.ID),
		)
		return Identity{}, ErrInvalidAccess
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Identity{}, ErrInvalidAccess
		}
		log.Error("failed to fetch user", slog.Any("error", err))
		return Identity{}, err
	}
	if !user.IsActive {
		return Identity{}, ErrAccountInactive
	}

	tenant, err := s.Store.Tenants().GetTenantByID(ctx, user.TenantID)
	if err != nil {
		log.Error("failed to fetch tenant", slog.Any("error", err))
		return Identity{}, err
	}
	if !tenant.IsActive {
		return Identity{}, ErrTenantInactive
	}

	// Best effort; authentication already succeeded.
	if err := s.Store.Users().UpdateLastActivity(ctx, user.ID, now); err != nil {
		log.Error("failed to bump last activity", slog.Any("error", err))
	}

	return Identity{
		UserID:    user.ID,
		TenantID:  user.TenantID,
		Role:      user.Role,
		SessionID: session.ID,
	}, nil
}
