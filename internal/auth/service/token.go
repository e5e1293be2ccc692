package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sysdesk/sysdesk/internal/auth/domain"
	"github.com/sysdesk/sysdesk/internal/auth/store"
	"github.com/sysdesk/sysdesk/pkg/cryptox"
	"github.com/sysdesk/sysdesk/pkg/idx"
	"github.com/sysdesk/sysdesk/pkg/jwtx"
	"github.com/sysdesk/sysdesk/pkg/slogx"
)

var (
	ErrInvalidRefresh = errors.New("invalid_refresh_token")
)

// LoginMeta is request metadata recorded on the session row for audit.
type LoginMeta struct {
	IP        string
	UserAgent string
}

// TokenService issues token pairs and drives the session lifecycle. The
// session table is the revocation authority; tokens only carry identity.
type TokenService struct {
	Store         store.Store
	Credentials   *CredentialService
	AccessSigner  *jwtx.Signer
	RefreshSigner *jwtx.Signer
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

func (s *TokenService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return jwtx.DefaultAccessTokenTTL
}

func (s *TokenService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return jwtx.DefaultRefreshTokenTTL
}

// Login verifies credentials and creates a fresh session with a new token
// pair. Credential failures pass through from the verifier untranslated.
func (s *TokenService) Login(ctx context.Context, tenantID, email, password string, meta LoginMeta) (domain.User, *domain.TokenPair, error) {
	log := slogx.FromContext(ctx)

	user, err := s.Credentials.Verify(ctx, tenantID, email, password)
	if err != nil {
		return domain.User{}, nil, err
	}

	now := time.Now()
	sessionID := idx.New().String()

	pair, session, err := s.issue(user, sessionID, meta, now)
	if err != nil {
		log.Error("failed to issue token pair", slog.Any("error", err))
		return domain.User{}, nil, err
	}

	if err := s.Store.Sessions().CreateSession(ctx, session); err != nil {
		log.Error("failed to create session", slog.Any("error", err))
		return domain.User{}, nil, err
	}

	log.Info("login succeeded",
		slog.String("user_id", user.ID),
		slog.String("tenant_id", user.TenantID),
		slog.String("session_id", sessionID),
	)
	return user, pair, nil
}

// Refresh rotates a refresh token: the presented token's session is revoked
// and a replacement session with a new pair is created, in one conditional
// store operation. Of two concurrent refreshes with the same token exactly
// one wins; the loser (and any replay of an already-rotated token) gets
// ErrInvalidRefresh. Never retried.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	log := slogx.FromContext(ctx)
	now := time.Now()

	claims, err := s.RefreshSigner.Verify(refreshToken)
	if err != nil {
		log.Info("refresh token failed verification", slog.Any("error", err))
		return nil, ErrInvalidRefresh
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		log.Error("failed to fetch user", slog.Any("error", err))
		return nil, err
	}
	if !user.IsActive {
		log.Warn("refresh attempt on deactivated account", slog.String("user_id", user.ID))
		return nil, ErrAccountInactive
	}

	tenant, err := s.Store.Tenants().GetTenantByID(ctx, user.TenantID)
	if err != nil {
		log.Error("failed to fetch tenant", slog.Any("error", err))
		return nil, err
	}
	if !tenant.IsActive {
		return nil, ErrTenantInactive
	}

	oldHash := cryptox.FingerprintToken(refreshToken)
	sessionID := idx.New().String()

	pair, next, err := s.issue(user, sessionID, LoginMeta{}, now)
	if err != nil {
		log.Error("failed to issue token pair", slog.Any("error", err))
		return nil, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		// Carry the audit metadata of the session being replaced.
		old, err := tx.Sessions().GetActiveSessionByRefreshHash(ctx, oldHash)
		if err != nil {
			return err
		}
		next.IP = old.IP
		next.UserAgent = old.UserAgent

		return tx.Sessions().RotateSession(ctx, oldHash, now, next)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("refresh token replay or lost rotation race",
				slog.String("user_id", user.ID),
				slog.String("session_id", claims.SID),
			)
			return nil, ErrInvalidRefresh
		}
		log.Error("failed to rotate session", slog.Any("error", err))
		return nil, err
	}

	log.Info("session rotated",
		slog.String("user_id", user.ID),
		slog.String("old_session_id", claims.SID),
		slog.String("session_id", sessionID),
	)
	return pair, nil
}

// Logout revokes a single session, by default the one behind the presented
// access token. A supplied refresh token selects that session instead, when
// it belongs to the same user; unknown or foreign tokens fall back to the
// caller's own session. Revoking an already-revoked session is a no-op so
// logout stays idempotent.
func (s *TokenService) Logout(ctx context.Context, userID, sessionID, refreshToken string) error {
	log := slogx.FromContext(ctx)

	if refreshToken != "" {
		sess, err := s.Store.Sessions().GetActiveSessionByRefreshHash(ctx, cryptox.FingerprintToken(refreshToken))
		switch {
		case err == nil && sess.UserID == userID:
			sessionID = sess.ID
		case err != nil && !errors.Is(err, store.ErrNotFound):
			log.Error("failed to resolve refresh token", slog.Any("error", err))
			return err
		}
	}

	err := s.Store.Sessions().RevokeSession(ctx, sessionID, domain.RevokedReasonLogout, time.Now())
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Error("failed to revoke session", slog.Any("error", err))
		return err
	}

	log.Info("session revoked", slog.String("session_id", sessionID))
	return nil
}

// LogoutAll revokes every active session for a user and returns the count.
// Outstanding access tokens die with their sessions at the next check.
func (s *TokenService) LogoutAll(ctx context.Context, userID string) (int64, error) {
	log := slogx.FromContext(ctx)

	count, err := s.Store.Sessions().RevokeAllUserSessions(ctx, userID, domain.RevokedReasonLogoutAll, time.Now())
	if err != nil {
		log.Error("failed to revoke user sessions", slog.Any("error", err))
		return 0, err
	}

	log.Info("all sessions revoked",
		slog.String("user_id", userID),
		slog.Int64("count", count),
	)
	return count, nil
}

// issue signs a fresh pair bound to sessionID and builds the matching
// session row. The row stores fingerprints only, never the tokens.
func (s *TokenService) issue(user domain.User, sessionID string, meta LoginMeta, now time.Time) (*domain.TokenPair, domain.Session, error) {
	accessClaims := jwtx.NewClaims(
		user.ID, user.TenantID, string(user.Role), sessionID,
		jwtx.ClassAccess, s.accessTTL(), s.Issuer, now,
	)
	accessToken, err := s.AccessSigner.Sign(accessClaims)
	if err != nil {
		return nil, domain.Session{}, err
	}

	refreshClaims := jwtx.NewClaims(
		user.ID, user.TenantID, string(user.Role), sessionID,
		jwtx.ClassRefresh, s.refreshTTL(), s.Issuer, now,
	)
	refreshToken, err := s.RefreshSigner.Sign(refreshClaims)
	if err != nil {
		return nil, domain.Session{}, err
	}

	session := domain.Session{
		ID:               sessionID,
		UserID:           user.ID,
		RefreshTokenHash: cryptox.FingerprintToken(refreshToken),
		AccessTokenHash:  cryptox.FingerprintToken(accessToken),
		IP:               meta.IP,
		UserAgent:        meta.UserAgent,
		IssuedAt:         now,
		AccessExpiresAt:  now.Add(s.accessTTL()),
		RefreshExpiresAt: now.Add(s.refreshTTL()),
		IsActive:         true,
	}

	pair := &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.accessTTL(),
	}
	return pair, session, nil
}
