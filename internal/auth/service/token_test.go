package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sysdesk/sysdesk/internal/auth/domain"
	"github.com/sysdesk/sysdesk/pkg/cryptox"
)

func TestLoginIssuesPairAndSession(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	tenant, seeded := env.seedUser(t, "admin@acme.co", "Secret123!", domain.RoleAdmin)

	user, pair, err := env.tokens.Login(ctx, tenant.ID, "admin@acme.co", "Secret123!", LoginMeta{IP: "203.0.113.9", UserAgent: "cli"})
	require.NoError(t, err)
	require.Equal(t, seeded.ID, user.ID)
	require.Equal(t, "Bearer", pair.TokenType)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	accessClaims, err := env.tokens.AccessSigner.Verify(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, seeded.ID, accessClaims.Subject)
	require.Equal(t, tenant.ID, accessClaims.TenantID)
	require.Equal(t, string(domain.RoleAdmin), accessClaims.Role)
	require.NotEmpty(t, accessClaims.SID)

	refreshClaims, err := env.tokens.RefreshSigner.Verify(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, accessClaims.SID, refreshClaims.SID)

	session, err := env.store.Sessions().GetSessionByID(ctx, accessClaims.SID)
	require.NoError(t, err)
	require.True(t, session.IsActive)
	require.Equal(t, seeded.ID, session.UserID)
	require.Equal(t, "203.0.113.9", session.IP)
	require.Equal(t, cryptox.FingerprintToken(pair.RefreshToken), session.RefreshTokenHash)
	require.Equal(t, cryptox.FingerprintToken(pair.AccessToken), session.AccessTokenHash)
	require.True(t, session.RefreshExpiresAt.After(session.AccessExpiresAt))
}

func TestRefreshRotatesAndRejectsReplay(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	tenant, _ := env.seedUser(t, "admin@acme.co", "Secret123!", domain.RoleAdmin)

	_, pair, err := env.tokens.Login(ctx, tenant.ID, "admin@acme.co", "Secret123!", LoginMeta{IP: "203.0.113.9"})
	require.NoError(t, err)

	next, err := env.tokens.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// The old session is soft-revoked and the audit metadata carried over.
	oldClaims, err := env.tokens.RefreshSigner.Verify(pair.RefreshToken)
	require.NoError(t, err)
	old, err := env.store.Sessions().GetSessionByID(ctx, oldClaims.SID)
	require.NoError(t, err)
	require.False(t, old.IsActive)
	require.Equal(t, domain.RevokedReasonRotated, old.RevokedReason)

	newClaims, err := env.tokens.RefreshSigner.Verify(next.RefreshToken)
	require.NoError(t, err)
	fresh, err := env.store.Sessions().GetSessionByID(ctx, newClaims.SID)
	require.NoError(t, err)
	require.Equal(t, "203.0.113.9", fresh.IP)

	// Replaying the rotated token fails, regardless of its remaining expiry.
	_, err = env.tokens.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	// The replacement still works.
	_, err = env.tokens.Refresh(ctx, next.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshRejectsAccessTokenAndGarbage(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	tenant, _ := env.seedUser(t, "admin@acme.co", "Secret123!", domain.RoleAdmin)

	_, pair, err := env.tokens.Login(ctx, tenant.ID, "admin@acme.co", "Secret123!", LoginMeta{})
	require.NoError(t, err)

	_, err = env.tokens.Refresh(ctx, pair.AccessToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	_, err = env.tokens.Refresh(ctx, "not-a-token")
	require.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestRefreshRejectsDeactivatedUser(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	tenant, user := env.seedUser(t, "admin@acme.co", "Secret123!", domain.RoleAdmin)

	_, pair, err := env.tokens.Login(ctx, tenant.ID, "admin@acme.co", "Secret123!", LoginMeta{})
	require.NoError(t, err)

	require.NoError(t, env.store.Users().SetUserActive(ctx, user.ID, false))

	_, err = env.tokens.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrAccountInactive)
}

func TestLogoutRevokesSingleSession(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	tenant, _ := env.seedUser(t, "admin@acme.co", "Secret123!", domain.RoleAdmin)

	_, pair, err := env.tokens.Login(ctx, tenant.ID, "admin@acme.co", "Secret123!", LoginMeta{})
	require.NoError(t, err)

	id, err := env.sessions.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)

	require.NoError(t, env.tokens.Logout(ctx, id.UserID, id.SessionID, ""))

	// Logout takes effect before the access token's natural expiry.
	_, err = env.sessions.Authenticate(ctx, pair.AccessToken)
	require.ErrorIs(t, err, ErrSessionRevoked)

	// And the refresh token dies with the session.
	_, err = env.tokens.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	// Idempotent.
	require.NoError(t, env.tokens.Logout(ctx, id.UserID, id.SessionID, ""))
}

func TestLogoutByRefreshToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	tenant, user := env.seedUser(t, "admin@acme.co", "Secret123!", domain.RoleAdmin)

	_, current, err := env.tokens.Login(ctx, tenant.ID, "admin@acme.co", "Secret123!", LoginMeta{})
	require.NoError(t, err)
	_, other, err := env.tokens.Login(ctx, tenant.ID, "admin@acme.co", "Secret123!", LoginMeta{})
	require.NoError(t, err)

	id, err := env.sessions.Authenticate(ctx, current.AccessToken)
	require.NoError(t, err)

	// Naming the other session's refresh token revokes that session and
	// leaves the current one alone.
	require.NoError(t, env.tokens.Logout(ctx, user.ID, id.SessionID, other.RefreshToken))

	_, err = env.sessions.Authenticate(ctx, other.AccessToken)
	require.ErrorIs(t, err, ErrSessionRevoked)
	_, err = env.sessions.Authenticate(ctx, current.AccessToken)
	require.NoError(t, err)

	// A refresh token owned by someone else falls back to the caller's own
	// session instead of touching the foreign one.
	_, stranger := env.seedUser(t, "admin@rival.co", "Secret123!", domain.RoleAdmin)
	_, foreign, err := env.tokens.Login(ctx, stranger.TenantID, "admin@rival.co", "Secret123!", LoginMeta{})
	require.NoError(t, err)

	require.NoError(t, env.tokens.Logout(ctx, user.ID, id.SessionID, foreign.RefreshToken))

	_, err = env.sessions.Authenticate(ctx, foreign.AccessToken)
	require.NoError(t, err)
	_, err = env.sessions.Authenticate(ctx, current.AccessToken)
	require.ErrorIs(t, err, ErrSessionRevoked)
}

func TestLogoutAllRevokesEverySession(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	tenant, user := env.seedUser(t, "admin@acme.co", "Secret123!", domain.RoleAdmin)

	var pairs []*domain.TokenPair
	for i := 0; i < 3; i++ {
		_, pair, err := env.tokens.Login(ctx, tenant.ID, "admin@acme.co", "Secret123!", LoginMeta{})
		require.NoError(t, err)
		pairs = append(pairs, pair)
	}

	count, err := env.tokens.LogoutAll(ctx, user.ID)
	require.NoError(t, err)
	require.EqualValues(t, 3, count)

	for _, pair := range pairs {
		_, err := env.sessions.Authenticate(ctx, pair.AccessToken)
		require.ErrorIs(t, err, ErrSessionRevoked)
	}
}

func TestAuthenticateHappyPathBumpsActivity(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	tenant, user := env.seedUser(t, "admin@acme.co", "Secret123!", domain.RoleAdmin)

	_, pair, err := env.tokens.Login(ctx, tenant.ID, "admin@acme.co", "Secret123!", LoginMeta{})
	require.NoError(t, err)

	id, err := env.sessions.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, id.UserID)
	require.Equal(t, tenant.ID, id.TenantID)
	require.Equal(t, domain.RoleAdmin, id.Role)

	got, err := env.store.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastActivityAt)
}

func TestAuthenticateRejectsRefreshToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	tenant, _ := env.seedUser(t, "admin@acme.co", "Secret123!", domain.RoleAdmin)

	_, pair, err := env.tokens.Login(ctx, tenant.ID, "admin@acme.co", "Secret123!", LoginMeta{})
	require.NoError(t, err)

	_, err = env.sessions.Authenticate(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidAccess)
}

func TestAuthenticateRejectsDeactivatedUser(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	tenant, user := env.seedUser(t, "admin@acme.co", "Secret123!", domain.RoleAdmin)

	_, pair, err := env.tokens.Login(ctx, tenant.ID, "admin@acme.co", "Secret123!", LoginMeta{})
	require.NoError(t, err)

	require.NoError(t, env.store.Users().SetUserActive(ctx, user.ID, false))

	_, err = env.sessions.Authenticate(ctx, pair.AccessToken)
	require.ErrorIs(t, err, ErrAccountInactive)
}
