package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/sysdesk/sysdesk/internal/auth/domain"
	"github.com/sysdesk/sysdesk/internal/auth/store"
	"github.com/sysdesk/sysdesk/pkg/idx"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func seedTenantAndUser(t *testing.T, s *Store) (domain.Tenant, domain.User) {
	t.Helper()
	ctx := context.Background()

	tenant := domain.Tenant{ID: idx.New().String(), Name: "Acme", IsActive: true}
	require.NoError(t, s.Tenants().CreateTenant(ctx, tenant))

	user := domain.User{
		ID:           idx.New().String(),
		TenantID:     tenant.ID,
		Email:        "admin@acme.co",
		Name:         "Admin",
		PasswordHash: "x",
		Role:         domain.RoleAdmin,
		IsActive:     true,
	}
	require.NoError(t, s.Users().CreateUser(ctx, user))
	return tenant, user
}

func newSession(userID, refreshHash string, ttl time.Duration) domain.Session {
	now := time.Now().UTC()
	return domain.Session{
		ID:               idx.New().String(),
		UserID:           userID,
		RefreshTokenHash: refreshHash,
		IssuedAt:         now,
		AccessExpiresAt:  now.Add(ttl / 2),
		RefreshExpiresAt: now.Add(ttl),
		IsActive:         true,
	}
}

func TestCreateUserEnforcesTenantScopedEmail(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	tenant, user := seedTenantAndUser(t, s)

	dup := user
	dup.ID = idx.New().String()
	require.ErrorIs(t, s.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)

	// Same email under a different tenant is fine.
	other := domain.Tenant{ID: idx.New().String(), Name: "Beta", IsActive: true}
	require.NoError(t, s.Tenants().CreateTenant(ctx, other))

	cross := user
	cross.ID = idx.New().String()
	cross.TenantID = other.ID
	require.NoError(t, s.Users().CreateUser(ctx, cross))

	_ = tenant
}

func TestRecordLoginFailureLocksAtThreshold(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	_, user := seedTenantAndUser(t, s)

	lockUntil := time.Now().Add(30 * time.Minute)

	for i := 1; i < 5; i++ {
		attempts, locked, err := s.Users().RecordLoginFailure(ctx, user.ID, 5, lockUntil)
		require.NoError(t, err)
		require.Equal(t, i, attempts)
		require.Nil(t, locked)
	}

	attempts, locked, err := s.Users().RecordLoginFailure(ctx, user.ID, 5, lockUntil)
	require.NoError(t, err)
	require.Equal(t, 5, attempts)
	require.NotNil(t, locked)
	require.WithinDuration(t, lockUntil, *locked, time.Second)
}

func TestResetLoginFailuresClearsLockAtomically(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	_, user := seedTenantAndUser(t, s)

	for i := 0; i < 5; i++ {
		_, _, err := s.Users().RecordLoginFailure(ctx, user.ID, 5, time.Now().Add(time.Hour))
		require.NoError(t, err)
	}

	loginAt := time.Now().UTC()
	require.NoError(t, s.Users().ResetLoginFailures(ctx, user.ID, loginAt))

	got, err := s.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Zero(t, got.FailedLoginAttempts)
	require.Nil(t, got.LockedUntil)
	require.NotNil(t, got.LastLoginAt)
}

func TestRotateSessionSingleWinner(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	_, user := seedTenantAndUser(t, s)

	old := newSession(user.ID, "hash-old", time.Hour)
	require.NoError(t, s.Sessions().CreateSession(ctx, old))

	now := time.Now()
	next := newSession(user.ID, "hash-new", time.Hour)
	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		return tx.Sessions().RotateSession(ctx, "hash-old", now, next)
	}))

	// Replaying the rotated hash loses: the conditional update misses.
	replay := newSession(user.ID, "hash-replay", time.Hour)
	err := s.WithTx(ctx, func(tx store.Tx) error {
		return tx.Sessions().RotateSession(ctx, "hash-old", time.Now(), replay)
	})
	require.ErrorIs(t, err, store.ErrNotFound)

	// Old row is soft-revoked, not deleted.
	oldRow, err := s.Sessions().GetSessionByID(ctx, old.ID)
	require.NoError(t, err)
	require.False(t, oldRow.IsActive)
	require.Equal(t, domain.RevokedReasonRotated, oldRow.RevokedReason)
	require.NotNil(t, oldRow.RevokedAt)

	_, err = s.Sessions().GetActiveSessionByRefreshHash(ctx, "hash-new")
	require.NoError(t, err)
}

func TestFindActiveExcludesRevokedAndExpired(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	_, user := seedTenantAndUser(t, s)

	active := newSession(user.ID, "hash-active", time.Hour)
	require.NoError(t, s.Sessions().CreateSession(ctx, active))

	revoked := newSession(user.ID, "hash-revoked", time.Hour)
	require.NoError(t, s.Sessions().CreateSession(ctx, revoked))
	require.NoError(t, s.Sessions().RevokeSession(ctx, revoked.ID, domain.RevokedReasonLogout, time.Now()))

	expired := newSession(user.ID, "hash-expired", time.Hour)
	expired.AccessExpiresAt = time.Now().Add(-2 * time.Hour)
	expired.RefreshExpiresAt = time.Now().Add(-time.Hour)
	require.NoError(t, s.Sessions().CreateSession(ctx, expired))

	_, err := s.Sessions().GetActiveSessionByRefreshHash(ctx, "hash-active")
	require.NoError(t, err)

	_, err = s.Sessions().GetActiveSessionByRefreshHash(ctx, "hash-revoked")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Sessions().GetActiveSessionByRefreshHash(ctx, "hash-expired")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRevokeAllUserSessionsCounts(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	_, user := seedTenantAndUser(t, s)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Sessions().CreateSession(ctx, newSession(user.ID, idx.New().String(), time.Hour)))
	}

	count, err := s.Sessions().RevokeAllUserSessions(ctx, user.ID, domain.RevokedReasonLogoutAll, time.Now())
	require.NoError(t, err)
	require.EqualValues(t, 3, count)

	// Idempotent: nothing left to revoke.
	count, err = s.Sessions().RevokeAllUserSessions(ctx, user.ID, domain.RevokedReasonLogoutAll, time.Now())
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestSweepExpiredSessions(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	_, user := seedTenantAndUser(t, s)

	live := newSession(user.ID, "hash-live", time.Hour)
	require.NoError(t, s.Sessions().CreateSession(ctx, live))

	stale := newSession(user.ID, "hash-stale", time.Hour)
	stale.AccessExpiresAt = time.Now().Add(-2 * time.Hour)
	stale.RefreshExpiresAt = time.Now().Add(-time.Hour)
	require.NoError(t, s.Sessions().CreateSession(ctx, stale))

	count, err := s.Sessions().SweepExpiredSessions(ctx, time.Now())
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	// Running again is a no-op.
	count, err = s.Sessions().SweepExpiredSessions(ctx, time.Now())
	require.NoError(t, err)
	require.Zero(t, count)

	liveRow, err := s.Sessions().GetSessionByID(ctx, live.ID)
	require.NoError(t, err)
	require.True(t, liveRow.IsActive)
}

func TestConsumeInviteConditional(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	tenant, admin := seedTenantAndUser(t, s)

	inv := domain.Invite{
		ID:              idx.New().String(),
		TenantID:        tenant.ID,
		Email:           "new@acme.co",
		Role:            domain.RoleOperator,
		InvitedByUserID: admin.ID,
		TokenHash:       "invite-hash",
		MaxUses:         1,
		ExpiresAt:       time.Now().Add(time.Hour),
	}
	require.NoError(t, s.Invites().CreateInvite(ctx, inv))

	got, err := s.Invites().ConsumeInvite(ctx, inv.ID, "user-x", time.Now())
	require.NoError(t, err)
	require.Equal(t, 1, got.Uses)
	require.NotNil(t, got.UsedAt)
	require.Equal(t, "user-x", got.UsedByUserID)

	// Exhausted invite cannot be consumed again, expiry notwithstanding.
	_, err = s.Invites().ConsumeInvite(ctx, inv.ID, "user-y", time.Now())
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteInviteOnlyWhileUntouched(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	tenant, admin := seedTenantAndUser(t, s)

	inv := domain.Invite{
		ID:              idx.New().String(),
		TenantID:        tenant.ID,
		Email:           "del@acme.co",
		Role:            domain.RoleClient,
		InvitedByUserID: admin.ID,
		TokenHash:       "del-hash",
		MaxUses:         2,
		ExpiresAt:       time.Now().Add(time.Hour),
	}
	require.NoError(t, s.Invites().CreateInvite(ctx, inv))

	_, err := s.Invites().ConsumeInvite(ctx, inv.ID, "user-x", time.Now())
	require.NoError(t, err)

	require.ErrorIs(t, s.Invites().DeleteInvite(ctx, tenant.ID, inv.ID), store.ErrNotFound)

	fresh := inv
	fresh.ID = idx.New().String()
	fresh.Email = "del2@acme.co"
	fresh.TokenHash = "del-hash-2"
	require.NoError(t, s.Invites().CreateInvite(ctx, fresh))

	// The wrong tenant id matches nothing, the owning tenant deletes.
	require.ErrorIs(t, s.Invites().DeleteInvite(ctx, "other-tenant", fresh.ID), store.ErrNotFound)
	require.NoError(t, s.Invites().DeleteInvite(ctx, tenant.ID, fresh.ID))

	_, err = s.Invites().GetInviteByID(ctx, fresh.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	tenant, _ := seedTenantAndUser(t, s)

	sentinel := store.ErrAlreadyExists
	err := s.WithTx(ctx, func(tx store.Tx) error {
		u := domain.User{
			ID:           idx.New().String(),
			TenantID:     tenant.ID,
			Email:        "rollback@acme.co",
			PasswordHash: "x",
			Role:         domain.RoleClient,
			IsActive:     true,
		}
		if err := tx.Users().CreateUser(ctx, u); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	_, err = s.Users().GetUserByEmail(ctx, tenant.ID, "rollback@acme.co")
	require.ErrorIs(t, err, store.ErrNotFound)
}
