package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sysdesk/sysdesk/internal/auth/domain"
	"github.com/sysdesk/sysdesk/pkg/idx"
)

func TestVerifyHappyPath(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	tenant, seeded := env.seedUser(t, "admin@acme.co", "Secret123!", domain.RoleAdmin)

	user, err := env.creds.Verify(ctx, tenant.ID, "admin@acme.co", "Secret123!")
	require.NoError(t, err)
	require.Equal(t, seeded.ID, user.ID)
	require.Zero(t, user.FailedLoginAttempts)
	require.NotNil(t, user.LastLoginAt)
}

func TestVerifyUnknownEmail(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	tenant, _ := env.seedUser(t, "admin@acme.co", "Secret123!", domain.RoleAdmin)

	_, err := env.creds.Verify(context.Background(), tenant.ID, "ghost@acme.co", "whatever")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyWrongTenant(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seedUser(t, "admin@acme.co", "Secret123!", domain.RoleAdmin)

	// Right email, wrong tenant scope.
	_, err := env.creds.Verify(context.Background(), idx.New().String(), "admin@acme.co", "Secret123!")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLockoutAfterRepeatedFailures(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	tenant, _ := env.seedUser(t, "admin@acme.co", "Secret123!", domain.RoleAdmin)

	for i := 0; i < 5; i++ {
		_, err := env.creds.Verify(ctx, tenant.ID, "admin@acme.co", "wrong")
		require.Error(t, err)
	}

	// The 6th attempt fails locked even with the correct password.
	_, err := env.creds.Verify(ctx, tenant.ID, "admin@acme.co", "Secret123!")
	require.ErrorIs(t, err, ErrAccountLocked)

	var locked *LockedError
	require.ErrorAs(t, err, &locked)
	require.Greater(t, locked.RetryAfter(time.Now()), 25*time.Minute)
}

func TestLockoutCountsPersistAcrossAttempts(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	tenant, seeded := env.seedUser(t, "admin@acme.co", "Secret123!", domain.RoleAdmin)

	for i := 0; i < 3; i++ {
		_, err := env.creds.Verify(ctx, tenant.ID, "admin@acme.co", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	got, err := env.store.Users().GetUserByID(ctx, seeded.ID)
	require.NoError(t, err)
	require.Equal(t, 3, got.FailedLoginAttempts)
	require.Nil(t, got.LockedUntil)
}

func TestExpiredLockClearsOnSuccess(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	tenant := domain.Tenant{ID: idx.New().String(), Name: "Acme", IsActive: true}
	require.NoError(t, env.store.Tenants().CreateTenant(ctx, tenant))

	hash, err := env.hasher.Hash(ctx, "Secret123!")
	require.NoError(t, err)

	past := time.Now().Add(-time.Minute)
	user := domain.User{
		ID:                  idx.New().String(),
		TenantID:            tenant.ID,
		Email:               "locked@acme.co",
		PasswordHash:        hash,
		Role:                domain.RoleOperator,
		IsActive:            true,
		FailedLoginAttempts: 5,
		LockedUntil:         &past,
	}
	require.NoError(t, env.store.Users().CreateUser(ctx, user))

	got, err := env.creds.Verify(ctx, tenant.ID, "locked@acme.co", "Secret123!")
	require.NoError(t, err)
	require.Zero(t, got.FailedLoginAttempts)
	require.Nil(t, got.LockedUntil)

	fresh, err := env.store.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Zero(t, fresh.FailedLoginAttempts)
	require.Nil(t, fresh.LockedUntil)
}

func TestVerifyInactiveUser(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	tenant, user := env.seedUser(t, "gone@acme.co", "Secret123!", domain.RoleClient)
	require.NoError(t, env.store.Users().SetUserActive(ctx, user.ID, false))

	_, err := env.creds.Verify(ctx, tenant.ID, "gone@acme.co", "Secret123!")
	require.ErrorIs(t, err, ErrAccountInactive)
}

func TestVerifyInactiveTenant(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	tenant := domain.Tenant{ID: idx.New().String(), Name: "Dormant", IsActive: false}
	require.NoError(t, env.store.Tenants().CreateTenant(ctx, tenant))

	hash, err := env.hasher.Hash(ctx, "Secret123!")
	require.NoError(t, err)
	user := domain.User{
		ID:           idx.New().String(),
		TenantID:     tenant.ID,
		Email:        "user@dormant.co",
		PasswordHash: hash,
		Role:         domain.RoleClient,
		IsActive:     true,
	}
	require.NoError(t, env.store.Users().CreateUser(ctx, user))

	_, err = env.creds.Verify(ctx, tenant.ID, "user@dormant.co", "Secret123!")
	require.ErrorIs(t, err, ErrTenantInactive)
}
