package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRoleRanksAreTotallyOrdered(t *testing.T) {
	t.Parallel()

	require.Less(t, RoleClient.Rank(), RoleOperator.Rank())
	require.Less(t, RoleOperator.Rank(), RoleAdmin.Rank())
	require.Less(t, RoleAdmin.Rank(), RoleMasterAdmin.Rank())
	require.Zero(t, Role("intern").Rank())
}

func TestCanManage(t *testing.T) {
	t.Parallel()

	require.True(t, RoleAdmin.CanManage(RoleOperator))
	require.True(t, RoleAdmin.CanManage(RoleAdmin))
	require.False(t, RoleOperator.CanManage(RoleAdmin))
	require.False(t, RoleMasterAdmin.CanManage(Role("intern")))
	require.False(t, Role("intern").CanManage(RoleClient))
}

func TestAuthorizeHierarchical(t *testing.T) {
	t.Parallel()

	required := []Role{RoleOperator}

	// Any role at or above the minimum required rank passes.
	require.True(t, Authorize(RoleOperator, required, ModeHierarchical))
	require.True(t, Authorize(RoleAdmin, required, ModeHierarchical))
	require.True(t, Authorize(RoleMasterAdmin, required, ModeHierarchical))
	require.False(t, Authorize(RoleClient, required, ModeHierarchical))
}

func TestAuthorizeExact(t *testing.T) {
	t.Parallel()

	required := []Role{RoleOperator, RoleAdmin}

	require.True(t, Authorize(RoleOperator, required, ModeExact))
	require.True(t, Authorize(RoleAdmin, required, ModeExact))

	// Outranking does not help under exact membership.
	require.False(t, Authorize(RoleMasterAdmin, required, ModeExact))
	require.False(t, Authorize(RoleClient, required, ModeExact))
}

func TestAuthorizeEdgeCases(t *testing.T) {
	t.Parallel()

	require.False(t, Authorize(RoleAdmin, nil, ModeHierarchical))
	require.False(t, Authorize(Role("intern"), []Role{RoleClient}, ModeHierarchical))
	require.False(t, Authorize(RoleAdmin, []Role{Role("intern")}, ModeHierarchical))
}

func TestInviteStatusClassification(t *testing.T) {
	t.Parallel()

	now := time.Now()
	inv := Invite{MaxUses: 1, Uses: 0, ExpiresAt: now.Add(time.Hour)}

	require.Equal(t, InviteStatusPending, inv.Status(now))

	t.Run("exhausted reads as used even before expiry", func(t *testing.T) {
		used := inv
		used.Uses = 1
		require.Equal(t, InviteStatusUsed, used.Status(now))
	})

	t.Run("exhaustion wins over expiry", func(t *testing.T) {
		both := inv
		both.Uses = 1
		both.ExpiresAt = now.Add(-time.Hour)
		require.Equal(t, InviteStatusUsed, both.Status(now))
	})

	t.Run("past expiry reads as expired", func(t *testing.T) {
		expired := inv
		expired.ExpiresAt = now.Add(-time.Minute)
		require.Equal(t, InviteStatusExpired, expired.Status(now))
	})
}

func TestUserLocked(t *testing.T) {
	t.Parallel()

	now := time.Now()
	until := now.Add(30 * time.Minute)

	require.True(t, User{LockedUntil: &until}.Locked(now))
	require.False(t, User{LockedUntil: &until}.Locked(until.Add(time.Second)))
	require.False(t, User{}.Locked(now))
}
